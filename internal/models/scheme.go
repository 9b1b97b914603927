package models

// SchemeStatus is the lifecycle state of a scheme. Values outside the three
// declared constants are tolerated and passed through from ingestion as-is.
type SchemeStatus string

const (
	SchemeActive   SchemeStatus = "active"
	SchemeUpcoming SchemeStatus = "upcoming"
	SchemeClosed   SchemeStatus = "closed"
)

// IsKnown reports whether the status is one of the declared values
func (s SchemeStatus) IsKnown() bool {
	return s == SchemeActive || s == SchemeUpcoming || s == SchemeClosed
}

// Scheme is a grant, loan or program record in the catalog.
// Records are replaced wholesale on update, never mutated in place.
type Scheme struct {
	ID             string       `json:"id" yaml:"id"`
	Title          string       `json:"title" yaml:"title"`
	Category       string       `json:"category" yaml:"category"`
	Amount         string       `json:"amount" yaml:"amount"` // display string, e.g. "₹25 Lakhs"
	Eligibility    []string     `json:"eligibility" yaml:"eligibility"`
	Description    string       `json:"description" yaml:"description"`
	Deadline       string       `json:"deadline" yaml:"deadline"` // YYYY-MM-DD
	Status         SchemeStatus `json:"status" yaml:"status"`
	Featured       bool         `json:"featured" yaml:"featured"`
	Applicants     int          `json:"applicants" yaml:"applicants"`
	SuccessRate    int          `json:"successRate" yaml:"successRate"` // percent, not clamped
	TargetAudience string       `json:"targetAudience" yaml:"targetAudience"`
	Documents      []string     `json:"documents" yaml:"documents"`
	ProcessingTime string       `json:"processingTime" yaml:"processingTime"`
	ContactInfo    string       `json:"contactInfo" yaml:"contactInfo"`
}

// Clone returns a copy that shares no slices with s
func (s Scheme) Clone() Scheme {
	out := s
	out.Eligibility = append([]string{}, s.Eligibility...)
	out.Documents = append([]string{}, s.Documents...)
	return out
}

// CatalogStats summarizes the catalog contents
type CatalogStats struct {
	Total      int            `json:"total"`
	Seed       int            `json:"seed"`
	Ingested   int            `json:"ingested"`
	Featured   int            `json:"featured"`
	Applicants int            `json:"applicants"`
	Categories map[string]int `json:"categories"`
}

// ImportResult is returned after a spreadsheet has been ingested
type ImportResult struct {
	FileName string   `json:"file_name"`
	Imported int      `json:"imported"`
	Total    int      `json:"total"`
	Schemes  []Scheme `json:"schemes"`
}
