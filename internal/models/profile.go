package models

// ProfileField names a profile attribute that eligibility checks depend on
type ProfileField string

const (
	FieldAge      ProfileField = "age"
	FieldIncome   ProfileField = "income"
	FieldCategory ProfileField = "category"
)

// UserProfile holds the self-reported attributes used for matching.
// Age 0 means unset.
type UserProfile struct {
	Age          int      `json:"age,omitempty"`
	Category     string   `json:"category,omitempty"`
	Income       string   `json:"income,omitempty"` // bucket label, e.g. "3-8L"
	Location     string   `json:"location,omitempty"`
	Education    string   `json:"education,omitempty"`
	BusinessType string   `json:"businessType,omitempty"`
	Interests    []string `json:"interests"`
}

// ProfileUpdate is a partial profile. Nil fields are left untouched and
// interests are appended, never replaced.
type ProfileUpdate struct {
	Age          *int     `json:"age,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Income       *string  `json:"income,omitempty"`
	Location     *string  `json:"location,omitempty"`
	Education    *string  `json:"education,omitempty"`
	BusinessType *string  `json:"businessType,omitempty"`
	Interests    []string `json:"interests,omitempty"`
}

// IsEmpty reports whether the update would change nothing
func (u *ProfileUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.Age == nil && u.Category == nil && u.Income == nil && u.Location == nil &&
		u.Education == nil && u.BusinessType == nil && len(u.Interests) == 0
}

// Merge applies u to the profile. A non-positive age clears the age.
func (p *UserProfile) Merge(u *ProfileUpdate) {
	if u == nil {
		return
	}
	if u.Age != nil {
		if *u.Age > 0 {
			p.Age = *u.Age
		} else {
			p.Age = 0
		}
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Income != nil {
		p.Income = *u.Income
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Education != nil {
		p.Education = *u.Education
	}
	if u.BusinessType != nil {
		p.BusinessType = *u.BusinessType
	}
	p.Interests = appendUnique(p.Interests, u.Interests...)
}

// MissingForEligibility lists the fields eligibility needs, in the fixed
// order age, income, category.
func (p UserProfile) MissingForEligibility() []ProfileField {
	var missing []ProfileField
	if p.Age <= 0 {
		missing = append(missing, FieldAge)
	}
	if p.Income == "" {
		missing = append(missing, FieldIncome)
	}
	if p.Category == "" {
		missing = append(missing, FieldCategory)
	}
	return missing
}

// Clone returns a deep copy of the profile
func (p UserProfile) Clone() UserProfile {
	out := p
	out.Interests = append([]string{}, p.Interests...)
	return out
}

func appendUnique(dst []string, values ...string) []string {
	if dst == nil {
		dst = []string{}
	}
	seen := make(map[string]struct{}, len(dst)+len(values))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// StringPtr returns a pointer to s, for building updates
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n, for building updates
func IntPtr(n int) *int {
	return &n
}
