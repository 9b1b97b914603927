package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/terra-clan/scheme-connect/internal/models"
)

// Field defaults
const (
	DefaultCategory       = "General"
	DefaultAmount         = "₹0"
	DefaultDeadline       = "2024-12-31"
	DefaultProcessingTime = "30 days"

	dateLayout        = "2006-01-02"
	compactDateLayout = "20060102"

	// serials past this year are not dates
	maxDeadlineYear = 9999
)

// Key aliases per logical field, tried in order. The first present key wins.
var (
	idKeys             = []string{"id", "Id", "ID"}
	titleKeys          = []string{"title", "Title", "TITLE"}
	categoryKeys       = []string{"category", "Category", "CATEGORY"}
	amountKeys         = []string{"amount", "Amount", "AMOUNT"}
	eligibilityKeys    = []string{"eligibility", "Eligibility", "ELIGIBILITY"}
	descriptionKeys    = []string{"description", "Description", "DESCRIPTION"}
	deadlineKeys       = []string{"deadline", "Deadline", "DEADLINE"}
	statusKeys         = []string{"status", "Status", "STATUS"}
	featuredKeys       = []string{"featured", "Featured", "FEATURED"}
	applicantsKeys     = []string{"applicants", "Applicants", "APPLICANTS"}
	successRateKeys    = []string{"successRate", "SuccessRate", "SUCCESS_RATE"}
	targetAudienceKeys = []string{"targetAudience", "TargetAudience", "TARGET_AUDIENCE"}
	documentsKeys      = []string{"documents", "Documents", "DOCUMENTS"}
	processingTimeKeys = []string{"processingTime", "ProcessingTime", "PROCESSING_TIME"}
	contactInfoKeys    = []string{"contactInfo", "ContactInfo", "CONTACT_INFO"}
)

// Normalize converts rows into schemes, one per row, in order
func Normalize(rows []Row) []models.Scheme {
	out := make([]models.Scheme, 0, len(rows))
	for i, row := range rows {
		s, _ := NormalizeRow(row, i+1)
		out = append(out, s)
	}
	return out
}

// NormalizeRow builds a scheme from a single row. index is the 1-based row
// position used for generated ids. It also returns the names of the fields
// that fell back to their defaults.
func NormalizeRow(row Row, index int) (models.Scheme, []string) {
	var defaulted []string
	str := func(field string, keys []string, def string) string {
		if v, ok := lookup(row, keys); ok {
			if s := toString(v); s != "" {
				return s
			}
		}
		defaulted = append(defaulted, field)
		return def
	}

	s := models.Scheme{
		ID:             str("id", idKeys, fmt.Sprintf("scheme-%d", index)),
		Title:          str("title", titleKeys, ""),
		Category:       str("category", categoryKeys, DefaultCategory),
		Amount:         str("amount", amountKeys, DefaultAmount),
		Description:    str("description", descriptionKeys, ""),
		Status:         models.SchemeStatus(str("status", statusKeys, string(models.SchemeActive))),
		TargetAudience: str("targetAudience", targetAudienceKeys, ""),
		ProcessingTime: str("processingTime", processingTimeKeys, DefaultProcessingTime),
		ContactInfo:    str("contactInfo", contactInfoKeys, ""),
		Eligibility:    []string{},
		Documents:      []string{},
		Deadline:       DefaultDeadline,
	}

	if v, ok := lookup(row, eligibilityKeys); ok {
		s.Eligibility = toList(v)
	} else {
		defaulted = append(defaulted, "eligibility")
	}
	if v, ok := lookup(row, documentsKeys); ok {
		s.Documents = toList(v)
	} else {
		defaulted = append(defaulted, "documents")
	}

	if v, ok := lookup(row, deadlineKeys); ok {
		if d, ok := toDate(v); ok {
			s.Deadline = d
		} else {
			defaulted = append(defaulted, "deadline")
		}
	} else {
		defaulted = append(defaulted, "deadline")
	}

	if v, ok := lookup(row, featuredKeys); ok {
		s.Featured = truthy(v)
	}

	if v, ok := lookup(row, applicantsKeys); ok {
		s.Applicants = max(toInt(v), 0)
	} else {
		defaulted = append(defaulted, "applicants")
	}
	if v, ok := lookup(row, successRateKeys); ok {
		s.SuccessRate = toInt(v)
	} else {
		defaulted = append(defaulted, "successRate")
	}

	return s, defaulted
}

func lookup(row Row, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// toList accepts a comma-separated string or an already split list
func toList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []string:
		for _, part := range t {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []any:
		for _, part := range t {
			if s := toString(part); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := toString(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toDate accepts YYYY-MM-DD, an RFC 3339 timestamp, YYYYMMDD or a spreadsheet
// date serial
func toDate(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		return serialDate(t)
	case time.Time:
		return t.Format(dateLayout), true
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.Parse(dateLayout, s); err == nil {
			return d.Format(dateLayout), true
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return d.Format(dateLayout), true
		}
		if d, err := time.Parse(compactDateLayout, s); err == nil {
			return d.Format(dateLayout), true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(n)
		}
	}
	return "", false
}

func serialDate(serial float64) (string, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 {
		return "", false
	}
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil || d.Year() > maxDeadlineYear {
		return "", false
	}
	return d.Format(dateLayout), true
}

// truthy coerces a featured flag. Strings that parse as bool use that value;
// any other non-empty string is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case string:
		s := strings.TrimSpace(t)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	case []any, []string:
		return true
	default:
		return false
	}
}

// toInt truncates a number or numeric string toward zero. Anything else is 0.
func toInt(v any) int {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	switch {
	case math.IsNaN(n):
		return 0
	case n >= math.MaxInt:
		return math.MaxInt
	case n <= math.MinInt:
		return math.MinInt
	}
	return int(math.Trunc(n))
}
