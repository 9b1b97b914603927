package catalog

import (
	"strings"

	"github.com/terra-clan/scheme-connect/internal/models"
)

// AllCategories is the category value that disables category filtering
const AllCategories = "All"

// Categories is the fixed list offered for filtering
var Categories = []string{
	AllCategories,
	"Business",
	"Education",
	"Agriculture",
	"Housing",
	"Healthcare",
	"Technology",
	"Social Impact",
}

// Filter returns the records matching category and query, in input order.
// Category is compared exactly unless it is "All"; query is a case-insensitive
// substring of title or description.
func Filter(records []models.Scheme, query, category string) []models.Scheme {
	q := strings.ToLower(query)
	out := make([]models.Scheme, 0, len(records))

	for _, sc := range records {
		if category != AllCategories && sc.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(sc.Title), q) &&
			!strings.Contains(strings.ToLower(sc.Description), q) {
			continue
		}
		out = append(out, sc)
	}
	return out
}

// Featured returns the featured records in input order
func Featured(records []models.Scheme) []models.Scheme {
	out := make([]models.Scheme, 0, len(records))
	for _, sc := range records {
		if sc.Featured {
			out = append(out, sc)
		}
	}
	return out
}
