// Package matcher selects schemes for a user profile.
package matcher

import (
	"strings"

	"github.com/terra-clan/scheme-connect/internal/models"
)

// DefaultLimit is used when Recommend is given a non-positive limit
const DefaultLimit = 3

// Eligibility is the outcome of an eligibility check. When Ready is false,
// Missing lists the profile fields still needed and no record was evaluated.
type Eligibility struct {
	Ready    bool                  `json:"ready"`
	Missing  []models.ProfileField `json:"missing,omitempty"`
	Eligible []models.Scheme       `json:"eligible"`
}

// Recommend returns up to limit candidates in catalog order. A record is a
// candidate when its target audience mentions the profile category, when its
// title or description mentions an interest, or when it is featured.
func Recommend(records []models.Scheme, profile models.UserProfile, limit int) []models.Scheme {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]models.Scheme, 0, min(limit, len(records)))
	for _, sc := range records {
		if len(out) == limit {
			break
		}
		if isCandidate(sc, profile) {
			out = append(out, sc)
		}
	}
	return out
}

func isCandidate(sc models.Scheme, profile models.UserProfile) bool {
	if profile.Category != "" && containsFold(sc.TargetAudience, profile.Category) {
		return true
	}
	for _, interest := range profile.Interests {
		if interest == "" {
			continue
		}
		if containsFold(sc.Title, interest) || containsFold(sc.Description, interest) {
			return true
		}
	}
	return sc.Featured
}

// EligibleFor returns the records with an eligibility line mentioning the
// profile category. An empty category matches nothing.
func EligibleFor(records []models.Scheme, profile models.UserProfile) []models.Scheme {
	out := make([]models.Scheme, 0)
	if profile.Category == "" {
		return out
	}
	for _, sc := range records {
		for _, line := range sc.Eligibility {
			if containsFold(line, profile.Category) {
				out = append(out, sc)
				break
			}
		}
	}
	return out
}

// CheckEligibility runs EligibleFor only once age, income and category are set
func CheckEligibility(records []models.Scheme, profile models.UserProfile) Eligibility {
	if missing := profile.MissingForEligibility(); len(missing) > 0 {
		return Eligibility{Missing: missing, Eligible: []models.Scheme{}}
	}
	return Eligibility{
		Ready:    true,
		Eligible: EligibleFor(records, profile),
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
