// Package workflow derives onboarding progress from the user profile.
package workflow

import (
	"github.com/terra-clan/scheme-connect/internal/models"
)

// Order is the fixed step sequence
var Order = []models.StepID{
	models.StepProfile,
	models.StepDiscover,
	models.StepEligibility,
	models.StepApply,
	models.StepTrack,
}

// DefaultSteps returns the initial workflow with the profile step current
func DefaultSteps() []models.WorkflowStep {
	return []models.WorkflowStep{
		{
			ID:          models.StepProfile,
			Title:       "Complete Profile",
			Description: "Set up your personal and professional information",
			Current:     true,
		},
		{
			ID:          models.StepDiscover,
			Title:       "Discover Schemes",
			Description: "Find schemes that match your profile and goals",
		},
		{
			ID:          models.StepEligibility,
			Title:       "Check Eligibility",
			Description: "Verify your eligibility for selected schemes",
		},
		{
			ID:          models.StepApply,
			Title:       "Submit Application",
			Description: "Complete and submit your applications",
		},
		{
			ID:          models.StepTrack,
			Title:       "Track Progress",
			Description: "Monitor your application status and updates",
		},
	}
}

// ProfileComplete reports whether the profile step is satisfied: age,
// category and income set and at least one interest.
func ProfileComplete(p models.UserProfile) bool {
	return p.Age > 0 && p.Category != "" && p.Income != "" && len(p.Interests) > 0
}

// Derive recomputes the steps for profile. prev supplies step identity and any
// externally set state; missing steps are filled from DefaultSteps.
//
// The discover step's current flag reads completed from the step being
// replaced, and discover.completed itself is never set here. While the
// profile is incomplete no later step is current; once it is complete again
// the first pending step takes the flag if nothing else holds it.
func Derive(prev []models.WorkflowStep, profile models.UserProfile) []models.WorkflowStep {
	byID := make(map[models.StepID]models.WorkflowStep, len(prev))
	for _, step := range prev {
		byID[step.ID] = step
	}

	done := ProfileComplete(profile)
	defaults := DefaultSteps()
	out := make([]models.WorkflowStep, 0, len(defaults))

	for _, def := range defaults {
		step, ok := byID[def.ID]
		if !ok {
			step = def
		}

		switch step.ID {
		case models.StepProfile:
			step.Completed = done
			step.Current = !done
		case models.StepDiscover:
			step.Current = done && !step.Completed
		default:
			// an incomplete profile takes the current flag back
			if !done {
				step.Current = false
			}
		}

		out = append(out, step)
	}

	if done {
		if _, ok := Current(out); !ok {
			for i := range out {
				if !out[i].Completed {
					out[i].Current = true
					break
				}
			}
		}
	}

	return out
}

// Complete marks a step completed and hands the current flag to the next
// step that is not yet completed. It returns false for an unknown id.
func Complete(steps []models.WorkflowStep, id models.StepID) ([]models.WorkflowStep, bool) {
	idx := -1
	for i, step := range steps {
		if step.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return steps, false
	}

	out := append([]models.WorkflowStep(nil), steps...)
	out[idx].Completed = true
	out[idx].Current = false

	for i := idx + 1; i < len(out); i++ {
		if !out[i].Completed {
			out[i].Current = true
			break
		}
	}

	return out, true
}

// Current returns the first step flagged current, if any
func Current(steps []models.WorkflowStep) (models.WorkflowStep, bool) {
	for _, step := range steps {
		if step.Current {
			return step, true
		}
	}
	return models.WorkflowStep{}, false
}
