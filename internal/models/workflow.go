package models

// StepID identifies one stage of the onboarding workflow
type StepID string

const (
	StepProfile     StepID = "profile"
	StepDiscover    StepID = "discover"
	StepEligibility StepID = "eligibility"
	StepApply       StepID = "apply"
	StepTrack       StepID = "track"
)

// WorkflowStep is one stage of the onboarding sequence.
// Completion state is derived from the profile, not authored.
type WorkflowStep struct {
	ID          StepID `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Current     bool   `json:"current"`
}
