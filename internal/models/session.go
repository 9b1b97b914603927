package models

import (
	"time"
)

// Session is one user's advisor conversation: profile, workflow progress and
// chat log, all held in memory for the session lifetime.
type Session struct {
	ID           string            `json:"id"`
	Profile      UserProfile       `json:"profile"`
	Workflow     []WorkflowStep    `json:"workflow"`
	MessageCount int               `json:"message_count"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at"`
}

// IsIdle returns true if the session has seen no activity for longer than ttl
func (s *Session) IsIdle(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.LastActiveAt) > ttl
}

// TimeRemaining returns the duration until the session goes idle (0 if already idle)
func (s *Session) TimeRemaining(now time.Time, ttl time.Duration) time.Duration {
	remaining := s.LastActiveAt.Add(ttl).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CurrentStep returns the first step flagged current, or nil
func (s *Session) CurrentStep() *WorkflowStep {
	for i := range s.Workflow {
		if s.Workflow[i].Current {
			return &s.Workflow[i]
		}
	}
	return nil
}

// CreateSessionRequest represents a request to create an advisor session
type CreateSessionRequest struct {
	Profile  *ProfileUpdate    `json:"profile,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateSessionResponse is returned after creating a session
type CreateSessionResponse struct {
	ID        string         `json:"id"`
	Greeting  ChatMessage    `json:"greeting"`
	Workflow  []WorkflowStep `json:"workflow"`
	CreatedAt time.Time      `json:"created_at"`
}

// EligibilityResponse is returned by the eligibility check
type EligibilityResponse struct {
	Ready    bool           `json:"ready"`
	Missing  []ProfileField `json:"missing,omitempty"`
	Eligible []Scheme       `json:"eligible"`
	Count    int            `json:"count"`
}
