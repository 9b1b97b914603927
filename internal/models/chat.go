package models

import "time"

// Role identifies the author of a chat message
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// ChatMessage is one entry in a session's append-only conversation log
type ChatMessage struct {
	ID          string    `json:"id"`  // UUIDv7, ordered by creation
	Seq         int       `json:"seq"` // 1-based position in the log
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Intent      string    `json:"intent,omitempty"` // dialogue rule that produced a bot reply
}

// SendMessageRequest is the body for posting a chat message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// RespondRequest asks the dialogue generator for a reply without a session
type RespondRequest struct {
	Message string      `json:"message"`
	Profile UserProfile `json:"profile"`
}

// RespondResponse is the stateless dialogue reply
type RespondResponse struct {
	Intent        string         `json:"intent"`
	Content       string         `json:"content"`
	Suggestions   []string       `json:"suggestions"`
	ProfileUpdate *ProfileUpdate `json:"profileUpdate,omitempty"`
	Profile       UserProfile    `json:"profile"` // profile after the update was applied
}
