package advisor

import (
	"sync"

	"github.com/google/uuid"

	"github.com/terra-clan/scheme-connect/internal/models"
	"github.com/terra-clan/scheme-connect/internal/workflow"
)

// EventType distinguishes session stream events
type EventType string

const (
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
)

// Event is pushed to session subscribers
type Event struct {
	Type    EventType           `json:"type"`
	Message *models.ChatMessage `json:"message,omitempty"`
}

const subscriberBuffer = 32

type turn struct {
	text     string
	accepted chan models.ChatMessage
}

type session struct {
	mu       sync.Mutex
	data     models.Session
	messages []models.ChatMessage

	turns    chan *turn
	done     chan struct{}
	stopOnce sync.Once

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
}

func (s *session) id() string {
	return s.data.ID
}

func (s *session) snapshot() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data
	snap.Profile = s.data.Profile.Clone()
	snap.Workflow = cloneSteps(s.data.Workflow)
	snap.MessageCount = len(s.messages)
	if s.data.Metadata != nil {
		snap.Metadata = make(map[string]string, len(s.data.Metadata))
		for k, v := range s.data.Metadata {
			snap.Metadata[k] = v
		}
	}
	return &snap
}

func (s *session) profile() models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Profile.Clone()
}

// applyLocked merges an update and re-derives the workflow. Caller holds mu.
func (s *session) applyLocked(update *models.ProfileUpdate) {
	s.data.Profile.Merge(update)
	s.data.Workflow = workflow.Derive(s.data.Workflow, s.data.Profile)
}

// appendLocked assigns id and sequence and appends msg. Caller holds mu.
func (s *session) appendLocked(msg models.ChatMessage) models.ChatMessage {
	msg.ID = uuid.Must(uuid.NewV7()).String()
	msg.Seq = len(s.messages) + 1
	s.messages = append(s.messages, msg)
	return msg
}

func (s *session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.subMu.Lock()
		for id, ch := range s.subscribers {
			close(ch)
			delete(s.subscribers, id)
		}
		s.subMu.Unlock()
	})
}

func (s *session) subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.stopped() {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			close(c)
			delete(s.subscribers, id)
		}
	}
	return ch, cancel
}

// publish delivers ev to every subscriber. Slow subscribers miss events
// rather than stall the turn loop.
func (s *session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
