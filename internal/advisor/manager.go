// Package advisor owns the in-memory advisor sessions: profile, workflow
// progress and chat log per user.
package advisor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/dialogue"
	"github.com/terra-clan/scheme-connect/internal/matcher"
	"github.com/terra-clan/scheme-connect/internal/metrics"
	"github.com/terra-clan/scheme-connect/internal/models"
	"github.com/terra-clan/scheme-connect/internal/workflow"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownStep     = errors.New("unknown workflow step")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrManagerClosed   = errors.New("advisor manager is closed")
)

// Catalog is the read side of the scheme catalog
type Catalog interface {
	List() []models.Scheme
}

// Options configures a Manager
type Options struct {
	TypingDelay time.Duration // pause before each bot reply
	TTL         time.Duration // idle time before a session expires
	QueueSize   int           // pending turns per session
}

// Manager holds advisor sessions. Each session processes chat turns one at
// a time on its own goroutine, so a user message is always followed by its
// bot reply before the next user message is appended.
type Manager struct {
	catalog Catalog
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
}

// NewManager creates a session manager reading schemes from catalog
func NewManager(catalog Catalog, opts Options, logger *zap.Logger) *Manager {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.TypingDelay < 0 {
		opts.TypingDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		catalog:  catalog,
		opts:     opts,
		logger:   logger.Named("advisor"),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// CreateSession starts a session with an optional initial profile. The log
// opens with the greeting message.
func (m *Manager) CreateSession(req models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	now := m.now()

	profile := models.UserProfile{Interests: []string{}}
	profile.Merge(req.Profile)

	s := &session{
		data: models.Session{
			ID:           uuid.New().String(),
			Profile:      profile,
			Workflow:     workflow.Derive(workflow.DefaultSteps(), profile),
			Metadata:     req.Metadata,
			CreatedAt:    now,
			LastActiveAt: now,
		},
		turns:       make(chan *turn, m.opts.QueueSize),
		done:        make(chan struct{}),
		subscribers: make(map[int]chan Event),
	}
	greeting := s.appendLocked(botMessage(dialogue.Greeting(), now))
	resp := &models.CreateSessionResponse{
		ID:        s.data.ID,
		Greeting:  greeting,
		Workflow:  cloneSteps(s.data.Workflow),
		CreatedAt: now,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.sessions[s.data.ID] = s
	count := len(m.sessions)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runTurns(s)

	metrics.ActiveSessions.Set(float64(count))
	m.logger.Info("session created", zap.String("id", resp.ID))

	return resp, nil
}

// GetSession returns a snapshot of the session
func (m *Manager) GetSession(id string) (*models.Session, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

// ListSessions returns snapshots of all sessions, oldest first
func (m *Manager) ListSessions() []*models.Session {
	m.mu.RLock()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// DeleteSession removes a session. A reply still waiting on the typing
// delay is dropped.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.stop()
	metrics.ActiveSessions.Set(float64(count))
	m.logger.Info("session deleted", zap.String("id", id))
	return nil
}

// UpdateProfile merges update into the session profile and re-derives the workflow
func (m *Manager) UpdateProfile(id string, update *models.ProfileUpdate) (*models.Session, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.applyLocked(update)
	s.data.LastActiveAt = m.now()
	s.mu.Unlock()

	return s.snapshot(), nil
}

// CompleteStep marks a workflow step done and advances the current step
func (m *Manager) CompleteStep(id string, step models.StepID) ([]models.WorkflowStep, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	steps, ok := workflow.Complete(s.data.Workflow, step)
	if !ok {
		return nil, ErrUnknownStep
	}
	s.data.Workflow = steps
	s.data.LastActiveAt = m.now()

	return cloneSteps(steps), nil
}

// Recommend returns schemes matching the session profile
func (m *Manager) Recommend(id string, limit int) ([]models.Scheme, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return matcher.Recommend(m.catalog.List(), s.profile(), limit), nil
}

// CheckEligibility runs the eligibility check for the session profile
func (m *Manager) CheckEligibility(id string) (matcher.Eligibility, error) {
	s, err := m.get(id)
	if err != nil {
		return matcher.Eligibility{}, err
	}
	return matcher.CheckEligibility(m.catalog.List(), s.profile()), nil
}

// SendMessage queues a chat turn and waits until the user message has been
// appended to the log. The bot reply follows asynchronously after the typing
// delay and is delivered to subscribers.
func (m *Manager) SendMessage(ctx context.Context, id, text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}

	s, err := m.get(id)
	if err != nil {
		return models.ChatMessage{}, err
	}

	t := &turn{text: text, accepted: make(chan models.ChatMessage, 1)}

	select {
	case s.turns <- t:
	case <-s.done:
		return models.ChatMessage{}, ErrSessionNotFound
	case <-ctx.Done():
		return models.ChatMessage{}, ctx.Err()
	}

	select {
	case msg := <-t.accepted:
		return msg, nil
	case <-s.done:
		return models.ChatMessage{}, ErrSessionNotFound
	case <-ctx.Done():
		return models.ChatMessage{}, ctx.Err()
	}
}

// Messages returns the session's chat log in order
func (m *Manager) Messages(id string) ([]models.ChatMessage, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Subscribe streams events appended to the session after the call. The
// channel is closed when cancel is called or the session ends.
func (m *Manager) Subscribe(id string) (<-chan Event, func(), error) {
	s, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}

	ch, cancel := s.subscribe()
	return ch, cancel, nil
}

// TTL returns the idle time after which sessions expire. Zero disables expiry.
func (m *Manager) TTL() time.Duration {
	return m.opts.TTL
}

// GetExpired returns sessions idle longer than the configured TTL
func (m *Manager) GetExpired(now time.Time) []*models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*models.Session
	for _, s := range m.sessions {
		snap := s.snapshot()
		if snap.IsIdle(now, m.opts.TTL) {
			expired = append(expired, snap)
		}
	}
	return expired
}

// Close stops every session and waits for turn loops to exit
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	m.wg.Wait()

	metrics.ActiveSessions.Set(0)
	m.logger.Info("advisor manager closed", zap.Int("sessions", len(sessions)))
	return nil
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// runTurns processes queued turns until the session stops
func (m *Manager) runTurns(s *session) {
	defer m.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case t := <-s.turns:
			m.handleTurn(s, t)
		}
	}
}

func (m *Manager) handleTurn(s *session, t *turn) {
	now := m.now()

	s.mu.Lock()
	userMsg := s.appendLocked(models.ChatMessage{
		Role:      models.RoleUser,
		Content:   t.text,
		Timestamp: now,
	})
	s.data.LastActiveAt = now
	s.mu.Unlock()

	t.accepted <- userMsg
	s.publish(Event{Type: EventMessage, Message: &userMsg})
	s.publish(Event{Type: EventTyping})

	if m.opts.TypingDelay > 0 {
		timer := time.NewTimer(m.opts.TypingDelay)
		select {
		case <-timer.C:
		case <-s.done:
			timer.Stop()
			m.logger.Debug("pending reply dropped", zap.String("session", s.id()))
			return
		}
	}

	records := m.catalog.List()

	s.mu.Lock()
	if s.stopped() {
		s.mu.Unlock()
		return
	}
	reply := dialogue.Respond(t.text, s.data.Profile, records)
	if reply.ProfileUpdate != nil {
		s.applyLocked(reply.ProfileUpdate)
	}
	botMsg := s.appendLocked(botMessage(reply, m.now()))
	s.data.LastActiveAt = botMsg.Timestamp
	s.mu.Unlock()

	s.publish(Event{Type: EventMessage, Message: &botMsg})
	metrics.ChatTurns.WithLabelValues(string(reply.Intent)).Inc()

	m.logger.Debug("chat turn answered",
		zap.String("session", s.id()),
		zap.String("intent", string(reply.Intent)),
		zap.Bool("profile_updated", reply.ProfileUpdate != nil),
	)
}

func botMessage(reply dialogue.Reply, now time.Time) models.ChatMessage {
	return models.ChatMessage{
		Role:        models.RoleBot,
		Content:     reply.Content,
		Timestamp:   now,
		Suggestions: reply.Suggestions,
		Intent:      string(reply.Intent),
	}
}

func cloneSteps(steps []models.WorkflowStep) []models.WorkflowStep {
	return append([]models.WorkflowStep(nil), steps...)
}
