package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/metrics"
	"github.com/terra-clan/scheme-connect/internal/models"
)

// SessionStore is the part of the advisor manager the cleaner needs
type SessionStore interface {
	GetExpired(now time.Time) []*models.Session
	DeleteSession(id string) error
}

// Cleaner handles periodic removal of idle advisor sessions
type Cleaner struct {
	sessions SessionStore
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sessions SessionStore, interval time.Duration, logger *zap.Logger) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cleaner{
		sessions: sessions,
		interval: interval,
		logger:   logger.Named("cleanup"),
		now:      time.Now,
	}
}

// Run is the main loop for the cleanup worker. It blocks until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	c.logger.Info("cleanup worker started", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup finds and removes idle sessions
func (c *Cleaner) cleanup() int {
	c.logger.Debug("running cleanup cycle")

	expired := c.sessions.GetExpired(c.now())
	if len(expired) == 0 {
		c.logger.Debug("no idle sessions found")
		return 0
	}

	c.logger.Info("found idle sessions", zap.Int("count", len(expired)))

	removed := 0
	for _, sess := range expired {
		if err := c.sessions.DeleteSession(sess.ID); err != nil {
			c.logger.Error("failed to delete idle session",
				zap.Error(err),
				zap.String("id", sess.ID),
			)
			continue
		}

		removed++
		metrics.ExpiredSessions.Inc()
		c.logger.Info("idle session deleted",
			zap.String("id", sess.ID),
			zap.Time("last_active_at", sess.LastActiveAt),
			zap.Int("messages", sess.MessageCount),
		)
	}
	return removed
}
