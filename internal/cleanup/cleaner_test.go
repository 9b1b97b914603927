package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/terra-clan/scheme-connect/internal/models"
)

type fakeSessions struct {
	mu      sync.Mutex
	expired []*models.Session
	deleted []string
	failOn  string
}

func (f *fakeSessions) GetExpired(time.Time) []*models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}

func (f *fakeSessions) DeleteSession(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failOn {
		return errors.New("boom")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessions) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func TestCleanup_RemovesExpired(t *testing.T) {
	store := &fakeSessions{
		expired: []*models.Session{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		failOn:  "b",
	}
	c := NewCleaner(store, time.Minute, zaptest.NewLogger(t))

	assert.Equal(t, 2, c.cleanup())
	assert.Equal(t, []string{"a", "c"}, store.deletedIDs())
}

func TestCleanup_NothingExpired(t *testing.T) {
	store := &fakeSessions{}
	c := NewCleaner(store, 0, nil)

	assert.Equal(t, 5*time.Minute, c.interval)
	assert.Equal(t, 0, c.cleanup())
}

func TestRun_CleansOnStartAndStops(t *testing.T) {
	store := &fakeSessions{expired: []*models.Session{{ID: "idle"}}}
	c := NewCleaner(store, time.Hour, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(store.deletedIDs()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
