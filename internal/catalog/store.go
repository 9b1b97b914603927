// Package catalog holds the in-memory scheme catalog: a fixed seed partition
// plus a replaceable partition produced by spreadsheet ingestion.
package catalog

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/models"
)

// Common errors
var (
	ErrSchemeNotFound = errors.New("scheme not found")
	ErrDuplicateID    = errors.New("duplicate scheme id")
	ErrInvalidScheme  = errors.New("scheme id is required")
)

// Store manages the seed and ingested partitions. List always returns seed
// records first, then ingested records, both in insertion order.
type Store struct {
	mu       sync.RWMutex
	seed     []models.Scheme
	ingested []models.Scheme
	logger   *zap.Logger
}

// NewStore creates a store with a fixed seed partition
func NewStore(seed []models.Scheme, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		seed:     make([]models.Scheme, 0, len(seed)),
		ingested: []models.Scheme{},
		logger:   logger.Named("catalog"),
	}
	for _, sc := range seed {
		s.seed = append(s.seed, sc.Clone())
	}
	return s
}

// List returns the merged catalog
func (s *Store) List() []models.Scheme {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Scheme, 0, len(s.seed)+len(s.ingested))
	for _, sc := range s.seed {
		out = append(out, sc.Clone())
	}
	for _, sc := range s.ingested {
		out = append(out, sc.Clone())
	}
	return out
}

// Ingested returns only the ingested partition
func (s *Store) Ingested() []models.Scheme {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Scheme, 0, len(s.ingested))
	for _, sc := range s.ingested {
		out = append(out, sc.Clone())
	}
	return out
}

// Get returns the first scheme with the given id
func (s *Store) Get(id string) (models.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sc := range s.seed {
		if sc.ID == id {
			return sc.Clone(), nil
		}
	}
	for _, sc := range s.ingested {
		if sc.ID == id {
			return sc.Clone(), nil
		}
	}
	return models.Scheme{}, ErrSchemeNotFound
}

// Add appends a scheme to the ingested partition
func (s *Store) Add(sc models.Scheme) error {
	if sc.ID == "" {
		return ErrInvalidScheme
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.containsLocked(sc.ID) {
		return ErrDuplicateID
	}
	s.ingested = append(s.ingested, sc.Clone())
	s.logger.Info("scheme added", zap.String("id", sc.ID), zap.String("title", sc.Title))
	return nil
}

// Update replaces the first ingested scheme with a matching id.
// Seed schemes are immutable; it reports false when nothing was replaced.
func (s *Store) Update(sc models.Scheme) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.ingested {
		if s.ingested[i].ID == sc.ID {
			s.ingested[i] = sc.Clone()
			s.logger.Info("scheme updated", zap.String("id", sc.ID))
			return true
		}
	}
	return false
}

// Remove deletes the first ingested scheme with the given id.
// It reports false when nothing was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.ingested {
		if s.ingested[i].ID == id {
			s.ingested = append(s.ingested[:i], s.ingested[i+1:]...)
			s.logger.Info("scheme removed", zap.String("id", id))
			return true
		}
	}
	return false
}

// IsSeed reports whether id belongs to the seed partition
func (s *Store) IsSeed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sc := range s.seed {
		if sc.ID == id {
			return true
		}
	}
	return false
}

// ReplaceIngested swaps the ingested partition for records. Last write wins.
func (s *Store) ReplaceIngested(records []models.Scheme) {
	next := make([]models.Scheme, 0, len(records))
	for _, sc := range records {
		next = append(next, sc.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range next {
		for _, seed := range s.seed {
			if seed.ID == sc.ID {
				s.logger.Warn("ingested scheme id collides with seed", zap.String("id", sc.ID))
			}
		}
	}

	previous := len(s.ingested)
	s.ingested = next
	s.logger.Info("ingested partition replaced",
		zap.Int("previous", previous),
		zap.Int("current", len(next)),
	)
}

// Stats summarizes the merged catalog
func (s *Store) Stats() models.CatalogStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.CatalogStats{
		Total:      len(s.seed) + len(s.ingested),
		Seed:       len(s.seed),
		Ingested:   len(s.ingested),
		Categories: make(map[string]int),
	}
	count := func(sc models.Scheme) {
		if sc.Featured {
			stats.Featured++
		}
		stats.Applicants += sc.Applicants
		stats.Categories[sc.Category]++
	}
	for _, sc := range s.seed {
		count(sc)
	}
	for _, sc := range s.ingested {
		count(sc)
	}
	return stats
}

func (s *Store) containsLocked(id string) bool {
	for _, sc := range s.seed {
		if sc.ID == id {
			return true
		}
	}
	for _, sc := range s.ingested {
		if sc.ID == id {
			return true
		}
	}
	return false
}
