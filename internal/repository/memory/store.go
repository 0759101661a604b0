// Package memory provides an in-process endpoint store for local
// development and tests. Records do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// Store implements engagement.Repository with a map guarded by a mutex.
// Like the managed stores, Put replaces the whole record.
type Store struct {
	mu      sync.RWMutex
	records map[string]*domain.EndpointRecord
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]*domain.EndpointRecord), now: time.Now}
}

func (s *Store) Get(_ context.Context, endpointID string) (*domain.EndpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[endpointID]
	if !ok {
		return nil, engagement.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) Put(_ context.Context, endpointID string, rec *domain.EndpointRecord) error {
	cp := rec.Clone()
	cp.EndpointID = endpointID
	cp.LastUpdated = s.now().UTC()

	s.mu.Lock()
	s.records[endpointID] = cp
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored endpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
