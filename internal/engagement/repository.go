package engagement

import (
	"context"

	"github.com/ignite/contact-mailer/internal/domain"
)

// Repository defines the data access contract for endpoint records.
type Repository interface {
	// Get returns the record stored for endpointID, or ErrNotFound.
	Get(ctx context.Context, endpointID string) (*domain.EndpointRecord, error)

	// Put creates or fully replaces the record stored for endpointID.
	// It is not a patch: keys absent from rec are removed from the store.
	Put(ctx context.Context, endpointID string, rec *domain.EndpointRecord) error
}

// Locker serializes read-merge-write cycles for one endpoint. It is only
// used when a Service is built with WithLocker.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory returns a Locker guarding the given endpoint.
type LockFactory func(endpointID string) Locker
