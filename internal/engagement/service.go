package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

const (
	defaultLockWait = 2 * time.Second
	lockPoll        = 25 * time.Millisecond
)

// ErrBusy is returned when serialized updates are enabled and the endpoint
// lock could not be taken before the wait expired.
var ErrBusy = errors.New("endpoint is locked by another update")

// Service records engagement events against the endpoint store. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	repo     Repository
	now      func() time.Time
	newID    func() string
	locks    LockFactory
	lockWait time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for date attributes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how message ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithLocker serializes each read-merge-write per endpoint. Without it,
// concurrent updates to one endpoint may lose increments.
func WithLocker(f LockFactory, wait time.Duration) Option {
	return func(s *Service) {
		s.locks = f
		if wait > 0 {
			s.lockWait = wait
		}
	}
}

// NewService creates an engagement service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		now:      time.Now,
		newID:    uuid.NewString,
		lockWait: defaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialized reports whether updates go through an endpoint lock.
func (s *Service) Serialized() bool { return s.locks != nil }

// NewSendEvent builds the event for one contact-form submission, minting a
// fresh message id and deriving the endpoint id from the address.
func (s *Service) NewSendEvent(name, email, subject, message string) (domain.SendEvent, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.SendEvent{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	return domain.SendEvent{
		MessageID:  s.newID(),
		EndpointID: EndpointID(email),
		Email:      email,
		Name:       strings.TrimSpace(name),
		Subject:    subject,
		Message:    message,
		Timestamp:  s.now().UTC(),
	}, nil
}

// RecordSend counts a send for evt's endpoint and stores the new message id.
func (s *Service) RecordSend(ctx context.Context, evt domain.SendEvent) (*domain.EndpointRecord, error) {
	if evt.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if evt.EndpointID == "" {
		evt.EndpointID = EndpointID(evt.Email)
	}
	return s.update(ctx, evt.EndpointID, func(cur *domain.EndpointRecord, now time.Time) *domain.EndpointRecord {
		return MergeOnSend(cur, evt, now)
	})
}

// RecordOpen counts one open of messageID for endpointID.
func (s *Service) RecordOpen(ctx context.Context, endpointID, messageID string) (*domain.EndpointRecord, error) {
	if endpointID == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", ErrValidation)
	}
	return s.update(ctx, endpointID, func(cur *domain.EndpointRecord, now time.Time) *domain.EndpointRecord {
		return MergeOnOpen(cur, endpointID, messageID, now)
	})
}

// RecordClick counts one click on target inside messageID. A missing target
// fails validation before the store is touched.
func (s *Service) RecordClick(ctx context.Context, endpointID, messageID, target string) (*domain.EndpointRecord, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	if endpointID == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", ErrValidation)
	}
	return s.update(ctx, endpointID, func(cur *domain.EndpointRecord, now time.Time) *domain.EndpointRecord {
		return MergeOnClick(cur, endpointID, messageID, target, now)
	})
}

// Lookup returns the record for email, or nil when the endpoint has never
// been written.
func (s *Service) Lookup(ctx context.Context, email string) (*domain.EndpointRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	id := EndpointID(email)
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get endpoint "+id, err)
	}
	return rec, nil
}

type mergeFunc func(cur *domain.EndpointRecord, now time.Time) *domain.EndpointRecord

// update runs one read-merge-write. Without a locker nothing prevents a
// concurrent update from reading the same base record.
func (s *Service) update(ctx context.Context, endpointID string, merge mergeFunc) (*domain.EndpointRecord, error) {
	if s.locks != nil {
		lock := s.locks(endpointID)
		if err := s.acquire(ctx, lock); err != nil {
			return nil, err
		}
		defer release(context.WithoutCancel(ctx), lock, endpointID)
	}

	cur, err := s.repo.Get(ctx, endpointID)
	if errors.Is(err, ErrNotFound) {
		cur, err = nil, nil
	}
	if err != nil {
		return nil, unavailable("get endpoint "+endpointID, err)
	}

	next := merge(cur, s.now())
	if err := s.repo.Put(ctx, endpointID, next); err != nil {
		return nil, unavailable("put endpoint "+endpointID, err)
	}
	return next, nil
}

// release frees lock. A failure is only logged: the update already happened
// and the lock expires on its own.
func release(ctx context.Context, lock Locker, endpointID string) {
	if err := lock.Release(ctx); err != nil {
		logger.Warn("release endpoint lock failed", "endpoint_id", endpointID, "error", err)
	}
}

func (s *Service) acquire(ctx context.Context, lock Locker) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	ticker := time.NewTicker(lockPoll)
	defer ticker.Stop()
	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ErrBusy
			}
			return unavailable("acquire endpoint lock", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrBusy
		case <-ticker.C:
		}
	}
}

// unavailable tags err with ErrUnavailable unless it already carries it.
func unavailable(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
