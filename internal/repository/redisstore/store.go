// Package redisstore keeps endpoint records as JSON strings in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// Store implements engagement.Repository with one key per endpoint.
// Records never expire.
type Store struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// New creates a Redis-backed endpoint store. Keys are prefix+endpointID.
func New(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Connect parses a redis:// URL and verifies the server responds.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *Store) key(endpointID string) string { return s.prefix + endpointID }

func (s *Store) Get(ctx context.Context, endpointID string) (*domain.EndpointRecord, error) {
	data, err := s.client.Get(ctx, s.key(endpointID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, engagement.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", endpointID, err)
	}

	var rec domain.EndpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode endpoint %s: %w", endpointID, err)
	}
	rec.EndpointID = endpointID
	if rec.Attributes == nil {
		rec.Attributes = domain.Attributes{}
	}
	if rec.Metrics == nil {
		rec.Metrics = domain.Metrics{}
	}
	return &rec, nil
}

func (s *Store) Put(ctx context.Context, endpointID string, rec *domain.EndpointRecord) error {
	doc := rec.Clone()
	doc.EndpointID = endpointID
	doc.LastUpdated = s.now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode endpoint %s: %w", endpointID, err)
	}
	if err := s.client.Set(ctx, s.key(endpointID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", endpointID, err)
	}
	return nil
}
