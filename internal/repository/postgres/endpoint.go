// Package postgres stores endpoint records in PostgreSQL, with attributes
// and metrics held as JSONB documents.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// EndpointRepo implements engagement.Repository against PostgreSQL.
type EndpointRepo struct{ db *sql.DB }

// NewEndpointRepo creates a Postgres-backed endpoint repository.
func NewEndpointRepo(db *sql.DB) *EndpointRepo { return &EndpointRepo{db: db} }

func (r *EndpointRepo) Get(ctx context.Context, endpointID string) (*domain.EndpointRecord, error) {
	var (
		rec         domain.EndpointRecord
		channel     string
		attrs, mets []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT address, channel_type, attributes, metrics, updated_at
		FROM endpoints WHERE endpoint_id = $1
	`, endpointID).Scan(&rec.Address, &channel, &attrs, &mets, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engagement.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get endpoint: %w", err)
	}

	rec.EndpointID = endpointID
	rec.ChannelType = domain.ChannelType(channel)
	rec.Attributes = domain.Attributes{}
	rec.Metrics = domain.Metrics{}
	if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	if err := json.Unmarshal(mets, &rec.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &rec, nil
}

// Put replaces the whole row for endpointID.
func (r *EndpointRepo) Put(ctx context.Context, endpointID string, rec *domain.EndpointRecord) error {
	attrs, err := json.Marshal(nonNilAttrs(rec.Attributes))
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	mets, err := json.Marshal(nonNilMetrics(rec.Metrics))
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	channel := rec.ChannelType
	if channel == "" {
		channel = domain.ChannelEmail
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO endpoints (endpoint_id, address, channel_type, attributes, metrics, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (endpoint_id) DO UPDATE
		SET address = $2, channel_type = $3, attributes = $4, metrics = $5, updated_at = NOW()
	`, endpointID, rec.Address, string(channel), attrs, mets)
	if err != nil {
		return fmt.Errorf("put endpoint: %w", err)
	}
	return nil
}

func nonNilAttrs(a domain.Attributes) domain.Attributes {
	if a == nil {
		return domain.Attributes{}
	}
	return a
}

func nonNilMetrics(m domain.Metrics) domain.Metrics {
	if m == nil {
		return domain.Metrics{}
	}
	return m
}
