// Package pinpoint stores endpoint records as Amazon Pinpoint endpoints,
// using the endpoint's custom attributes and metrics maps directly.
package pinpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint/types"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// Client is the subset of the Pinpoint API the store calls.
type Client interface {
	GetEndpoint(ctx context.Context, in *pinpoint.GetEndpointInput, optFns ...func(*pinpoint.Options)) (*pinpoint.GetEndpointOutput, error)
	UpdateEndpoint(ctx context.Context, in *pinpoint.UpdateEndpointInput, optFns ...func(*pinpoint.Options)) (*pinpoint.UpdateEndpointOutput, error)
}

// Store implements engagement.Repository against one Pinpoint project.
type Store struct {
	client    Client
	projectID string
}

// New creates a Pinpoint-backed endpoint store.
func New(client Client, projectID string) *Store {
	return &Store{client: client, projectID: projectID}
}

// NewFromConfig creates a store with a client built from cfg.
func NewFromConfig(cfg aws.Config, projectID string) *Store {
	return New(pinpoint.NewFromConfig(cfg), projectID)
}

func (s *Store) Get(ctx context.Context, endpointID string) (*domain.EndpointRecord, error) {
	out, err := s.client.GetEndpoint(ctx, &pinpoint.GetEndpointInput{
		ApplicationId: aws.String(s.projectID),
		EndpointId:    aws.String(endpointID),
	})
	var nf *types.NotFoundException
	if errors.As(err, &nf) {
		return nil, engagement.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pinpoint get endpoint: %w", err)
	}
	if out.EndpointResponse == nil {
		return nil, engagement.ErrNotFound
	}
	return fromResponse(endpointID, out.EndpointResponse), nil
}

func (s *Store) Put(ctx context.Context, endpointID string, rec *domain.EndpointRecord) error {
	req := &types.EndpointRequest{
		ChannelType: types.ChannelType(rec.ChannelType),
		Attributes:  rec.Attributes.Clone(),
		Metrics:     rec.Metrics.Clone(),
	}
	// An open or click can create the endpoint before any send; leave the
	// address unset rather than overwriting it with "".
	if rec.Address != "" {
		req.Address = aws.String(rec.Address)
	}
	if req.ChannelType == "" {
		req.ChannelType = types.ChannelTypeEmail
	}
	_, err := s.client.UpdateEndpoint(ctx, &pinpoint.UpdateEndpointInput{
		ApplicationId:   aws.String(s.projectID),
		EndpointId:      aws.String(endpointID),
		EndpointRequest: req,
	})
	if err != nil {
		return fmt.Errorf("pinpoint update endpoint: %w", err)
	}
	return nil
}

func fromResponse(endpointID string, resp *types.EndpointResponse) *domain.EndpointRecord {
	rec := &domain.EndpointRecord{
		EndpointID:  endpointID,
		Address:     aws.ToString(resp.Address),
		ChannelType: domain.ChannelType(resp.ChannelType),
		Attributes:  domain.Attributes(resp.Attributes).Clone(),
		Metrics:     domain.Metrics(resp.Metrics).Clone(),
	}
	if ts := aws.ToString(resp.EffectiveDate); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.LastUpdated = t.UTC()
		}
	}
	return rec
}
