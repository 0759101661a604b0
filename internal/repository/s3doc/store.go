// Package s3doc stores each endpoint record as a JSON document in S3.
package s3doc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// Client is the subset of the S3 API the store calls.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements engagement.Repository with one object per endpoint
// under prefix.
type Store struct {
	client Client
	bucket string
	prefix string
	now    func() time.Time
}

// New creates an S3-backed endpoint store.
func New(client Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// NewFromConfig creates a store with a client built from cfg.
func NewFromConfig(cfg aws.Config, bucket, prefix string) *Store {
	return New(s3.NewFromConfig(cfg), bucket, prefix)
}

// Key returns the object key for endpointID.
func (s *Store) Key(endpointID string) string {
	return s.prefix + endpointID + ".json"
}

func (s *Store) Get(ctx context.Context, endpointID string) (*domain.EndpointRecord, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(endpointID)),
	})
	if isNotFound(err) {
		return nil, engagement.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}

	var rec domain.EndpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling S3 data: %w", err)
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
		return fmt.Errorf("marshaling record: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(endpointID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
