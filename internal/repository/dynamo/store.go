// Package dynamo stores endpoint records as DynamoDB items keyed by
// endpoint id.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// Client is the subset of the DynamoDB API the store calls.
type Client interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// item is the stored shape of one endpoint.
type item struct {
	PK          string              `dynamodbav:"PK"`
	Address     string              `dynamodbav:"Address"`
	ChannelType string              `dynamodbav:"ChannelType"`
	Attributes  map[string][]string `dynamodbav:"Attributes"`
	Metrics     map[string]float64  `dynamodbav:"Metrics"`
	UpdatedAt   string              `dynamodbav:"UpdatedAt"`
}

// Store implements engagement.Repository on a single table whose
// partition key is PK.
type Store struct {
	client    Client
	tableName string
	now       func() time.Time
}

// New creates a DynamoDB-backed endpoint store.
func New(client Client, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

// NewFromConfig creates a store with a client built from cfg.
func NewFromConfig(cfg aws.Config, tableName string) *Store {
	return New(dynamodb.NewFromConfig(cfg), tableName)
}

func (s *Store) Get(ctx context.Context, endpointID string) (*domain.EndpointRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: endpointID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting item from DynamoDB: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, engagement.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshaling item: %w", err)
	}
	rec := &domain.EndpointRecord{
		EndpointID:  endpointID,
		Address:     it.Address,
		ChannelType: domain.ChannelType(it.ChannelType),
		Attributes:  domain.Attributes(it.Attributes).Clone(),
		Metrics:     domain.Metrics(it.Metrics).Clone(),
	}
	if t, err := time.Parse(time.RFC3339Nano, it.UpdatedAt); err == nil {
		rec.LastUpdated = t
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, endpointID string, rec *domain.EndpointRecord) error {
	av, err := attributevalue.MarshalMap(item{
		PK:          endpointID,
		Address:     rec.Address,
		ChannelType: string(rec.ChannelType),
		Attributes:  rec.Attributes.Clone(),
		Metrics:     rec.Metrics.Clone(),
		UpdatedAt:   s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}
