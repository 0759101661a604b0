package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// tableClient keeps items in a map keyed by PK.
type tableClient struct {
	items  map[string]map[string]types.AttributeValue
	getErr error
	putErr error
}

func newTableClient() *tableClient {
	return &tableClient{items: map[string]map[string]types.AttributeValue{}}
}

func (c *tableClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: c.items[pk]}, nil
}

func (c *tableClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if c.putErr != nil {
		return nil, c.putErr
	}
	pk := in.Item["PK"].(*types.AttributeValueMemberS).Value
	c.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestStore_RoundTrip(t *testing.T) {
	client := newTableClient()
	s := New(client, "endpoints")
	s.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }
	ctx := context.Background()

	_, err := s.Get(ctx, "e1")
	require.ErrorIs(t, err, engagement.ErrNotFound)

	in := &domain.EndpointRecord{
		Address:     "a@example.com",
		ChannelType: domain.ChannelEmail,
		Attributes:  domain.Attributes{domain.AttrClickedURLs: {"https://a.example", "https://b.example"}},
		Metrics:     domain.Metrics{domain.MetricClicks: 2},
	}
	require.NoError(t, s.Put(ctx, "e1", in))

	out, err := s.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", out.EndpointID)
	assert.Equal(t, in.Address, out.Address)
	assert.Equal(t, domain.ChannelEmail, out.ChannelType)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, out.Attributes.Get(domain.AttrClickedURLs))
	assert.Equal(t, 2.0, out.Metrics.Get(domain.MetricClicks))
	assert.True(t, s.now().Equal(out.LastUpdated))
}

func TestStore_PutTargetsTable(t *testing.T) {
	var got *dynamodb.PutItemInput
	client := &recordingClient{put: func(in *dynamodb.PutItemInput) { got = in }}
	s := New(client, "endpoints")

	require.NoError(t, s.Put(context.Background(), "e1", &domain.EndpointRecord{Address: "a@example.com"}))
	require.NotNil(t, got)
	assert.Equal(t, "endpoints", aws.ToString(got.TableName))
}

func TestStore_Errors(t *testing.T) {
	client := newTableClient()
	client.getErr = errors.New("throttled")
	client.putErr = errors.New("denied")
	s := New(client, "endpoints")

	_, err := s.Get(context.Background(), "e1")
	assert.ErrorContains(t, err, "throttled")
	assert.NotErrorIs(t, err, engagement.ErrNotFound)

	err = s.Put(context.Background(), "e1", &domain.EndpointRecord{})
	assert.ErrorContains(t, err, "denied")
}

type recordingClient struct {
	put func(*dynamodb.PutItemInput)
}

func (c *recordingClient) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (c *recordingClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.put(in)
	return &dynamodb.PutItemOutput{}, nil
}
