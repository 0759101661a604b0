package pinpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

type fakeClient struct {
	getOut    *pinpoint.GetEndpointOutput
	getErr    error
	updateErr error

	getIn    *pinpoint.GetEndpointInput
	updateIn *pinpoint.UpdateEndpointInput
}

func (f *fakeClient) GetEndpoint(_ context.Context, in *pinpoint.GetEndpointInput, _ ...func(*pinpoint.Options)) (*pinpoint.GetEndpointOutput, error) {
	f.getIn = in
	return f.getOut, f.getErr
}

func (f *fakeClient) UpdateEndpoint(_ context.Context, in *pinpoint.UpdateEndpointInput, _ ...func(*pinpoint.Options)) (*pinpoint.UpdateEndpointOutput, error) {
	f.updateIn = in
	return &pinpoint.UpdateEndpointOutput{}, f.updateErr
}

func TestStore_GetMapsResponse(t *testing.T) {
	fc := &fakeClient{getOut: &pinpoint.GetEndpointOutput{
		EndpointResponse: &types.EndpointResponse{
			Address:       aws.String("a@example.com"),
			ChannelType:   types.ChannelTypeEmail,
			Attributes:    map[string][]string{domain.AttrName: {"Ada"}},
			Metrics:       map[string]float64{domain.MetricEmailsSent: 2},
			EffectiveDate: aws.String("2026-03-14T15:09:26Z"),
		},
	}}
	s := New(fc, "proj-1")

	rec, err := s.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", aws.ToString(fc.getIn.ApplicationId))
	assert.Equal(t, "e1", aws.ToString(fc.getIn.EndpointId))
	assert.Equal(t, "e1", rec.EndpointID)
	assert.Equal(t, "a@example.com", rec.Address)
	assert.Equal(t, domain.ChannelEmail, rec.ChannelType)
	assert.Equal(t, "Ada", rec.Attributes.First(domain.AttrName))
	assert.Equal(t, 2.0, rec.Metrics.Get(domain.MetricEmailsSent))
	assert.Equal(t, 2026, rec.LastUpdated.Year())
}

func TestStore_GetNotFound(t *testing.T) {
	s := New(&fakeClient{getErr: &types.NotFoundException{Message: aws.String("no such endpoint")}}, "proj-1")
	_, err := s.Get(context.Background(), "e1")
	assert.ErrorIs(t, err, engagement.ErrNotFound)
}

func TestStore_GetOtherError(t *testing.T) {
	boom := errors.New("throttled")
	s := New(&fakeClient{getErr: boom}, "proj-1")
	_, err := s.Get(context.Background(), "e1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, engagement.ErrNotFound)
}

func TestStore_PutSendsWholeRecord(t *testing.T) {
	fc := &fakeClient{}
	s := New(fc, "proj-1")
	rec := &domain.EndpointRecord{
		Address:    "a@example.com",
		Attributes: domain.Attributes{domain.AttrMessageIDs: {"m1"}},
		Metrics:    domain.Metrics{domain.MetricOpens: 3},
	}

	require.NoError(t, s.Put(context.Background(), "e1", rec))
	require.NotNil(t, fc.updateIn)
	assert.Equal(t, "e1", aws.ToString(fc.updateIn.EndpointId))
	req := fc.updateIn.EndpointRequest
	assert.Equal(t, types.ChannelTypeEmail, req.ChannelType)
	assert.Equal(t, "a@example.com", aws.ToString(req.Address))
	assert.Equal(t, []string{"m1"}, req.Attributes[domain.AttrMessageIDs])
	assert.Equal(t, 3.0, req.Metrics[domain.MetricOpens])

	req.Attributes[domain.AttrMessageIDs][0] = "changed"
	assert.Equal(t, "m1", rec.Attributes.First(domain.AttrMessageIDs), "request must not alias the record")
}

func TestStore_PutError(t *testing.T) {
	s := New(&fakeClient{updateErr: errors.New("denied")}, "proj-1")
	err := s.Put(context.Background(), "e1", &domain.EndpointRecord{Address: "a@example.com"})
	assert.ErrorContains(t, err, "denied")
}

func TestStore_WithService(t *testing.T) {
	fc := &fakeClient{getErr: &types.NotFoundException{}}
	svc := engagement.NewService(New(fc, "proj-1"))

	rec, err := svc.RecordOpen(context.Background(), "e1", "m1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Metrics.Get(domain.MetricOpens))
	assert.Equal(t, []string{"m1"}, fc.updateIn.EndpointRequest.Attributes[domain.AttrOpenedMessageIDs])
}

func TestStore_PutOmitsEmptyAddress(t *testing.T) {
	fc := &fakeClient{getErr: &types.NotFoundException{}}
	svc := engagement.NewService(New(fc, "proj-1"))

	_, err := svc.RecordClick(context.Background(), "e1", "m1", "https://example.com")
	require.NoError(t, err)
	require.NotNil(t, fc.updateIn)
	assert.Nil(t, fc.updateIn.EndpointRequest.Address)
	assert.Equal(t, types.ChannelTypeEmail, fc.updateIn.EndpointRequest.ChannelType)
}
