package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contact-mailer/internal/domain"
)

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func testEnvelope() domain.Envelope {
	return domain.Envelope{
		From:    "noreply@example.org",
		To:      "ada@example.com",
		Subject: "Hi",
		HTML:    "<p>hello</p>",
		Headers: map[string]string{
			domain.HeaderMessageID:  "m1",
			domain.HeaderEndpointID: "e1",
		},
	}
}

func TestSESDispatcher_Send(t *testing.T) {
	client := &fakeSES{}
	d := NewSESDispatcher(client, "tracking")

	id, err := d.Send(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
	assert.Equal(t, "ses", d.Name())

	in := client.in
	require.NotNil(t, in)
	assert.Equal(t, "noreply@example.org", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ada@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "tracking", aws.ToString(in.ConfigurationSetName))
	assert.Equal(t, "Hi", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>hello</p>", aws.ToString(in.Content.Simple.Body.Html.Data))

	headers := in.Content.Simple.Headers
	require.Len(t, headers, 2)
	assert.Equal(t, domain.HeaderEndpointID, aws.ToString(headers[0].Name))
	assert.Equal(t, "e1", aws.ToString(headers[0].Value))
	assert.Equal(t, domain.HeaderMessageID, aws.ToString(headers[1].Name))
	assert.Len(t, in.EmailTags, 2)
}

func TestSESDispatcher_NoConfigurationSet(t *testing.T) {
	client := &fakeSES{}
	_, err := NewSESDispatcher(client, "").Send(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.Nil(t, client.in.ConfigurationSetName)
}

func TestSESDispatcher_Error(t *testing.T) {
	boom := errors.New("MessageRejected: Email address is not verified")
	_, err := NewSESDispatcher(&fakeSES{err: boom}, "").Send(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "not verified")
}

func TestSESDispatcher_NilClient(t *testing.T) {
	_, err := NewSESDispatcher(nil, "").Send(context.Background(), testEnvelope())
	assert.ErrorIs(t, err, ErrDelivery)
}
