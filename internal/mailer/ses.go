package mailer

import (
	"context"
	"errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

// SESClient is the subset of the SES v2 API the dispatcher calls.
type SESClient interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESDispatcher sends mail through the SES v2 API.
type SESDispatcher struct {
	client           SESClient
	configurationSet string
}

// NewSESDispatcher creates an SES dispatcher. configurationSet may be empty.
func NewSESDispatcher(client SESClient, configurationSet string) *SESDispatcher {
	return &SESDispatcher{client: client, configurationSet: configurationSet}
}

// NewSESDispatcherFromConfig builds the SES client from cfg.
func NewSESDispatcherFromConfig(cfg aws.Config, configurationSet string) *SESDispatcher {
	return NewSESDispatcher(sesv2.NewFromConfig(cfg), configurationSet)
}

func (d *SESDispatcher) Name() string { return "ses" }

// Send delivers env through SES. Envelope headers become message headers,
// and the message and endpoint ids are also attached as tags.
func (d *SESDispatcher) Send(ctx context.Context, env domain.Envelope) (string, error) {
	if d.client == nil {
		return "", deliveryError("ses send", errors.New("SES client not initialized"))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination:      &types.Destination{ToAddresses: []string{env.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(env.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(env.HTML), Charset: aws.String("UTF-8")},
				},
				Headers: messageHeaders(env.Headers),
			},
		},
	}
	if d.configurationSet != "" {
		input.ConfigurationSetName = aws.String(d.configurationSet)
	}
	if id := env.Headers[domain.HeaderMessageID]; id != "" {
		input.EmailTags = append(input.EmailTags, types.MessageTag{Name: aws.String("message_id"), Value: aws.String(id)})
	}
	if id := env.Headers[domain.HeaderEndpointID]; id != "" {
		input.EmailTags = append(input.EmailTags, types.MessageTag{Name: aws.String("endpoint_id"), Value: aws.String(id)})
	}

	result, err := d.client.SendEmail(ctx, input)
	if err != nil {
		return "", deliveryError("ses send", err)
	}

	messageID := aws.ToString(result.MessageId)
	logger.Debug("ses message accepted", "recipient", env.To, "ses_message_id", messageID)
	return messageID, nil
}

func messageHeaders(h map[string]string) []types.MessageHeader {
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.MessageHeader, 0, len(names))
	for _, name := range names {
		out = append(out, types.MessageHeader{Name: aws.String(name), Value: aws.String(h[name])})
	}
	return out
}
