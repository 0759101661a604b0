package domain

import "time"

// EngagementEventType enumerates the events that update an endpoint record.
type EngagementEventType string

const (
	EventSend  EngagementEventType = "send"
	EventOpen  EngagementEventType = "open"
	EventClick EngagementEventType = "click"
)

// SendEvent describes one contact-form submission. It is never persisted on
// its own; MessageID only lands in the endpoint's messageIds attribute and in
// the tracking URLs of the sent message.
type SendEvent struct {
	MessageID  string    `json:"messageId"`
	EndpointID string    `json:"endpointId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
