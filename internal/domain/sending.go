package domain

// Header names stamped on every outgoing message so that bounces and replies
// can be correlated back to the send.
const (
	HeaderMessageID  = "X-Message-ID"
	HeaderEndpointID = "X-Endpoint-ID"
)

// Envelope is the fully rendered message handed to a mail dispatcher.
// By the time a message reaches this struct, link rewriting and pixel
// injection are complete.
type Envelope struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Headers map[string]string `json:"headers,omitempty"`
}
