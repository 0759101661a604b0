package domain

import "time"

// ChannelType selects the delivery semantics the endpoint store applies to
// an endpoint. This service only ever writes EMAIL endpoints.
type ChannelType string

const (
	ChannelEmail  ChannelType = "EMAIL"
	ChannelCustom ChannelType = "CUSTOM"
)

// Recognized attribute keys. Attributes not listed here are carried through
// every merge untouched.
const (
	AttrName              = "name"
	AttrLastEmailDate     = "lastEmailDate"
	AttrMessageIDs        = "messageIds"
	AttrLastOpenDate      = "lastOpenDate"
	AttrOpenedMessageIDs  = "openedMessageIds"
	AttrLastClickDate     = "lastClickDate"
	AttrClickedMessageIDs = "clickedMessageIds"
	AttrClickedURLs       = "clickedUrls"
)

// Recognized metric keys.
const (
	MetricEmailsSent = "emailsSent"
	MetricOpens      = "opens"
	MetricClicks     = "clicks"
)

// Attributes maps an attribute name to its ordered values. Every attribute is
// multi-valued; a write replaces the whole slice for a key.
type Attributes map[string][]string

// Get returns the values stored under key, or nil.
func (a Attributes) Get(key string) []string {
	if a == nil {
		return nil
	}
	return a[key]
}

// First returns the first value stored under key, or "".
func (a Attributes) First(key string) string {
	if v := a.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Clone returns a deep copy; the result never shares slices with a.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Metrics maps a metric name to its counter value.
type Metrics map[string]float64

// Get returns the counter for key; missing counters read as zero.
func (m Metrics) Get(key string) float64 {
	if m == nil {
		return 0
	}
	return m[key]
}

// Clone returns a copy of m.
func (m Metrics) Clone() Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EndpointRecord is the endpoint store's knowledge of one recipient.
type EndpointRecord struct {
	EndpointID  string      `json:"endpointId"`
	Address     string      `json:"address"`
	ChannelType ChannelType `json:"channelType"`
	Attributes  Attributes  `json:"attributes"`
	Metrics     Metrics     `json:"metrics"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

// Clone returns a deep copy of r.
func (r *EndpointRecord) Clone() *EndpointRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Attributes = r.Attributes.Clone()
	cp.Metrics = r.Metrics.Clone()
	return &cp
}
