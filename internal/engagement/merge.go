package engagement

import (
	"time"

	"github.com/ignite/contact-mailer/internal/domain"
)

// TimestampLayout is the format of every date attribute written by a merge.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t the way date attributes are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// base returns a deep copy of current, or a zero record when current is nil.
// Unrelated attributes and metrics are carried forward unchanged.
func base(current *domain.EndpointRecord, endpointID string) *domain.EndpointRecord {
	var next *domain.EndpointRecord
	if current == nil {
		next = &domain.EndpointRecord{
			Attributes: domain.Attributes{},
			Metrics: domain.Metrics{
				domain.MetricEmailsSent: 0,
				domain.MetricOpens:      0,
				domain.MetricClicks:     0,
			},
		}
	} else {
		next = current.Clone()
	}
	if next.EndpointID == "" {
		next.EndpointID = endpointID
	}
	next.ChannelType = domain.ChannelEmail
	return next
}

// appendValue returns a fresh slice holding values followed by v.
func appendValue(values []string, v string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, values...)
	return append(out, v)
}

// MergeOnSend returns the record that results from sending evt to the
// endpoint whose current record is current (nil when not found).
// messageIds is replaced with the new message id, not appended to.
func MergeOnSend(current *domain.EndpointRecord, evt domain.SendEvent, now time.Time) *domain.EndpointRecord {
	next := base(current, evt.EndpointID)
	next.Address = evt.Email
	next.Metrics[domain.MetricEmailsSent] = next.Metrics.Get(domain.MetricEmailsSent) + 1
	next.Attributes[domain.AttrName] = []string{evt.Name}
	next.Attributes[domain.AttrLastEmailDate] = []string{FormatTimestamp(now)}
	next.Attributes[domain.AttrMessageIDs] = []string{evt.MessageID}
	return next
}

// MergeOnOpen records one open of messageID.
func MergeOnOpen(current *domain.EndpointRecord, endpointID, messageID string, now time.Time) *domain.EndpointRecord {
	next := base(current, endpointID)
	next.Metrics[domain.MetricOpens] = next.Metrics.Get(domain.MetricOpens) + 1
	next.Attributes[domain.AttrLastOpenDate] = []string{FormatTimestamp(now)}
	next.Attributes[domain.AttrOpenedMessageIDs] = appendValue(next.Attributes.Get(domain.AttrOpenedMessageIDs), messageID)
	return next
}

// MergeOnClick records one click on url inside messageID. Neither the
// message id nor the url is deduplicated.
func MergeOnClick(current *domain.EndpointRecord, endpointID, messageID, url string, now time.Time) *domain.EndpointRecord {
	next := base(current, endpointID)
	next.Metrics[domain.MetricClicks] = next.Metrics.Get(domain.MetricClicks) + 1
	next.Attributes[domain.AttrLastClickDate] = []string{FormatTimestamp(now)}
	next.Attributes[domain.AttrClickedMessageIDs] = appendValue(next.Attributes.Get(domain.AttrClickedMessageIDs), messageID)
	next.Attributes[domain.AttrClickedURLs] = appendValue(next.Attributes.Get(domain.AttrClickedURLs), url)
	return next
}
