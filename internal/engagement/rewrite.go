package engagement

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(`https?://[^\s]+`)

// OpenURL is the open-tracking pixel address for one message.
func OpenURL(baseURL, messageID, endpointID string) string {
	return fmt.Sprintf("%s/track/open/%s/%s", strings.TrimRight(baseURL, "/"), messageID, endpointID)
}

// ClickURL is the click-tracking redirect address for target.
func ClickURL(baseURL, messageID, endpointID, target string) string {
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s",
		strings.TrimRight(baseURL, "/"), messageID, endpointID, url.QueryEscape(target))
}

// TrackLinks wraps every http(s) URL in body with an anchor pointing at the
// click-tracking redirect. Matching is textual: URLs that already sit inside
// an href attribute are rewritten too.
func TrackLinks(body, baseURL, messageID, endpointID string) string {
	return linkPattern.ReplaceAllStringFunc(body, func(target string) string {
		return fmt.Sprintf(`<a href="%s">%s</a>`, ClickURL(baseURL, messageID, endpointID, target), target)
	})
}

// PixelTag returns the zero-size open-tracking image for one message.
func PixelTag(baseURL, messageID, endpointID string) string {
	return fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none;" alt="" />`,
		OpenURL(baseURL, messageID, endpointID))
}

// Rewrite applies TrackLinks to body and appends exactly one PixelTag.
func Rewrite(body, baseURL, messageID, endpointID string) string {
	return TrackLinks(body, baseURL, messageID, endpointID) + PixelTag(baseURL, messageID, endpointID)
}
