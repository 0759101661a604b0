package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/pkg/httputil"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

// 1x1 transparent GIF; the graphic control extension marks palette index 0
// as transparent.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x01, 0x44,
	0x00, 0x3b,
}

// HandleOpen counts an open and serves the pixel. The pixel is served even
// when the store update fails.
//
//	GET /track/open/{messageId}/{endpointId}
func (h *Handlers) HandleOpen(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	endpointID := chi.URLParam(r, "endpointId")

	ctx, cancel := h.callContext(r.Context())
	defer cancel()

	if _, err := h.svc.RecordOpen(ctx, endpointID, messageID); err != nil {
		h.metrics.StoreError(string(domain.EventOpen))
		logger.Error("track open failed", "message_id", messageID, "endpoint_id", endpointID, "error", err)
	} else {
		h.metrics.Event(string(domain.EventOpen))
	}
	servePixel(w)
}

// HandleClick counts a click and redirects to the url query parameter.
//
//	GET /track/click/{messageId}/{endpointId}?url=
func (h *Handlers) HandleClick(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	endpointID := chi.URLParam(r, "endpointId")

	target := r.URL.Query().Get("url")
	if target == "" {
		httputil.BadRequest(w, "Missing URL parameter")
		return
	}
	if !redirectable(target) {
		httputil.BadRequest(w, "Invalid URL parameter")
		return
	}

	ctx, cancel := h.callContext(r.Context())
	defer cancel()

	if _, err := h.svc.RecordClick(ctx, endpointID, messageID, target); err != nil {
		h.metrics.StoreError(string(domain.EventClick))
		if !h.redirectOnError {
			writeEngagementError(w, "Failed to track click", err)
			return
		}
		logger.Error("track click failed, redirecting anyway", "message_id", messageID, "endpoint_id", endpointID, "error", err)
	} else {
		h.metrics.Event(string(domain.EventClick))
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// redirectable accepts absolute http and https URLs only.
func redirectable(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}
