// Package httputil provides the JSON response helpers shared by every
// handler, so error envelopes and content types stay consistent.
package httputil
