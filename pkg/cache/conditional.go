package cache

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// QuoteETag formats a checksum as a strong entity tag.
func QuoteETag(tag string) string {
	return `"` + tag + `"`
}

// NotModified reports whether the request's conditional headers match the
// given entity tag or modification time. If-None-Match takes precedence over
// If-Modified-Since.
func NotModified(r *http.Request, etag string, lastModified time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		for _, candidate := range strings.Split(inm, ",") {
			candidate = strings.TrimSpace(candidate)
			candidate = strings.TrimPrefix(candidate, "W/")
			if candidate == "*" || candidate == QuoteETag(etag) {
				return true
			}
		}
		return false
	}
	if ims := r.Header.Get("If-Modified-Since"); ims != "" && !lastModified.IsZero() {
		t, err := http.ParseTime(ims)
		if err == nil && !lastModified.Truncate(time.Second).After(t) {
			return true
		}
	}
	return false
}

// SetValidators writes ETag, Last-Modified and Cache-Control headers.
func SetValidators(w http.ResponseWriter, etag string, lastModified time.Time, maxAge time.Duration) {
	h := w.Header()
	h.Set("ETag", QuoteETag(etag))
	if !lastModified.IsZero() {
		h.Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}
	h.Set("Cache-Control", fmt.Sprintf("private, max-age=%d, must-revalidate", int(maxAge.Seconds())))
}

// ServeEntry writes e as the response body, answering 304 when the client
// already holds it. The X-Cache header reports whether e came from the
// cache.
func ServeEntry(w http.ResponseWriter, r *http.Request, e Entry, contentType string, hit bool, maxAge time.Duration) {
	SetValidators(w, e.ETag, e.LastModified, maxAge)
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if NotModified(r, e.ETag, e.LastModified) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(e.Value)
	}
}
