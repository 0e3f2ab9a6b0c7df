package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotModified(t *testing.T) {
	modified := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"NoHeaders", nil, false},
		{"MatchingETag", map[string]string{"If-None-Match": `"abc"`}, true},
		{"WeakMatchingETag", map[string]string{"If-None-Match": `W/"abc"`}, true},
		{"ListContainingETag", map[string]string{"If-None-Match": `"x", "abc"`}, true},
		{"Wildcard", map[string]string{"If-None-Match": `*`}, true},
		{"StaleETag", map[string]string{"If-None-Match": `"old"`}, false},
		{"ETagWinsOverDate", map[string]string{"If-None-Match": `"old"`, "If-Modified-Since": modified.Format(http.TimeFormat)}, false},
		{"ModifiedSinceSameSecond", map[string]string{"If-Modified-Since": modified.Format(http.TimeFormat)}, true},
		{"ModifiedSinceEarlier", map[string]string{"If-Modified-Since": modified.Add(-time.Minute).Format(http.TimeFormat)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/styles.css", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, NotModified(r, "abc", modified))
		})
	}
}

func TestServeEntry(t *testing.T) {
	e := Entry{Value: []byte("body{}"), ETag: "abc", LastModified: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}

	r := httptest.NewRequest(http.MethodGet, "/styles.css", nil)
	w := httptest.NewRecorder()
	ServeEntry(w, r, e, "text/css; charset=utf-8", false, time.Minute)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"abc"`, w.Header().Get("ETag"))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "private, max-age=60, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "body{}", w.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/styles.css", nil)
	r.Header.Set("If-None-Match", `"abc"`)
	w = httptest.NewRecorder()
	ServeEntry(w, r, e, "text/css; charset=utf-8", true, time.Minute)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Empty(t, w.Body.String())
}
