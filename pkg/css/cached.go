package css

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/menuforge/menuforge/pkg/cache"
	"github.com/menuforge/menuforge/pkg/settings"
)

// Artifact names a derived artifact family member.
type Artifact string

const (
	ArtifactCSS    Artifact = "css"
	ArtifactCSSMin Artifact = "css.min"
)

// Artifacts lists every artifact derived per checksum.
var Artifacts = []Artifact{ArtifactCSS, ArtifactCSSMin}

// Key returns the cache key of artifact derived from checksum.
func Key(checksum string, artifact Artifact) string {
	return checksum + "/" + string(artifact)
}

// CachedGenerator memoizes stylesheets by document checksum. It subscribes
// to settings changes and drops every artifact of the replaced checksum.
type CachedGenerator struct {
	cache    *cache.Store
	ttl      time.Duration
	group    singleflight.Group
	generate func(settings.Document) (string, error)
	logger   *slog.Logger
}

// NewCachedGenerator creates a CachedGenerator. A nil store disables
// memoization: every call generates.
func NewCachedGenerator(store *cache.Store, ttl time.Duration, logger *slog.Logger) *CachedGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGenerator{
		cache:    store,
		ttl:      ttl,
		generate: Generate,
		logger:   logger,
	}
}

// GenerateCached returns the artifact for doc, generating and storing it on
// a miss. Concurrent misses for the same key share one generation. The
// boolean result reports a cache hit.
func (g *CachedGenerator) GenerateCached(ctx context.Context, doc settings.Document, artifact Artifact) (cache.Entry, bool, error) {
	key := Key(doc.Checksum, artifact)
	if g.cache != nil {
		if e, ok := g.cache.Get(key); ok {
			return e, true, nil
		}
	}

	res, err, _ := g.group.Do(key, func() (any, error) {
		if g.cache != nil {
			// Another caller may have filled the key while we waited.
			if e, ok := g.cache.Get(key); ok {
				return e, nil
			}
		}
		body, err := g.derive(doc, artifact)
		if err != nil {
			return nil, err
		}
		e := cache.Entry{Key: key, Value: []byte(body), ETag: doc.Checksum, LastModified: doc.UpdatedAt}
		if g.cache != nil {
			e = g.cache.Set(key, e.Value, e.ETag, e.LastModified, g.ttl)
		}
		return e, nil
	})
	if err != nil {
		return cache.Entry{}, false, err
	}
	e, ok := res.(cache.Entry)
	if !ok {
		return cache.Entry{}, false, fmt.Errorf("unexpected type from generation group: %T", res)
	}
	return e, false, nil
}

func (g *CachedGenerator) derive(doc settings.Document, artifact Artifact) (string, error) {
	start := time.Now()
	body, err := g.generate(doc)
	if err == nil && artifact == ArtifactCSSMin {
		body = Minify(body)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	generations.WithLabelValues(string(artifact), outcome).Inc()
	generationDuration.WithLabelValues(string(artifact)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("generate %s for %s: %w", artifact, doc.Checksum, err)
	}
	return body, nil
}

// OnSettingsChanged drops the artifacts derived from the previous checksum.
func (g *CachedGenerator) OnSettingsChanged(_ context.Context, change settings.Change) {
	if g.cache == nil || change.Old.Checksum == change.New.Checksum {
		return
	}
	n := g.cache.InvalidatePrefix(change.Old.Checksum + "/")
	g.logger.Debug("invalidated stylesheet cache", "checksum", change.Old.Checksum, "entries", n, "reason", change.Reason)
}
