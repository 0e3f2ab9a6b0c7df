// Package preview derives throwaway stylesheets for unsaved settings.
// Bursts of requests from one session are debounced and only the newest
// request is derived; older ones are answered with ErrSuperseded.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/menuforge/menuforge/pkg/css"
	"github.com/menuforge/menuforge/pkg/schema"
	"github.com/menuforge/menuforge/pkg/settings"
)

// ErrSuperseded is returned to a request replaced by a newer one from the
// same session.
var ErrSuperseded = errors.New("preview superseded by a newer request")

// Request is one preview submission. Candidate is untrusted.
type Request struct {
	Session    string
	Sequence   int64
	Candidate  map[string]any
	ReceivedAt time.Time
}

// Result is the stylesheet derived for a request.
type Result struct {
	Session  string        `json:"session"`
	Sequence int64         `json:"sequence"`
	CSS      string        `json:"css"`
	Checksum string        `json:"checksum"`
	Fallback bool          `json:"fallback"`
	Issues   schema.Issues `json:"issues,omitempty"`
}

// DocumentReader provides the persisted document previews are merged over.
type DocumentReader interface {
	Read(ctx context.Context) (settings.Document, error)
}

type outcome struct {
	res Result
	err error
}

type waiter struct {
	req  Request
	done chan outcome
}

// session tracks one client. At most one waiter is pending (debouncing)
// and at most one is in flight (deriving).
type session struct {
	latest   int64
	pending  *waiter
	inflight *waiter
	timer    *time.Timer
	lastSeen time.Time
}

// Coordinator debounces and derives previews per session.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[string]*session

	reader   DocumentReader
	schema   *schema.Schema
	generate func(settings.Document) (string, error)
	cfg      Config
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewCoordinator creates a Coordinator reading the base document from
// reader. A nil cfg selects the defaults.
func NewCoordinator(reader DocumentReader, sch *schema.Schema, cfg *Config, logger *slog.Logger) *Coordinator {
	if sch == nil {
		sch = schema.Builtin()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sessions: make(map[string]*session),
		reader:   reader,
		schema:   sch,
		generate: css.Generate,
		cfg:      *cfg,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Submit queues req and blocks until its result is ready, a newer request
// from the same session supersedes it, or ctx is done.
func (c *Coordinator) Submit(ctx context.Context, req Request) (Result, error) {
	w := &waiter{req: req, done: make(chan outcome, 1)}

	c.mu.Lock()
	s, ok := c.sessions[req.Session]
	if !ok {
		s = &session{}
		c.sessions[req.Session] = s
		activeSessions.Inc()
	}
	s.lastSeen = c.nowFunc()
	if req.Sequence <= s.latest {
		c.mu.Unlock()
		requests.WithLabelValues("superseded").Inc()
		return Result{}, ErrSuperseded
	}
	s.latest = req.Sequence
	c.release(s)
	s.pending = w
	s.timer = time.AfterFunc(c.cfg.Debounce, func() { c.dispatch(req.Session, w) })
	c.mu.Unlock()

	select {
	case o := <-w.done:
		if errors.Is(o.err, ErrSuperseded) {
			requests.WithLabelValues("superseded").Inc()
		}
		return o.res, o.err
	case <-ctx.Done():
		c.mu.Lock()
		if s.pending == w {
			s.timer.Stop()
			s.pending = nil
		}
		if s.inflight == w {
			s.inflight = nil
		}
		c.mu.Unlock()
		requests.WithLabelValues("cancelled").Inc()
		return Result{}, ctx.Err()
	}
}

// release answers the session's pending and in-flight waiters with
// ErrSuperseded. c.mu must be held.
func (c *Coordinator) release(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for _, w := range []*waiter{s.pending, s.inflight} {
		if w != nil {
			w.done <- outcome{err: ErrSuperseded}
		}
	}
	s.pending, s.inflight = nil, nil
}

func (c *Coordinator) dispatch(id string, w *waiter) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if !ok || s.pending != w {
		c.mu.Unlock()
		return
	}
	s.pending, s.inflight, s.timer = nil, w, nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	res := c.derive(ctx, w.req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if s.inflight != w {
		// Superseded or cancelled while deriving.
		derivations.WithLabelValues("discarded").Inc()
		return
	}
	s.inflight = nil
	w.done <- outcome{res: res}
	if res.Fallback {
		requests.WithLabelValues("fallback").Inc()
	} else {
		requests.WithLabelValues("completed").Inc()
	}
}

// derive merges the sanitized candidate over the persisted document and
// generates its stylesheet. It never fails: generation errors and panics
// produce the fallback stylesheet, built from the sanitized candidate alone.
func (c *Coordinator) derive(ctx context.Context, req Request) Result {
	clean, issues := c.schema.Sanitize(req.Candidate)

	base, err := c.reader.Read(ctx)
	var ierr *settings.IntegrityError
	if err != nil && !errors.As(err, &ierr) {
		c.logger.Warn("preview falling back to defaults", "session", req.Session, "error", err)
		base = settings.DefaultDocument(c.schema)
	}
	overrides := base.Overrides.Clone()
	for k, v := range clean {
		overrides[k] = v
	}
	doc := settings.NewDocument(c.schema, overrides, base.Version, c.nowFunc())

	res := Result{
		Session:  req.Session,
		Sequence: req.Sequence,
		Checksum: doc.Checksum,
		Issues:   issues,
	}
	out, err := c.safeGenerate(doc)
	if err != nil {
		c.logger.Warn("preview generation failed, serving fallback", "session", req.Session, "sequence", req.Sequence, "error", err)
		derivations.WithLabelValues("fallback").Inc()
		// Only what the editor submitted and passed sanitization.
		res.CSS = css.Fallback(clean)
		res.Fallback = true
		return res
	}
	derivations.WithLabelValues("ok").Inc()
	res.CSS = out
	return res
}

func (c *Coordinator) safeGenerate(doc settings.Document) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("stylesheet generation panicked: %v", p)
		}
	}()
	return c.generate(doc)
}

// Evict drops sessions idle since before now minus the session TTL that
// have nothing pending. It returns how many were dropped.
func (c *Coordinator) Evict(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, s := range c.sessions {
		if s.pending != nil || s.inflight != nil || now.Sub(s.lastSeen) < c.cfg.SessionTTL {
			continue
		}
		delete(c.sessions, id)
		n++
	}
	activeSessions.Sub(float64(n))
	return n
}

// Sessions returns the number of tracked sessions.
func (c *Coordinator) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Run evicts idle sessions periodically until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	interval := c.cfg.SessionTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Evict(c.nowFunc()); n > 0 {
				c.logger.Debug("evicted idle preview sessions", "count", n)
			}
		}
	}
}
