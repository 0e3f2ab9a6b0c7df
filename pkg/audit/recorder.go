package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/menuforge/menuforge/pkg/authz"
)

// Recorder writes security events without ever failing the caller.
type Recorder struct {
	store   *Store
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewRecorder creates a Recorder. A nil store makes every Record a no-op.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an event. The actor and request id are taken from ctx
// when present. Storage errors and panics are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, eventType, severity string, details map[string]any) {
	if r == nil || r.store == nil {
		return
	}
	ev := &SecurityEvent{
		EventType: eventType,
		Severity:  severity,
		Details:   details,
	}
	if id, ok := authz.IdentityFromContext(ctx); ok {
		ev.Actor = id.User
	}
	ev.RequestID = middleware.GetReqID(ctx)
	r.append(ctx, ev)
}

func (r *Recorder) append(ctx context.Context, ev *SecurityEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("security event recorder panicked", "panic", fmt.Sprint(p), "event_type", ev.EventType)
		}
	}()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.nowFunc()
	}
	// The request may already be cancelled; the event must still land.
	if err := r.store.Append(context.WithoutCancel(ctx), ev); err != nil {
		r.logger.Error("failed to write security event", "error", err, "event_type", ev.EventType, "request_id", ev.RequestID)
		return
	}
	recorded.WithLabelValues(ev.EventType, ev.Severity).Inc()
}
