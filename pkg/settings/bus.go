package settings

import (
	"context"
	"log/slog"
	"sync"
)

// Change describes one successful write.
type Change struct {
	Old    Document
	New    Document
	Reason string
	Actor  string
}

// ChangeListener is notified after a write has been persisted.
type ChangeListener interface {
	OnSettingsChanged(ctx context.Context, change Change)
}

// ChangeListenerFunc adapts a function to ChangeListener.
type ChangeListenerFunc func(ctx context.Context, change Change)

func (f ChangeListenerFunc) OnSettingsChanged(ctx context.Context, change Change) {
	f(ctx, change)
}

// Bus fans a change out to its listeners synchronously, in subscription
// order. A panicking listener is logged and does not affect the others.
type Bus struct {
	mu        sync.RWMutex
	listeners []ChangeListener
	logger    *slog.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe adds a listener.
func (b *Bus) Subscribe(l ChangeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish delivers change to every listener.
func (b *Bus) Publish(ctx context.Context, change Change) {
	b.mu.RLock()
	listeners := make([]ChangeListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		b.deliver(ctx, l, change)
	}
}

func (b *Bus) deliver(ctx context.Context, l ChangeListener, change Change) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("settings change listener panicked", "panic", r, "reason", change.Reason)
		}
	}()
	l.OnSettingsChanged(ctx, change)
}
