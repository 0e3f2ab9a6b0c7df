// Package ratelimit applies per-identity request budgets to classes of
// endpoints using a sliding-window log.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Class groups endpoints sharing one budget.
type Class string

const (
	ClassRead     Class = "read"
	ClassWrite    Class = "write"
	ClassPreview  Class = "preview"
	ClassBackup   Class = "backup"
	ClassTransfer Class = "transfer"
)

// Classes lists every known class.
var Classes = []Class{ClassRead, ClassWrite, ClassPreview, ClassBackup, ClassTransfer}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least one.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// sweepEvery is how many checks pass between sweeps of idle keys.
const sweepEvery = 1024

// Limiter tracks request timestamps per (class, identity).
type Limiter struct {
	mu     sync.Mutex
	logs   map[string][]time.Time
	limits map[Class]int
	window time.Duration
	checks int
}

// NewLimiter creates a Limiter from cfg. A nil cfg selects the defaults.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	limits := make(map[Class]int, len(cfg.Limits))
	for c, n := range cfg.Limits {
		limits[c] = n
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		logs:   make(map[string][]time.Time),
		limits: limits,
		window: window,
	}
}

// Limit returns the budget of class per window. Zero means unlimited.
func (l *Limiter) Limit(class Class) int {
	return l.limits[class]
}

// Check records a request by identity against class and reports whether
// it is within budget. Denied requests are not recorded.
func (l *Limiter) Check(class Class, identity string) Decision {
	return l.checkAt(class, identity, time.Now())
}

// checkAt is the testable core of Check.
func (l *Limiter) checkAt(class Class, identity string, now time.Time) Decision {
	limit := l.limits[class]
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	key := string(class) + "|" + identity

	l.mu.Lock()
	defer l.mu.Unlock()

	l.checks++
	if l.checks%sweepEvery == 0 {
		l.sweep(now)
	}

	log := trim(l.logs[key], now.Add(-l.window))
	if len(log) >= limit {
		l.logs[key] = log
		denials.WithLabelValues(string(class)).Inc()
		return Decision{
			Limit:      limit,
			RetryAfter: log[0].Add(l.window).Sub(now),
		}
	}
	log = append(log, now)
	l.logs[key] = log
	return Decision{Allowed: true, Limit: limit, Remaining: limit - len(log)}
}

// trim drops timestamps at or before cutoff. log is sorted ascending.
func trim(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}

func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	for k, log := range l.logs {
		if len(trim(log, cutoff)) == 0 {
			delete(l.logs, k)
		}
	}
}

// Reset forgets every recorded request.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = make(map[string][]time.Time)
}
