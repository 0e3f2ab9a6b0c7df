package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/menuforge/menuforge/pkg/kv"
	"github.com/menuforge/menuforge/pkg/schema"
)

// DocumentKey is the key-value key the document is stored under.
const DocumentKey = "settings/document"

// SnapshotInfo labels a pre-write snapshot.
type SnapshotInfo struct {
	Reason string
	Actor  string
	Note   string
}

// Snapshotter captures the live document before it is overwritten and
// provides the most recent snapshot that still verifies.
type Snapshotter interface {
	SnapshotBeforeWrite(ctx context.Context, current Document, info SnapshotInfo) error
	LastVerified(ctx context.Context) (*Document, error)
}

// Store is the single writer of the settings document.
type Store struct {
	mu        sync.Mutex
	kv        kv.Store
	schema    *schema.Schema
	bus       *Bus
	snapshots Snapshotter
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBus sets the change bus writes are published on.
func WithBus(b *Bus) StoreOption {
	return func(s *Store) { s.bus = b }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.nowFunc = now }
}

// NewStore creates a Store over kv using the given schema. A nil schema
// selects the built-in one.
func NewStore(store kv.Store, sch *schema.Schema, opts ...StoreOption) *Store {
	if sch == nil {
		sch = schema.Builtin()
	}
	s := &Store{
		kv:      store,
		schema:  sch,
		logger:  slog.Default(),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = NewBus(s.logger)
	}
	return s
}

// SetSnapshotter installs the pre-write snapshot hook. It is set after
// construction because the backup manager itself depends on the store.
func (s *Store) SetSnapshotter(sn Snapshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = sn
}

// Schema returns the schema the store validates against.
func (s *Store) Schema() *schema.Schema { return s.schema }

// Bus returns the change bus.
func (s *Store) Bus() *Bus { return s.bus }

// Read returns the current document. If the persisted document fails its
// checksum, Read returns the last verified snapshot (or the defaults) and an
// *IntegrityError. Callers may serve the returned document in that case.
func (s *Store) Read(ctx context.Context) (Document, error) {
	raw, err := s.kv.Get(ctx, DocumentKey)
	if errors.Is(err, kv.ErrNotFound) {
		return DefaultDocument(s.schema), nil
	}
	if err != nil {
		return Document{}, &StorageError{Op: "read", Err: err}
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return s.recover(ctx, &IntegrityError{Cause: fmt.Errorf("decode stored document: %w", err)})
	}
	actual, err := ChecksumRaw(rec.Values)
	if err != nil {
		return s.recover(ctx, &IntegrityError{Cause: fmt.Errorf("hash stored document: %w", err), StoredVersion: rec.Version})
	}
	if actual != rec.Checksum {
		return s.recover(ctx, &IntegrityError{Expected: rec.Checksum, Actual: actual, StoredVersion: rec.Version})
	}

	overrides, issues := s.schema.Sanitize(rec.Values)
	if len(issues) > 0 {
		s.logger.Warn("stored settings no longer match the schema", "issues", len(issues))
	}
	return NewDocument(s.schema, overrides, rec.Version, rec.UpdatedAt), nil
}

func (s *Store) recover(ctx context.Context, ierr *IntegrityError) (Document, error) {
	ierr.Fallback = "defaults"
	doc := DefaultDocument(s.schema)
	if s.snapshots != nil {
		good, err := s.snapshots.LastVerified(ctx)
		switch {
		case err != nil:
			s.logger.Error("loading last verified backup failed", "error", err)
		case good != nil:
			doc = *good
			ierr.Fallback = "backup"
		}
	}
	s.logger.Error("settings integrity check failed", "error", ierr, "fallback", ierr.Fallback)
	return doc, ierr
}

type writeOptions struct {
	replace        bool
	reason         string
	actor          string
	snapshotReason string
	snapshotNote   string
}

// WriteOption modifies a single Write call.
type WriteOption func(*writeOptions)

// Replace makes the candidate the complete set of overrides instead of
// merging it into the current ones.
func Replace() WriteOption {
	return func(o *writeOptions) { o.replace = true }
}

// Snapshot labels the pre-write backup of this write. By default it
// carries the write reason and no note.
func Snapshot(reason, note string) WriteOption {
	return func(o *writeOptions) {
		o.snapshotReason = reason
		o.snapshotNote = note
	}
}

// Reason labels the write in backups and change events.
func Reason(r string) WriteOption {
	return func(o *writeOptions) { o.reason = r }
}

// Actor records who performed the write.
func Actor(a string) WriteOption {
	return func(o *writeOptions) { o.actor = a }
}

// Write sanitizes candidate and persists it. If sanitization drops any
// value the write is rejected with a *schema.ValidationError and storage is
// not touched. Otherwise the current document is snapshotted, the new
// document is persisted with the next version and the change is published.
// Non-fatal issues are returned alongside the new document.
func (s *Store) Write(ctx context.Context, candidate map[string]any, opts ...WriteOption) (Document, schema.Issues, error) {
	o := writeOptions{reason: "update"}
	for _, opt := range opts {
		opt(&o)
	}

	clean, issues := s.schema.Sanitize(candidate)
	if issues.Fatal() {
		return Document{}, issues, &schema.ValidationError{Issues: issues}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Read(ctx)
	var ierr *IntegrityError
	if err != nil && !errors.As(err, &ierr) {
		return Document{}, issues, err
	}
	// A corrupt stored document is replaced by this write. The version keeps
	// counting from whichever is higher: the corrupt record or the fallback.
	base := current.Version
	if ierr != nil && ierr.StoredVersion > base {
		base = ierr.StoredVersion
	}

	overrides := clean
	if !o.replace {
		overrides = current.Overrides.Clone()
		for k, v := range clean {
			overrides[k] = v
		}
	}

	if s.snapshots != nil && current.Version > 0 && ierr == nil {
		info := SnapshotInfo{Reason: o.reason, Actor: o.actor, Note: o.snapshotNote}
		if o.snapshotReason != "" {
			info.Reason = o.snapshotReason
		}
		if err := s.snapshots.SnapshotBeforeWrite(ctx, current, info); err != nil {
			return Document{}, issues, &StorageError{Op: "snapshot", Err: err}
		}
	}

	next := NewDocument(s.schema, overrides, base+1, s.nowFunc())
	b, err := json.Marshal(record{
		Version:   next.Version,
		Checksum:  next.Checksum,
		UpdatedAt: next.UpdatedAt,
		Values:    next.Overrides.Raw(),
	})
	if err != nil {
		return Document{}, issues, &StorageError{Op: "encode", Err: err}
	}
	if err := s.kv.Put(ctx, DocumentKey, b); err != nil {
		return Document{}, issues, &StorageError{Op: "persist", Err: err}
	}

	s.logger.Info("settings written",
		"version", next.Version,
		"checksum", next.Checksum,
		"reason", o.reason,
		"actor", o.actor,
		"warnings", len(issues.Only(schema.SeverityWarning, schema.SeveritySecurity)),
	)
	s.bus.Publish(ctx, Change{Old: current, New: next, Reason: o.reason, Actor: o.actor})
	return next, issues, nil
}

// Reset replaces every override with the defaults. The previous document
// is backed up first like any other write.
func (s *Store) Reset(ctx context.Context, opts ...WriteOption) (Document, error) {
	opts = append([]WriteOption{Reason("reset")}, opts...)
	opts = append(opts, Replace())
	doc, _, err := s.Write(ctx, map[string]any{}, opts...)
	return doc, err
}
