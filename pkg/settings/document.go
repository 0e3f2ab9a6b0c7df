// Package settings owns the persisted settings document. Every mutation of
// the document, including restore, import and theme apply, goes through
// Store.Write.
package settings

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/menuforge/menuforge/pkg/schema"
)

// Document is a settings document as served to callers.
type Document struct {
	// Values is total over the schema: overrides laid over defaults.
	Values schema.Values
	// Overrides are the explicitly set values. Only these are persisted.
	Overrides schema.Values
	// Checksum is the SHA-256 of the canonical JSON of Overrides.
	Checksum  string
	Version   int64
	UpdatedAt time.Time
}

// record is the persisted form of a Document.
type record struct {
	Version   int64          `json:"version"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updated_at"`
	Values    map[string]any `json:"values"`
}

// Checksum hashes the canonical JSON encoding of values. encoding/json
// writes map keys in sorted order, which makes the encoding canonical.
func Checksum(values schema.Values) string {
	sum, err := ChecksumRaw(values.Raw())
	if err != nil {
		// Raw values are strings, numbers and booleans only.
		panic(fmt.Sprintf("settings: checksum of sanitized values: %v", err))
	}
	return sum
}

// ChecksumRaw hashes a raw value map the same way Checksum does.
func ChecksumRaw(raw map[string]any) (string, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(b)), nil
}

// NewDocument builds a document from sanitized overrides.
func NewDocument(s *schema.Schema, overrides schema.Values, version int64, updatedAt time.Time) Document {
	overrides = prune(s, overrides)
	return Document{
		Values:    s.Merge(overrides),
		Overrides: overrides,
		Checksum:  Checksum(overrides),
		Version:   version,
		UpdatedAt: updatedAt,
	}
}

// DefaultDocument is the document served before anything is persisted.
func DefaultDocument(s *schema.Schema) Document {
	return NewDocument(s, schema.Values{}, 0, time.Time{})
}

// prune drops overrides equal to their default so that equal effective
// documents share a checksum.
func prune(s *schema.Schema, overrides schema.Values) schema.Values {
	out := make(schema.Values, len(overrides))
	for k, v := range overrides {
		f, ok := s.Field(k)
		if !ok || v == nil || v == f.Default {
			continue
		}
		out[k] = v
	}
	return out
}
