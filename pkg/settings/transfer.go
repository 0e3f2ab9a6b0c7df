package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/menuforge/menuforge/pkg/schema"
)

const (
	// ExportFormat identifies envelopes produced by Export.
	ExportFormat = "menuforge-settings"
	// ExportFormatVersion is the newest envelope layout this build reads.
	ExportFormatVersion = 1
)

// EngineVersion is stamped into exports and backups. Set at link time.
var EngineVersion = "dev"

var envelopeValidate = validator.New()

// Envelope is the portable export format.
type Envelope struct {
	Format        string           `json:"format" validate:"required"`
	FormatVersion int              `json:"format_version" validate:"required,min=1"`
	ExportedAt    time.Time        `json:"exported_at"`
	EngineVersion string           `json:"engine_version,omitempty"`
	Document      EnvelopeDocument `json:"document" validate:"required"`
}

// EnvelopeDocument is the document carried by an Envelope.
type EnvelopeDocument struct {
	Version  int64          `json:"version" validate:"gte=0"`
	Checksum string         `json:"checksum" validate:"required,len=64,hexadecimal"`
	Values   map[string]any `json:"values" validate:"required"`
}

// Export wraps the current document in an Envelope.
func (s *Store) Export(ctx context.Context) (*Envelope, error) {
	doc, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Format:        ExportFormat,
		FormatVersion: ExportFormatVersion,
		ExportedAt:    s.nowFunc(),
		EngineVersion: EngineVersion,
		Document: EnvelopeDocument{
			Version:  doc.Version,
			Checksum: doc.Checksum,
			Values:   doc.Overrides.Raw(),
		},
	}, nil
}

// Import verifies env and replaces the current overrides with its values.
// The format, format version and checksum are checked before anything is
// written.
func (s *Store) Import(ctx context.Context, env *Envelope, opts ...WriteOption) (Document, schema.Issues, error) {
	if env == nil {
		return Document{}, nil, ErrInvalidEnvelope
	}
	if err := envelopeValidate.Struct(env); err != nil {
		return Document{}, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Format != ExportFormat {
		return Document{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, env.Format)
	}
	if env.FormatVersion > ExportFormatVersion {
		return Document{}, nil, &VersionError{Got: env.FormatVersion, Supported: ExportFormatVersion}
	}
	sum, err := ChecksumRaw(env.Document.Values)
	if err != nil {
		return Document{}, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if sum != env.Document.Checksum {
		return Document{}, nil, fmt.Errorf("%w: envelope says %s, values hash to %s", ErrChecksumMismatch, env.Document.Checksum, sum)
	}

	opts = append([]WriteOption{Reason("import")}, opts...)
	opts = append(opts, Replace())
	return s.Write(ctx, env.Document.Values, opts...)
}
