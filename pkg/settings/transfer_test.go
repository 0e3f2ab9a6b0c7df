package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	src, _, _ := newTestStore(t)
	ctx := context.Background()

	written, _, err := src.Write(ctx, map[string]any{"menu_background": "#112233", "menu_width": float64(220), "glass_blur": "4px"})
	require.NoError(t, err)

	env, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExportFormat, env.Format)
	assert.Equal(t, written.Checksum, env.Document.Checksum)

	// Travel through JSON like a downloaded file.
	b, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded Envelope
	require.NoError(t, json.Unmarshal(b, &decoded))

	dst, _, _ := newTestStore(t)
	doc, _, err := dst.Import(ctx, &decoded)
	require.NoError(t, err)
	assert.Equal(t, written.Checksum, doc.Checksum)
	assert.Equal(t, written.Values, doc.Values)
}

func TestImportRejectsChecksumMismatch(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	before, _, err := s.Write(ctx, map[string]any{"menu_width": float64(200)})
	require.NoError(t, err)

	env, err := s.Export(ctx)
	require.NoError(t, err)
	env.Document.Values["menu_width"] = float64(380)

	_, _, err = s.Import(ctx, env)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	after, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Checksum, after.Checksum)
	assert.Equal(t, before.Version, after.Version)
}

func TestImportRejectsNewerFormatVersion(t *testing.T) {
	s, _, _ := newTestStore(t)
	env, err := s.Export(context.Background())
	require.NoError(t, err)
	env.FormatVersion = ExportFormatVersion + 1

	_, _, err = s.Import(context.Background(), env)
	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ExportFormatVersion+1, verr.Got)
}

func TestImportRejectsForeignFormat(t *testing.T) {
	s, _, _ := newTestStore(t)
	env, err := s.Export(context.Background())
	require.NoError(t, err)
	env.Format = "other-plugin"

	_, _, err = s.Import(context.Background(), env)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportRejectsIncompleteEnvelope(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, _, err := s.Import(context.Background(), &Envelope{Format: ExportFormat, FormatVersion: 1})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, _, err = s.Import(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestImportSnapshotsCurrentDocument(t *testing.T) {
	s, _, snap := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Write(ctx, map[string]any{"menu_width": float64(200)})
	require.NoError(t, err)
	env, err := s.Export(ctx)
	require.NoError(t, err)

	_, _, err = s.Write(ctx, map[string]any{"menu_width": float64(300)})
	require.NoError(t, err)
	_, _, err = s.Import(ctx, env)
	require.NoError(t, err)

	assert.Len(t, snap.docs, 2)
}
