// Package themes provides named setting presets. Presets are plain data;
// applying one is an ordinary settings write.
package themes

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/menuforge/menuforge/pkg/schema"
	"github.com/menuforge/menuforge/pkg/settings"
)

//go:embed presets.yaml
var builtinPresets []byte

// ErrNotFound is returned for an unknown preset name.
var ErrNotFound = errors.New("theme not found")

// Preset is a named set of overrides.
type Preset struct {
	Name        string         `yaml:"name" json:"name"`
	Label       string         `yaml:"label" json:"label"`
	Description string         `yaml:"description" json:"description,omitempty"`
	Values      map[string]any `yaml:"values" json:"values"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Writer is the part of settings.Store a theme is applied through.
type Writer interface {
	Write(ctx context.Context, candidate map[string]any, opts ...settings.WriteOption) (settings.Document, schema.Issues, error)
}

// Catalog holds presets keyed by name.
type Catalog struct {
	byName map[string]Preset
	names  []string
}

// Load parses a preset file and checks every preset against sch. A preset
// with any issue, even a warning, is rejected so that applying it is exact.
func Load(data []byte, sch *schema.Schema) (*Catalog, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse theme presets: %w", err)
	}
	c := &Catalog{byName: make(map[string]Preset, len(f.Presets))}
	for _, p := range f.Presets {
		if p.Name == "" {
			return nil, errors.New("theme preset without a name")
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate theme preset %q", p.Name)
		}
		if _, issues := sch.Sanitize(p.Values); len(issues) > 0 {
			return nil, fmt.Errorf("theme preset %q: %s: %s", p.Name, issues[0].Field, issues[0].Message)
		}
		c.byName[p.Name] = p
		c.names = append(c.names, p.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Builtin loads the embedded presets.
func Builtin(sch *schema.Schema) (*Catalog, error) {
	return Load(builtinPresets, sch)
}

// List returns the presets sorted by name.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byName[n])
	}
	return out
}

// Get returns the named preset.
func (c *Catalog) Get(name string) (Preset, error) {
	p, ok := c.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Apply merges the named preset into the live document. Fields the preset
// does not name keep their current values.
func (c *Catalog) Apply(ctx context.Context, w Writer, name, actor string) (settings.Document, error) {
	p, err := c.Get(name)
	if err != nil {
		return settings.Document{}, err
	}
	doc, _, err := w.Write(ctx, p.Values, settings.Reason("theme:"+name), settings.Actor(actor))
	if err != nil {
		return settings.Document{}, fmt.Errorf("apply theme %s: %w", name, err)
	}
	return doc, nil
}
