// Package visuallogging binds UI element names to the config strings that
// mark elements for interaction logging, and logs impressions and
// interactions for elements carrying such a config.
package visuallogging

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownElement  = errors.New("unknown visual element")
	ErrMalformedConfig = errors.New("malformed logging config")
)

// TrackOptions selects which interactions are logged for an element.
type TrackOptions struct {
	Click    bool
	DblClick bool
	Hover    bool
	Drag     bool
	Change   bool
	KeyDown  bool
	Keys     string // keys that count as a keydown, "|" separated; empty means any
	Resize   bool
}

// IsZero reports whether no interaction is tracked.
func (o TrackOptions) IsZero() bool {
	return o == TrackOptions{}
}

func (o TrackOptions) String() string {
	var parts []string
	add := func(on bool, key string) {
		if on {
			parts = append(parts, key)
		}
	}
	add(o.Click, "click")
	add(o.DblClick, "dblclick")
	add(o.Hover, "hover")
	add(o.Drag, "drag")
	add(o.Change, "change")
	if o.Keys != "" {
		parts = append(parts, "keydown: "+o.Keys)
	} else {
		add(o.KeyDown, "keydown")
	}
	add(o.Resize, "resize")
	return strings.Join(parts, ", ")
}

// ParseTrack parses a track list such as "click, keydown: Enter". An "="
// may stand in for the ":" after keydown.
func ParseTrack(s string) (TrackOptions, error) {
	return parseTrack(strings.ReplaceAll(s, "=", ":"))
}

func parseTrack(s string) (TrackOptions, error) {
	var o TrackOptions
	for _, entry := range strings.Split(s, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(entry), ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "click":
			o.Click = true
		case "dblclick":
			o.DblClick = true
		case "hover":
			o.Hover = true
		case "drag":
			o.Drag = true
		case "change":
			o.Change = true
		case "keydown":
			o.KeyDown = true
			o.Keys = value
		case "resize":
			o.Resize = true
		case "":
		default:
			return TrackOptions{}, fmt.Errorf("%w: unknown track option %q", ErrMalformedConfig, key)
		}
	}
	return o, nil
}

// ConfigBuilder accumulates the components of one config string.
// Components appear in the order the methods are called.
type ConfigBuilder struct {
	ve         VisualElement
	components []string
}

// NewConfigBuilder starts a config string for ve.
func NewConfigBuilder(ve VisualElement) *ConfigBuilder {
	return &ConfigBuilder{ve: ve, components: []string{ve.String()}}
}

// VisualElement returns the element the builder was created for.
func (b *ConfigBuilder) VisualElement() VisualElement {
	return b.ve
}

// Context adds a context component.
func (b *ConfigBuilder) Context(value string) *ConfigBuilder {
	b.components = append(b.components, "context: "+value)
	return b
}

// Parent adds a parent provider component.
func (b *ConfigBuilder) Parent(value string) *ConfigBuilder {
	b.components = append(b.components, "parent: "+value)
	return b
}

// Track adds the tracked interactions.
func (b *ConfigBuilder) Track(opts TrackOptions) *ConfigBuilder {
	b.components = append(b.components, "track: "+opts.String())
	return b
}

// String renders the config, components joined with "; ".
func (b *ConfigBuilder) String() string {
	return strings.Join(b.components, "; ")
}

// Config is a parsed config string.
type Config struct {
	VE      VisualElement
	Context string
	Parent  string
	Track   TrackOptions
}

// ParseConfig parses a config string produced by ConfigBuilder. When a
// component repeats, the first one wins.
func ParseConfig(s string) (Config, error) {
	if strings.TrimSpace(s) == "" {
		return Config{}, fmt.Errorf("%w: empty", ErrMalformedConfig)
	}
	parts := strings.Split(s, ";")
	ve, err := ParseVisualElement(strings.TrimSpace(parts[0]))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{VE: ve}

	var seenContext, seenParent, seenTrack bool
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return Config{}, fmt.Errorf("%w: component %q has no value", ErrMalformedConfig, part)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "context":
			if !seenContext {
				cfg.Context, seenContext = value, true
			}
		case "parent":
			if !seenParent {
				cfg.Parent, seenParent = value, true
			}
		case "track":
			if !seenTrack {
				if cfg.Track, err = parseTrack(value); err != nil {
					return Config{}, err
				}
				seenTrack = true
			}
		default:
			return Config{}, fmt.Errorf("%w: unknown component %q", ErrMalformedConfig, key)
		}
	}
	return cfg, nil
}

// Builder returns a ConfigBuilder that reproduces cfg.
func (c Config) Builder() *ConfigBuilder {
	b := NewConfigBuilder(c.VE)
	if c.Context != "" {
		b.Context(c.Context)
	}
	if c.Parent != "" {
		b.Parent(c.Parent)
	}
	if !c.Track.IsZero() {
		b.Track(c.Track)
	}
	return b
}
