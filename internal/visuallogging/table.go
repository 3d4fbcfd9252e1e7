package visuallogging

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed bindings.yaml
var bindingsYAML []byte

// Binding ties a builder name to a visual element.
type Binding struct {
	Name  string        `yaml:"name"`
	Token string        `yaml:"ve"`
	VE    VisualElement `yaml:"-"`
}

type bindingsFile struct {
	Bindings []Binding `yaml:"bindings"`
}

// Table maps builder names to visual elements.
type Table struct {
	bindings []Binding
	byName   map[string]int
}

// LoadTable parses a bindings document. Every token must name a known
// element and builder names must be unique.
func LoadTable(data []byte) (*Table, error) {
	var f bindingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bindings: %w", err)
	}
	t := &Table{byName: make(map[string]int, len(f.Bindings))}
	for _, b := range f.Bindings {
		if b.Name == "" {
			return nil, fmt.Errorf("%w: binding without a name", ErrMalformedConfig)
		}
		if _, dup := t.byName[b.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate binding %q", ErrMalformedConfig, b.Name)
		}
		ve, err := ParseVisualElement(b.Token)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Name, err)
		}
		b.VE = ve
		t.byName[b.Name] = len(t.bindings)
		t.bindings = append(t.bindings, b)
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// DefaultTable returns the built-in table. It is parsed once.
func DefaultTable() *Table {
	defaultOnce.Do(func() {
		t, err := LoadTable(bindingsYAML)
		if err != nil {
			panic(fmt.Sprintf("visuallogging: built-in bindings: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Builder starts a config string for the named binding.
func (t *Table) Builder(name string) (*ConfigBuilder, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return NewConfigBuilder(t.bindings[i].VE), nil
}

// Lookup returns the binding for name.
func (t *Table) Lookup(name string) (Binding, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Binding{}, false
	}
	return t.bindings[i], true
}

// Bindings returns every binding in table order.
func (t *Table) Bindings() []Binding {
	return append([]Binding(nil), t.bindings...)
}

// Names returns the builder names sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.bindings))
	for _, b := range t.bindings {
		names = append(names, b.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	return len(t.bindings)
}
