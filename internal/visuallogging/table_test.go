package visuallogging

import (
	"errors"
	"sort"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if table.Len() != 52 {
		t.Errorf("Len() = %d, want 52", table.Len())
	}
	if len(VisualElements()) != table.Len() {
		t.Errorf("%d visual elements for %d bindings", len(VisualElements()), table.Len())
	}
	if !sort.StringsAreSorted(table.Names()) {
		t.Error("Names() should be sorted")
	}
	if table.Bindings()[0].Name != "accessibilityComputedProperties" {
		t.Errorf("first binding = %q", table.Bindings()[0].Name)
	}
}

func TestTableTokens(t *testing.T) {
	table := DefaultTable()
	tests := map[string]string{
		"accessibilityPane":  "AccessibilityPane",
		"cssAngleEditor":     "CssAngleEditor",
		"cssShadowEditor":    "cssShadowEditor",
		"domBreakpoint":      "DOMBreakpoint",
		"domBreakpointsPane": "DOMBreakpointsPane",
		"elementStatesPane":  "ElementStatesPan",
		"value":              "Value",
	}
	for name, token := range tests {
		b, err := table.Builder(name)
		if err != nil {
			t.Errorf("Builder(%q) failed: %v", name, err)
			continue
		}
		if got := b.String(); got != token {
			t.Errorf("Builder(%q).String() = %q, want %q", name, got, token)
		}
	}
}

func TestTableEveryBindingBuilds(t *testing.T) {
	table := DefaultTable()
	for _, b := range table.Bindings() {
		cb, err := table.Builder(b.Name)
		if err != nil {
			t.Fatalf("Builder(%q) failed: %v", b.Name, err)
		}
		s := cb.Context("x").String()
		cfg, err := ParseConfig(s)
		if err != nil {
			t.Fatalf("ParseConfig(%q) failed: %v", s, err)
		}
		if cfg.VE != b.VE || cfg.VE.String() != b.Token {
			t.Errorf("%s: parsed %v, want %v", b.Name, cfg.VE, b.VE)
		}
	}
}

func TestTableUnknownName(t *testing.T) {
	if _, err := DefaultTable().Builder("spaceship"); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("error = %v, want ErrUnknownElement", err)
	}
	if _, ok := DefaultTable().Lookup("spaceship"); ok {
		t.Error("Lookup should miss")
	}
}

func TestLoadTableRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"unknown token", "bindings:\n  - name: x\n    ve: Nope\n", ErrUnknownElement},
		{"duplicate", "bindings:\n  - name: x\n    ve: Link\n  - name: x\n    ve: Next\n", ErrMalformedConfig},
		{"no name", "bindings:\n  - ve: Link\n", ErrMalformedConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTable([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := LoadTable([]byte("bindings: [")); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestVisualElementString(t *testing.T) {
	if got := VisualElement(0).String(); got != "VisualElement(0)" {
		t.Errorf("String() = %q", got)
	}
	if VisualElement(999).Valid() {
		t.Error("999 should not be valid")
	}
	if !TreeItem.Valid() {
		t.Error("TreeItem should be valid")
	}
}
