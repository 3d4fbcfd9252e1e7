package network

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcus/dtf/internal/cdp/cdptest"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		url     string
		want    bool
	}{
		{"example.com", "https://example.com/a.js", true},
		{"*.js", "https://example.com/a.js", true},
		{"*.css", "https://example.com/a.js", false},
		{"example.com/*/b", "https://example.com/a/b", true},
		{"b*a", "https://example.com/a/b", false},
		{"*", "anything", true},
		{"tracker", "https://cdn.example/tracker.gif", true},
	}
	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.url); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.url, got, tt.want)
		}
	}
}

func TestBlockingAddRemoveToggle(t *testing.T) {
	b := NewBlocking(true, nil, nil)

	if err := b.Add("  "); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("Add(blank) error = %v, want ErrEmptyPattern", err)
	}
	if err := b.Add("*.js"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add(" *.js "); !errors.Is(err, ErrDuplicatePattern) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicatePattern", err)
	}
	if err := b.Add("ads"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	enabled, err := b.Toggle("ads")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if enabled {
		t.Error("Toggle should disable an enabled pattern")
	}
	if _, err := b.Toggle("missing"); !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("Toggle(missing) error = %v, want ErrPatternNotFound", err)
	}

	want := []models.BlockedPattern{{URL: "*.js", Enabled: true}, {URL: "ads", Enabled: false}}
	if diff := cmp.Diff(want, b.Patterns()); diff != "" {
		t.Errorf("Patterns() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"*.js"}, b.Effective()); diff != "" {
		t.Errorf("Effective() mismatch (-want +got):\n%s", diff)
	}

	if err := b.Remove("*.js"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := b.Remove("*.js"); !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("Remove twice error = %v, want ErrPatternNotFound", err)
	}
	b.Clear()
	if len(b.Patterns()) != 0 {
		t.Errorf("Clear left %d patterns", len(b.Patterns()))
	}
}

func TestBlockingDisabledHasNoEffectivePatterns(t *testing.T) {
	b := NewBlocking(false, []models.BlockedPattern{{URL: "*.js", Enabled: true}}, nil)
	if got := b.Effective(); got == nil || len(got) != 0 {
		t.Errorf("Effective() = %#v, want empty non-nil slice", got)
	}
	if b.IsBlocked("https://example.com/a.js") {
		t.Error("nothing should be blocked while blocking is disabled")
	}
	b.SetEnabled(true)
	if !b.IsBlocked("https://example.com/a.js") {
		t.Error("a.js should be blocked once blocking is enabled")
	}
}

func TestBlockingPublishesChanges(t *testing.T) {
	bus := events.NewBus[[]models.BlockedPattern](events.KindBlockedPatternsSet, 8)
	sub := bus.Subscribe("test")
	b := NewBlocking(true, nil, bus)

	if err := b.Add("a"); err != nil {
		t.Fatal(err)
	}
	b.SetEnabled(true) // unchanged, no event
	b.SetEnabled(false)

	if got := len(sub.C()); got != 2 {
		t.Fatalf("got %d change events, want 2", got)
	}
	first := <-sub.C()
	if len(first) != 1 || first[0].URL != "a" {
		t.Errorf("first change = %+v", first)
	}
}

func TestBlockingApply(t *testing.T) {
	b := NewBlocking(true, []models.BlockedPattern{
		{URL: "*.js", Enabled: true},
		{URL: "ads", Enabled: false},
	}, nil)

	c1 := cdptest.New("S1")
	c2 := cdptest.New("S2")
	if err := b.Apply(c1, c2); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, c := range []*cdptest.Client{c1, c2} {
		calls := c.CallsTo("Network.setBlockedURLs")
		if len(calls) != 1 {
			t.Fatalf("got %d setBlockedURLs calls, want 1", len(calls))
		}
		var params struct {
			Urls []string `json:"urls"`
		}
		if err := json.Unmarshal(calls[0].Params, &params); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"*.js"}, params.Urls); diff != "" {
			t.Errorf("urls mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestBlockingApplyJoinsErrors(t *testing.T) {
	b := NewBlocking(true, nil, nil)
	boom := errors.New("boom")
	ok := cdptest.New("S1")
	bad := cdptest.New("S2")
	bad.Fail("Network.setBlockedURLs", boom)

	err := b.Apply(ok, bad)
	if !errors.Is(err, boom) {
		t.Errorf("Apply error = %v, want wrapping boom", err)
	}
	if len(ok.Calls()) != 1 {
		t.Error("healthy client should still be called")
	}
}
