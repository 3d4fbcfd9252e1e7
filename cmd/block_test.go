package cmd

import (
	"errors"
	"testing"

	"github.com/marcus/dtf/internal/config"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/output"
)

func withBaseDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := baseDir
	baseDir = dir
	t.Cleanup(func() { baseDir = prev })
	return dir
}

func TestUpdateBlockingPersists(t *testing.T) {
	dir := withBaseDir(t)

	err := updateBlocking(func(b *network.Blocking) error {
		if err := b.Add("*.js"); err != nil {
			return err
		}
		if err := b.Add("ads"); err != nil {
			return err
		}
		_, err := b.Toggle("ads")
		return err
	})
	if err != nil {
		t.Fatalf("updateBlocking failed: %v", err)
	}

	patterns, enabled, err := config.GetBlockedPatterns(dir)
	if err != nil {
		t.Fatalf("GetBlockedPatterns failed: %v", err)
	}
	if !enabled {
		t.Error("blocking should default to enabled")
	}
	want := []models.BlockedPattern{{URL: "*.js", Enabled: true}, {URL: "ads", Enabled: false}}
	if len(patterns) != len(want) || patterns[0] != want[0] || patterns[1] != want[1] {
		t.Errorf("patterns = %+v, want %+v", patterns, want)
	}
}

func TestUpdateBlockingErrorWritesNothing(t *testing.T) {
	dir := withBaseDir(t)
	if err := config.SetBlockedPatterns(dir, []models.BlockedPattern{{URL: "a", Enabled: true}}); err != nil {
		t.Fatal(err)
	}

	err := updateBlocking(func(b *network.Blocking) error {
		b.Clear()
		return b.Remove("missing")
	})
	if !errors.Is(err, network.ErrPatternNotFound) {
		t.Fatalf("err = %v, want ErrPatternNotFound", err)
	}

	patterns, _, _ := config.GetBlockedPatterns(dir)
	if len(patterns) != 1 {
		t.Errorf("failed update changed patterns: %+v", patterns)
	}
}

func TestBlockingErrCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{network.ErrPatternNotFound, output.ErrCodeNotFound},
		{network.ErrDuplicatePattern, output.ErrCodeConflict},
		{network.ErrEmptyPattern, output.ErrCodeInvalidInput},
		{errors.New("disk"), output.ErrCodeDatabaseError},
	}
	for _, tt := range tests {
		if got := blockingErrCode(tt.err); got != tt.want {
			t.Errorf("blockingErrCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
