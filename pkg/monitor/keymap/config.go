// Package keymap holds the dashboard key bindings and the user overrides
// read from .dtf/keymap.json.
package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the keymap.json file. Bindings maps "context:key" (or a bare
// key for the global context) to a command name, e.g.
//
//	{"bindings": {"main:ctrl+r": "force-run", "ctrl+q": "quit"}}
type Config struct {
	Bindings map[string]string `json:"bindings"`
}

func ConfigPath(baseDir string) string {
	return filepath.Join(baseDir, ".dtf", "keymap.json")
}

// LoadConfig reads path. A missing file is an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Bindings: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if cfg.Bindings == nil {
		cfg.Bindings = make(map[string]string)
	}
	return cfg, nil
}

// ApplyConfig installs the overrides in cfg and returns the entries it
// skipped: an empty key, an unknown context or an unknown command.
func ApplyConfig(r *Registry, cfg *Config) []string {
	known := knownCommands()
	var skipped []string
	for entry, name := range cfg.Bindings {
		ctx, key := parseBinding(entry)
		if key == "" || !validContext(ctx) || !known[Command(name)] {
			skipped = append(skipped, entry)
			continue
		}
		r.SetUserOverride(ctx, key, Command(name))
	}
	return skipped
}

func parseBinding(s string) (Context, string) {
	if ctx, key, ok := strings.Cut(s, ":"); ok {
		return Context(ctx), key
	}
	return ContextGlobal, s
}

func validContext(ctx Context) bool {
	switch ctx {
	case ContextGlobal, ContextMain, ContextFilter, ContextHelp:
		return true
	}
	return false
}

func knownCommands() map[Command]bool {
	known := make(map[Command]bool)
	for _, b := range DefaultBindings() {
		known[b.Command] = true
	}
	return known
}
