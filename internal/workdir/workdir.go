// Package workdir resolves the project root holding .dtf, supporting a
// redirect to a shared root via .dtf-root files.
package workdir

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDir     = ".dtf"
	dtfRootFile = ".dtf-root"
)

// ResolveBaseDir walks up from start to the nearest directory that has a
// .dtf directory or a .dtf-root file. A .dtf-root file holds the path of the
// root to use instead; relative paths are taken from the file's directory.
// When neither is found, start is returned unchanged.
func ResolveBaseDir(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		if root, ok := readRootFile(dir); ok {
			return root
		}
		if fi, err := os.Stat(filepath.Join(dir, dataDir)); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

func readRootFile(dir string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, dtfRootFile))
	if err != nil {
		return "", false
	}
	resolved := strings.TrimSpace(string(content))
	if resolved == "" {
		return "", false
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(dir, resolved)
	}
	return filepath.Clean(resolved), true
}
