// Package suggest provides fuzzy matching for CLI flag and name suggestions
// using Levenshtein distance.
package suggest

import (
	"sort"
	"strings"
)

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Closest returns up to three candidates within a few edits of unknown,
// best first. Comparison ignores case.
func Closest(unknown string, candidates []string) []string {
	type scored struct {
		name  string
		score int
	}
	lower := strings.ToLower(unknown)
	maxDist := max(3, len(unknown)/2)

	var matches []scored
	for _, c := range candidates {
		if d := levenshtein(lower, strings.ToLower(c)); d <= maxDist {
			matches = append(matches, scored{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })

	var result []string
	for i := 0; i < len(matches) && i < 3; i++ {
		result = append(result, matches[i].name)
	}
	return result
}

// Flag finds similar flags from a list of valid flag names.
func Flag(unknown string, validFlags []string) []string {
	unknown = strings.TrimLeft(unknown, "-")
	names := make([]string, len(validFlags))
	for i, f := range validFlags {
		names[i] = strings.TrimLeft(f, "-")
	}
	out := Closest(unknown, names)
	for i := range out {
		out[i] = "--" + out[i]
	}
	return out
}

// CommonFlagAliases maps commonly attempted flags to their correct names
var CommonFlagAliases = map[string]string{
	// Endpoint aliases
	"endpoint":    "--url",
	"ws":          "--url",
	"remote":      "--url",
	"port":        "--url http://localhost:<port>",
	"browser-url": "--url",

	// Launch aliases
	"start":  "--launch",
	"chrome": "--launch",

	// Output aliases
	"format": "--json",
	"md":     "--markdown",

	// Version
	"version": "use: dtf version",
	"v":       "use: dtf version",
}

// FlagHint returns a hint for a commonly misused flag
func FlagHint(flag string) string {
	flag = strings.ToLower(strings.TrimLeft(flag, "-"))
	return CommonFlagAliases[flag]
}
