package autofill

import (
	"regexp"
	"strings"

	"github.com/marcus/dtf/internal/models"
)

// separatorRun matches the characters that separate address parts.
var separatorRun = regexp.MustCompile(`[\s,]+`)

// Matcher computes address matches.
type Matcher struct {
	// FoldSeparators retries a failed literal search treating any run of
	// commas and whitespace in the value as matching any such run in the
	// address, so "Outback Road 1, Melbourne" finds "Outback Road 1\nMelbourne".
	FoldSeparators bool
}

type span struct {
	start, end int
}

func overlaps(claimed []span, start, end int) bool {
	for _, s := range claimed {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// ComputeMatches finds each filled field value in the address using literal
// substring search.
func ComputeMatches(address string, fields []models.FilledField) []models.Match {
	return Matcher{}.Compute(address, fields)
}

// Compute scans fields in order and returns one Match per field whose value
// occurs in address. A field takes the leftmost occurrence that does not
// overlap a span claimed by an earlier field. Fields with an empty value or
// no occurrence produce no Match.
func (m Matcher) Compute(address string, fields []models.FilledField) []models.Match {
	matches := make([]models.Match, 0, len(fields))
	var claimed []span

	for i, f := range fields {
		if f.Value == "" {
			continue
		}
		s, ok := findLiteral(address, f.Value, claimed)
		if !ok && m.FoldSeparators {
			s, ok = findFolded(address, f.Value, claimed)
		}
		if !ok {
			continue
		}
		claimed = append(claimed, s)
		matches = append(matches, models.Match{
			StartIndex:       s.start,
			EndIndex:         s.end,
			FilledFieldIndex: i,
		})
	}
	return matches
}

func findLiteral(address, needle string, claimed []span) (span, bool) {
	from := 0
	for from+len(needle) <= len(address) {
		idx := strings.Index(address[from:], needle)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(needle)
		if !overlaps(claimed, start, end) {
			return span{start, end}, true
		}
		from = start + 1
	}
	return span{}, false
}

func findFolded(address, value string, claimed []span) (span, bool) {
	var parts []string
	for _, tok := range separatorRun.Split(value, -1) {
		if tok != "" {
			parts = append(parts, regexp.QuoteMeta(tok))
		}
	}
	if len(parts) == 0 {
		return span{}, false
	}
	re, err := regexp.Compile(strings.Join(parts, `[\s,]+`))
	if err != nil {
		return span{}, false
	}
	from := 0
	for from < len(address) {
		loc := re.FindStringIndex(address[from:])
		if loc == nil {
			break
		}
		start, end := from+loc[0], from+loc[1]
		if !overlaps(claimed, start, end) {
			return span{start, end}, true
		}
		from = start + 1
	}
	return span{}, false
}
