package autofill

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/marcus/dtf/internal/models"
)

// UTF16Matches converts byte-offset matches into address to the UTF-16 code
// unit offsets DevTools front ends index strings by. Offsets that fall inside
// a rune round down to the rune start.
func UTF16Matches(address string, matches []models.Match) []models.Match {
	if matches == nil {
		return nil
	}
	// units[i] is the UTF-16 offset of byte i; units[len(address)] is the total.
	units := make([]int, len(address)+1)
	n := 0
	for i := 0; i < len(address); {
		r, size := utf8.DecodeRuneInString(address[i:])
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1 // invalid bytes decode to U+FFFD
		}
		for j := range size {
			units[i+j] = n
		}
		n += w
		i += size
	}
	units[len(address)] = n

	at := func(off int) int {
		return units[min(max(off, 0), len(address))]
	}
	out := make([]models.Match, len(matches))
	for i, m := range matches {
		out[i] = models.Match{
			StartIndex:       at(m.StartIndex),
			EndIndex:         at(m.EndIndex),
			FilledFieldIndex: m.FilledFieldIndex,
		}
	}
	return out
}

// UTF16Event returns ev with its matches converted by UTF16Matches.
func UTF16Event(ev models.AddressFormFilledEvent) models.AddressFormFilledEvent {
	ev.Matches = UTF16Matches(ev.Address, ev.Matches)
	return ev
}
