package monitor

import (
	"strings"

	"github.com/marcus/dtf/internal/models"
	"github.com/sahilm/fuzzy"
)

// eventSource exposes autofill events to the fuzzy matcher. Each event is
// searched by its address, target and filled values.
type eventSource []models.AddressFormFilledEvent

func (s eventSource) String(i int) string {
	ev := s[i]
	parts := []string{strings.ReplaceAll(ev.Address, "\n", " "), ev.TargetID}
	for _, f := range ev.FilledFields {
		parts = append(parts, f.Value)
	}
	return strings.Join(parts, " ")
}

func (s eventSource) Len() int { return len(s) }

// filterEvents returns the indices of events matching query, best match
// first. An empty query matches nothing and returns nil.
func filterEvents(events []models.AddressFormFilledEvent, query string) []int {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	matches := fuzzy.FindFrom(query, eventSource(events))
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	return idx
}
