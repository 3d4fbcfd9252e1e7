package monitor

import (
	"testing"

	"github.com/marcus/dtf/internal/models"
)

func TestFilterEvents(t *testing.T) {
	events := []models.AddressFormFilledEvent{
		{Address: "Crocodile Dundee\nOutback Road 1", TargetID: "T1"},
		{Address: "Jane Doe\nMain St 5", TargetID: "T2", FilledFields: []models.FilledField{{Value: "90210"}}},
	}
	tests := []struct {
		query string
		want  []int
	}{
		{"", nil},
		{"outback", []int{0}},
		{"90210", []int{1}},
		{"T2", []int{1}},
		{"zzz", []int{}},
	}
	for _, tt := range tests {
		got := filterEvents(events, tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("filterEvents(%q) = %v, want %v", tt.query, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("filterEvents(%q) = %v, want %v", tt.query, got, tt.want)
			}
		}
	}
}

func TestEventSourceFlattensAddress(t *testing.T) {
	src := eventSource{{Address: "a\nb", TargetID: "T"}}
	if got := src.String(0); got != "a b T" {
		t.Errorf("String(0) = %q", got)
	}
}
