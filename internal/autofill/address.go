// Package autofill turns browser address-form-filled notifications into
// highlightable matches between the filled address and the filled fields.
package autofill

import (
	"strings"

	"github.com/marcus/dtf/internal/models"
)

// CanonicalAddress joins the address UI into one display string.
// Values within a line are joined by a space and lines by a newline.
// Empty values and lines without any value are skipped.
func CanonicalAddress(ui models.AddressUI) string {
	lines := make([]string, 0, len(ui.AddressFields))
	for _, line := range ui.AddressFields {
		var values []string
		for _, f := range line.Fields {
			if f.Value != "" {
				values = append(values, f.Value)
			}
		}
		if len(values) > 0 {
			lines = append(lines, strings.Join(values, " "))
		}
	}
	return strings.Join(lines, "\n")
}

// Components returns the labeled non-empty address values in display order.
func Components(ui models.AddressUI) []models.AddressComponent {
	var comps []models.AddressComponent
	for _, line := range ui.AddressFields {
		for _, f := range line.Fields {
			if f.Value == "" {
				continue
			}
			comps = append(comps, models.AddressComponent{Label: f.Name, Value: f.Value})
		}
	}
	return comps
}
