package autofill

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	"github.com/marcus/dtf/internal/models"
)

// FromProto converts a CDP Autofill.addressFormFilled event.
// Nil entries in the protocol arrays are skipped.
func FromProto(targetID string, ev *proto.AutofillAddressFormFilled) models.AddressFormFilled {
	out := models.AddressFormFilled{TargetID: targetID}
	if ev == nil {
		return out
	}

	if ev.AddressUI != nil {
		for _, line := range ev.AddressUI.AddressFields {
			if line == nil {
				continue
			}
			var l models.AddressLine
			for _, f := range line.Fields {
				if f == nil {
					continue
				}
				l.Fields = append(l.Fields, models.AddressField{Name: f.Name, Value: f.Value})
			}
			out.AddressUI.AddressFields = append(out.AddressUI.AddressFields, l)
		}
	}

	for _, f := range ev.FilledFields {
		if f == nil {
			continue
		}
		out.FilledFields = append(out.FilledFields, models.FilledField{
			HTMLType:        f.HTMLType,
			ID:              f.ID,
			Name:            f.Name,
			Value:           f.Value,
			AutofillType:    f.AutofillType,
			FillingStrategy: models.FillingStrategy(f.FillingStrategy),
			FrameID:         string(f.FrameID),
			FieldID:         int(f.FieldID),
		})
	}
	return out
}

// DecodeEvent parses a raw Autofill.addressFormFilled params object.
func DecodeEvent(targetID string, data []byte) (models.AddressFormFilled, error) {
	var ev proto.AutofillAddressFormFilled
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.AddressFormFilled{}, fmt.Errorf("decode %s: %w", ev.ProtoEvent(), err)
	}
	return FromProto(targetID, &ev), nil
}
