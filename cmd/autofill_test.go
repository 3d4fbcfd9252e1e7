package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcus/dtf/internal/autofill"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		wantVal  string
	}{
		{"NAME_FULL=Crocodile Dundee", "NAME_FULL", "Crocodile Dundee"},
		{"ADDRESS_HOME_LINE1=a=b", "ADDRESS_HOME_LINE1", "a=b"},
		{"Melbourne", "", "Melbourne"},
		{"name=lowercase", "", "name=lowercase"},
		{"=leading", "", "=leading"},
	}
	for _, tt := range tests {
		got := parseField(tt.in)
		if got.AutofillType != tt.wantType || got.Value != tt.wantVal {
			t.Errorf("parseField(%q) = (%q, %q), want (%q, %q)", tt.in, got.AutofillType, got.Value, tt.wantType, tt.wantVal)
		}
	}
}

func TestFieldsFlagKeepsOrder(t *testing.T) {
	var f fieldsFlag
	for _, s := range []string{"NAME_FULL=Jon", "Melbourne"} {
		if err := f.Set(s); err != nil {
			t.Fatalf("Set(%q) failed: %v", s, err)
		}
	}
	if len(f) != 2 || f[0].Value != "Jon" || f[1].Value != "Melbourne" {
		t.Fatalf("fields = %+v", f)
	}
	if got := f.String(); got != "NAME_FULL=Jon,Melbourne" {
		t.Errorf("String() = %q", got)
	}
	if f[1].FillingStrategy != models.FillingStrategyAutofillInferred {
		t.Errorf("strategy = %q", f[1].FillingStrategy)
	}
}

func TestUnescapeAddress(t *testing.T) {
	if got := unescapeAddress(`Crocodile Dundee\nMelbourne`); got != "Crocodile Dundee\nMelbourne" {
		t.Errorf("unescapeAddress = %q", got)
	}
}

func TestSplitPayloads(t *testing.T) {
	one, err := splitPayloads([]byte(` {"addressUi":{}} `))
	if err != nil || len(one) != 1 {
		t.Fatalf("single object: %v, %d payloads", err, len(one))
	}

	many, err := splitPayloads([]byte(`[{"addressUi":{}}, {"addressUi":{}}]`))
	if err != nil || len(many) != 2 {
		t.Fatalf("array: %v, %d payloads", err, len(many))
	}

	if _, err := splitPayloads([]byte("  ")); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := splitPayloads([]byte("[1,")); err == nil {
		t.Error("broken array should fail")
	}
}

const umlautEvent = `{
  "addressUi": {"addressFields": [
    {"fields": [{"name": "NAME_FIRST", "value": "Zoë"}, {"name": "NAME_LAST", "value": "Müller"}]},
    {"fields": [{"name": "ADDRESS_HOME_CITY", "value": ""}]}
  ]},
  "filledFields": [
    {"htmlType": "text", "id": "first", "name": "first", "value": "Zoë", "autofillType": "NAME_FIRST", "fillingStrategy": "autofillInferred", "fieldId": 1},
    {"htmlType": "text", "id": "last", "name": "last", "value": "Müller", "autofillType": "NAME_LAST", "fillingStrategy": "autofillInferred", "fieldId": 2}
  ]
}`

func TestReplayPayloads(t *testing.T) {
	bus := events.NewBus[models.AddressFormFilledEvent](events.KindAddressFormFilled, 1)
	defer bus.Close()
	manager := autofill.NewManager(bus, nil, nil)

	out, comps, err := replayPayloads(context.Background(), manager, "T1", []json.RawMessage{json.RawMessage(umlautEvent)})
	if err != nil {
		t.Fatalf("replayPayloads: %v", err)
	}
	if len(out) != 1 || out[0].Address != "Zoë Müller" {
		t.Fatalf("events = %+v", out)
	}

	wantComps := [][]models.AddressComponent{{
		{Label: "NAME_FIRST", Value: "Zoë"},
		{Label: "NAME_LAST", Value: "Müller"},
	}}
	if diff := cmp.Diff(wantComps, comps); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}

	// Byte offsets internally, UTF-16 code units in JSON output.
	wantBytes := []models.Match{{StartIndex: 0, EndIndex: 4}, {StartIndex: 5, EndIndex: 12, FilledFieldIndex: 1}}
	if diff := cmp.Diff(wantBytes, out[0].Matches); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	wantUnits := []models.Match{{StartIndex: 0, EndIndex: 3}, {StartIndex: 4, EndIndex: 10, FilledFieldIndex: 1}}
	if diff := cmp.Diff(wantUnits, utf16Events(out)[0].Matches); diff != "" {
		t.Errorf("json matches mismatch (-want +got):\n%s", diff)
	}
}

func TestReplayPayloadsBadEvent(t *testing.T) {
	bus := events.NewBus[models.AddressFormFilledEvent](events.KindAddressFormFilled, 1)
	defer bus.Close()
	manager := autofill.NewManager(bus, nil, nil)

	_, _, err := replayPayloads(context.Background(), manager, "", []json.RawMessage{json.RawMessage(umlautEvent), json.RawMessage(`{"filledFields": 1}`)})
	if err == nil || !strings.HasPrefix(err.Error(), "event 1:") {
		t.Errorf("err = %v, want event 1 error", err)
	}
}
