package events

import (
	"testing"
)

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		valid    bool
	}{
		// Canonical
		{"autofill.address_form_filled", KindAddressFormFilled, true},
		{"network.request_finished", KindRequestFinished, true},

		// Bare names
		{"AddressFormFilled", KindAddressFormFilled, true},
		{"address-form-filled", KindAddressFormFilled, true},
		{"request_finished", KindRequestFinished, true},
		{"RequestFinished", KindRequestFinished, true},
		{"Reset", KindLogReset, true},
		{"ScopeTargetChanged", KindScopeChanged, true},

		// Protocol method names
		{"Autofill.addressFormFilled", KindAddressFormFilled, true},
		{"Network.loadingFinished", KindRequestFinished, true},
		{"Storage.runBounceTrackingMitigations", KindMitigationsRan, true},
		{"Network.setBlockedURLs", KindBlockedPatternsSet, true},

		// Invalid
		{"", "", false},
		{"unknown", "", false},
		{"Network.requestWillBeSent", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeKind(tt.input)
			if ok != tt.valid {
				t.Errorf("NormalizeKind(%q) valid = %v, want %v", tt.input, ok, tt.valid)
			}
			if got != tt.expected {
				t.Errorf("NormalizeKind(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAllKindsValid(t *testing.T) {
	for k := range AllKinds() {
		if !IsValidKind(string(k)) {
			t.Errorf("kind %q not valid", k)
		}
		if k.Domain() == "" || k.Domain() == string(k) {
			t.Errorf("kind %q has no domain", k)
		}
	}
}

func TestKindDomain(t *testing.T) {
	if got := KindLogReset.Domain(); got != "network" {
		t.Errorf("Domain() = %q, want network", got)
	}
	if got := Kind("plain").Domain(); got != "plain" {
		t.Errorf("Domain() = %q, want plain", got)
	}
}
