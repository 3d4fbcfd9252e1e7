package events

import "strings"

// Kind represents the canonical event kinds carried between panes.
type Kind string

// Canonical event kinds
const (
	KindAddressFormFilled  Kind = "autofill.address_form_filled"
	KindRequestFinished    Kind = "network.request_finished"
	KindLogReset           Kind = "network.log_reset"
	KindScopeChanged       Kind = "targets.scope_changed"
	KindMitigationsRan     Kind = "bounce.mitigations_ran"
	KindBlockedPatternsSet Kind = "network.blocked_patterns_set"
)

// AllKinds returns all valid event kinds.
func AllKinds() map[Kind]bool {
	return map[Kind]bool{
		KindAddressFormFilled:  true,
		KindRequestFinished:    true,
		KindLogReset:           true,
		KindScopeChanged:       true,
		KindMitigationsRan:     true,
		KindBlockedPatternsSet: true,
	}
}

// IsValidKind checks if the given kind string is valid.
func IsValidKind(k string) bool {
	return AllKinds()[Kind(k)]
}

// NormalizeKind normalizes an event name to its canonical kind.
// Accepts the canonical form, the bare event name in snake, kebab or
// camel case, and the DevTools protocol method name where one exists.
func NormalizeKind(name string) (Kind, bool) {
	if IsValidKind(name) {
		return Kind(name), true
	}
	key := strings.ToLower(name)
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "addressformfilled", "autofill.addressformfilled":
		return KindAddressFormFilled, true
	case "requestfinished", "network.loadingfinished":
		return KindRequestFinished, true
	case "reset", "logreset":
		return KindLogReset, true
	case "scopechanged", "scopetargetchanged":
		return KindScopeChanged, true
	case "mitigationsran", "storage.runbouncetrackingmitigations":
		return KindMitigationsRan, true
	case "blockedpatternsset", "network.setblockedurls":
		return KindBlockedPatternsSet, true
	}
	return "", false
}

// Domain returns the part of the kind before the dot, e.g. "network".
func (k Kind) Domain() string {
	if i := strings.IndexByte(string(k), '.'); i >= 0 {
		return string(k)[:i]
	}
	return string(k)
}

func (k Kind) String() string {
	return string(k)
}
