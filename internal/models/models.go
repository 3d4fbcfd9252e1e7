package models

import (
	"time"
)

// FillingStrategy records how a field was classified for filling
type FillingStrategy string

const (
	FillingStrategyAutocompleteAttribute FillingStrategy = "autocompleteAttribute"
	FillingStrategyAutofillInferred      FillingStrategy = "autofillInferred"
)

// FilledField is a form input populated by an autofill action
type FilledField struct {
	HTMLType        string          `json:"htmlType"`
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Value           string          `json:"value"`
	AutofillType    string          `json:"autofillType"`
	FillingStrategy FillingStrategy `json:"fillingStrategy"`
	FrameID         string          `json:"frameId,omitempty"`
	FieldID         int             `json:"fieldId"` // backend DOM node id
}

// AddressField is one labeled value of an address profile, e.g. NAME_FULL
type AddressField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AddressLine is one display line of an address
type AddressLine struct {
	Fields []AddressField `json:"fields"`
}

// AddressUI is the two dimensional display form of an address
type AddressUI struct {
	AddressFields []AddressLine `json:"addressFields"`
}

// AddressComponent is a labeled sub-string of the canonical address
type AddressComponent struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Match links a span of the canonical address to the filled field that produced it.
// EndIndex is exclusive. Offsets are byte offsets into the address string;
// JSON output converts them to UTF-16 code units with autofill.UTF16Matches.
type Match struct {
	StartIndex       int `json:"startIndex"`
	EndIndex         int `json:"endIndex"`
	FilledFieldIndex int `json:"filledFieldIndex"`
}

// AddressFormFilled is the payload reported by the browser when an address form is filled
type AddressFormFilled struct {
	TargetID     string        `json:"targetId,omitempty"`
	AddressUI    AddressUI     `json:"addressUi"`
	FilledFields []FilledField `json:"filledFields"`
}

// AddressFormFilledEvent is the payload published to the view layer
type AddressFormFilledEvent struct {
	ID           string        `json:"id,omitempty"`
	TargetID     string        `json:"targetId,omitempty"`
	Address      string        `json:"address"`
	FilledFields []FilledField `json:"filledFields"`
	Matches      []Match       `json:"matches"`
	Timestamp    time.Time     `json:"timestamp"`
}

// BlockedPattern is a URL pattern for network request blocking
type BlockedPattern struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// NetworkRequest is a finished network request as seen by the panes
type NetworkRequest struct {
	RequestID     string    `json:"request_id"`
	TargetID      string    `json:"target_id"`
	URL           string    `json:"url"`
	WasBlocked    bool      `json:"was_blocked"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

// LogReset is emitted when the network log is cleared
type LogReset struct {
	TargetID         string `json:"target_id,omitempty"`
	ClearIfPreserved bool   `json:"clear_if_preserved"`
}

// BounceRun is the result of one forced bounce tracking mitigations run
type BounceRun struct {
	ID           string    `json:"id"`
	DeletedSites []string  `json:"deleted_sites"`
	RanAt        time.Time `json:"ran_at"`
}

// Config represents the project config stored in .dtf/config.json
type Config struct {
	DebuggerURL            string           `json:"debugger_url,omitempty"`
	Headless               bool             `json:"headless,omitempty"`
	PreserveLog            bool             `json:"preserve_log,omitempty"`
	RequestBlockingEnabled bool             `json:"request_blocking_enabled"`
	BlockedPatterns        []BlockedPattern `json:"blocked_patterns,omitempty"`
	BusQueueSize           int              `json:"bus_queue_size,omitempty"`
	RefreshInterval        string           `json:"refresh_interval,omitempty"`
	LiteralMatches         bool             `json:"literal_matches,omitempty"`
}
