// Package event defines the append-only intent events the state store
// derives application state from.
package event

import (
	"strings"
	"time"
)

// Recognized intents. Dispatch is open-ended by design: any intent string is
// appended, and the reducer ignores the ones it does not know, so new
// intents can ship without touching the store.
const (
	// IntentCurrentView switches the current view. Payload: {"view": string}.
	IntentCurrentView = "state:currentView"
	// IntentJournalSet sets a journal entry. Payload: {"track", "key", "value"}.
	IntentJournalSet = "journal.set"
	// IntentJournalAdd appends to a journal entry list. Same payload shape.
	IntentJournalAdd = "journal.add"
	// IntentStateUpdate writes a value. Payload: {"key","value"} or {"values": object}.
	IntentStateUpdate = "state.update"
	// IntentLayoutOverride records a layout preset override.
	// Payload: {"screen","scope","sectionId","presetId"}.
	IntentLayoutOverride = "layout.override"
	// IntentInteractionRecord records a user interaction.
	// Payload: {"target","action","meta"?}.
	IntentInteractionRecord = "interaction.record"
	// ScanPrefix marks scan events; the intent suffix is the scan kind.
	ScanPrefix = "scan."
)

// Event is one immutable entry of the event log. Events are never mutated or
// deleted after append, outside the explicit dev-only clear.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// Time is when the event was appended.
	Time time.Time `json:"time"`
	// Intent names the mutation request.
	Intent string `json:"intent"`
	// Payload carries intent-specific data.
	Payload map[string]any `json:"payload,omitempty"`
}

// IsScan reports whether the intent is in the scan namespace.
func (e Event) IsScan() bool {
	return strings.HasPrefix(e.Intent, ScanPrefix) && len(e.Intent) > len(ScanPrefix)
}

// ScanKind returns the scan kind for scan events, empty otherwise.
func (e Event) ScanKind() string {
	if !e.IsScan() {
		return ""
	}
	return strings.TrimPrefix(e.Intent, ScanPrefix)
}
