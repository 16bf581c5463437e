package state

import (
	"strings"
	"time"

	"github.com/billy1976-servant/screenloom/internal/state/event"
)

// ScreenOverrides holds layout preset overrides for one screen, split by
// override scope.
type ScreenOverrides struct {
	Section map[string]string `json:"section,omitempty"`
	Card    map[string]string `json:"card,omitempty"`
	Organ   map[string]string `json:"organ,omitempty"`
}

// Scan is a recorded scan event.
type Scan struct {
	Time  time.Time      `json:"time"`
	Kind  string         `json:"kind"`
	Value map[string]any `json:"value,omitempty"`
}

// Interaction is a recorded user interaction.
type Interaction struct {
	Time   time.Time      `json:"time"`
	Target string         `json:"target"`
	Action string         `json:"action"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Derived is the snapshot computed from the full event log. For a given log
// contents and order the derivation is always identical; that purity is what
// makes replay, undo, and debugging trustworthy.
type Derived struct {
	Journal        map[string]map[string]any  `json:"journal"`
	Values         map[string]any             `json:"values"`
	LayoutByScreen map[string]ScreenOverrides `json:"layoutByScreen"`
	Scans          []Scan                     `json:"scans"`
	Interactions   []Interaction              `json:"interactions"`
	CurrentView    string                     `json:"currentView,omitempty"`
	RawCount       int                        `json:"rawCount"`
}

func emptyDerived() Derived {
	return Derived{
		Journal:        map[string]map[string]any{},
		Values:         map[string]any{},
		LayoutByScreen: map[string]ScreenOverrides{},
		Scans:          []Scan{},
		Interactions:   []Interaction{},
	}
}

// Derive folds the event log into a snapshot. Unknown intents are ignored
// and malformed payloads for known intents are skipped, so one bad event can
// never corrupt the snapshot or halt replay.
func Derive(log []event.Event) Derived {
	derived := emptyDerived()
	for _, evt := range log {
		apply(&derived, evt)
	}
	derived.RawCount = len(log)
	return derived
}

func apply(derived *Derived, evt event.Event) {
	switch {
	case evt.Intent == event.IntentCurrentView:
		view, ok := payloadString(evt.Payload, "view")
		if !ok {
			return
		}
		derived.CurrentView = view

	case evt.Intent == event.IntentJournalSet:
		track, key, ok := journalAddress(evt.Payload)
		if !ok {
			return
		}
		ensureTrack(derived, track)[key] = evt.Payload["value"]

	case evt.Intent == event.IntentJournalAdd:
		track, key, ok := journalAddress(evt.Payload)
		if !ok {
			return
		}
		entries := ensureTrack(derived, track)
		list, _ := entries[key].([]any)
		entries[key] = append(list, evt.Payload["value"])

	case evt.Intent == event.IntentStateUpdate:
		if values, ok := evt.Payload["values"].(map[string]any); ok {
			for key, value := range values {
				derived.Values[key] = value
			}
			return
		}
		key, ok := payloadString(evt.Payload, "key")
		if !ok {
			return
		}
		derived.Values[key] = evt.Payload["value"]

	case evt.Intent == event.IntentLayoutOverride:
		screen, ok := payloadString(evt.Payload, "screen")
		if !ok {
			return
		}
		sectionID, ok := payloadString(evt.Payload, "sectionId")
		if !ok {
			return
		}
		presetID, ok := payloadString(evt.Payload, "presetId")
		if !ok {
			return
		}
		scope, _ := payloadString(evt.Payload, "scope")
		overrides := derived.LayoutByScreen[screen]
		switch scope {
		case "card":
			overrides.Card = setOverride(overrides.Card, sectionID, presetID)
		case "organ":
			overrides.Organ = setOverride(overrides.Organ, sectionID, presetID)
		default:
			overrides.Section = setOverride(overrides.Section, sectionID, presetID)
		}
		derived.LayoutByScreen[screen] = overrides

	case evt.IsScan():
		derived.Scans = append(derived.Scans, Scan{
			Time:  evt.Time,
			Kind:  evt.ScanKind(),
			Value: evt.Payload,
		})

	case evt.Intent == event.IntentInteractionRecord:
		target, ok := payloadString(evt.Payload, "target")
		if !ok {
			return
		}
		action, _ := payloadString(evt.Payload, "action")
		meta, _ := evt.Payload["meta"].(map[string]any)
		derived.Interactions = append(derived.Interactions, Interaction{
			Time:   evt.Time,
			Target: target,
			Action: action,
			Meta:   meta,
		})
	}
}

func ensureTrack(derived *Derived, track string) map[string]any {
	entries, ok := derived.Journal[track]
	if !ok {
		entries = map[string]any{}
		derived.Journal[track] = entries
	}
	return entries
}

func setOverride(m map[string]string, sectionID, presetID string) map[string]string {
	if m == nil {
		m = map[string]string{}
	}
	m[sectionID] = presetID
	return m
}

func journalAddress(payload map[string]any) (track, key string, ok bool) {
	track, ok = payloadString(payload, "track")
	if !ok {
		return "", "", false
	}
	key, ok = payloadString(payload, "key")
	if !ok {
		return "", "", false
	}
	return track, key, true
}

func payloadString(payload map[string]any, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}
