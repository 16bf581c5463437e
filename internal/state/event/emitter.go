package event

// Payload builders for the recognized intents. Dispatch accepts any intent
// and payload pair, so these are not required; they exist so callers that
// emit the built-in intents agree with the reducer on payload keys.

// CurrentViewPayload builds the payload for IntentCurrentView.
func CurrentViewPayload(view string) map[string]any {
	return map[string]any{"view": view}
}

// JournalSetPayload builds the payload for IntentJournalSet.
func JournalSetPayload(track, key string, value any) map[string]any {
	return map[string]any{"track": track, "key": key, "value": value}
}

// JournalAddPayload builds the payload for IntentJournalAdd.
func JournalAddPayload(track, key string, value any) map[string]any {
	return map[string]any{"track": track, "key": key, "value": value}
}

// ValuePayload builds the single-key payload for IntentStateUpdate.
func ValuePayload(key string, value any) map[string]any {
	return map[string]any{"key": key, "value": value}
}

// ValuesPayload builds the batch payload for IntentStateUpdate.
func ValuesPayload(values map[string]any) map[string]any {
	return map[string]any{"values": values}
}

// LayoutOverridePayload builds the payload for IntentLayoutOverride. An
// empty scope means the section scope.
func LayoutOverridePayload(screen, scope, sectionID, presetID string) map[string]any {
	payload := map[string]any{
		"screen":    screen,
		"sectionId": sectionID,
		"presetId":  presetID,
	}
	if scope != "" {
		payload["scope"] = scope
	}
	return payload
}

// InteractionPayload builds the payload for IntentInteractionRecord. Meta is
// omitted when nil.
func InteractionPayload(target, action string, meta map[string]any) map[string]any {
	payload := map[string]any{"target": target, "action": action}
	if meta != nil {
		payload["meta"] = meta
	}
	return payload
}

// ScanIntent returns the intent string for a scan of the given kind.
func ScanIntent(kind string) string {
	return ScanPrefix + kind
}
