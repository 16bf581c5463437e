package event

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportHumanReadable writes the event log as one line per event, oldest
// first, for inspection from the command line. The format is stable enough
// to grep but is not a persistence format.
func ExportHumanReadable(events []Event, w io.Writer) error {
	for _, evt := range events {
		payload := ""
		if len(evt.Payload) > 0 {
			data, err := json.Marshal(evt.Payload)
			if err != nil {
				return fmt.Errorf("encode payload for event %s: %w", evt.ID, err)
			}
			payload = " " + string(data)
		}
		line := fmt.Sprintf("%s %s %s%s\n",
			evt.Time.UTC().Format(time.RFC3339), shortID(evt.ID), evt.Intent, payload)
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("write event line: %w", err)
		}
	}
	return nil
}

// shortID trims event ids to a prefix wide enough to disambiguate a log
// read by a human.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
