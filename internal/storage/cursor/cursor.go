// Package cursor provides opaque page token encoding for screen listings.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Cursor marks the position of the next listing page. Listings order by
// screen key, so the key of the last returned row is enough to resume.
type Cursor struct {
	// Key is the last screen key of the previous page; the next page
	// starts strictly after it.
	Key string `json:"key"`
	// FilterHash invalidates tokens when the filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
}

// Next returns the cursor for the page after the given key.
func Next(lastKey, filter string) Cursor {
	return Cursor{Key: lastKey, FilterHash: HashFilter(filter)}
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.Key == "" {
		return Cursor{}, fmt.Errorf("cursor has no position")
	}
	return c, nil
}

// HashFilter computes a short hash of the filter string for cursor
// validation. Returns empty string for empty filter.
func HashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(h[:8])
}

// Validate checks that the cursor was issued for the current filter.
func Validate(c Cursor, currentFilter string) error {
	if c.FilterHash != HashFilter(currentFilter) {
		return fmt.Errorf("filter changed since cursor was created")
	}
	return nil
}
