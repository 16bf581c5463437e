package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ScreenRecord is one stored screen document.
type ScreenRecord struct {
	Key       string
	Document  json.RawMessage
	UpdatedAt time.Time
}

// EventLogStore persists the serialized event log as a single payload. The
// log is the source of truth; implementations replace it wholesale on save.
type EventLogStore interface {
	SaveLog(ctx context.Context, data []byte) error
	// LoadLog returns the stored payload and whether one exists.
	LoadLog(ctx context.Context) ([]byte, bool, error)
}

// ScreenStore persists screen documents keyed by screen key.
type ScreenStore interface {
	PutScreen(ctx context.Context, record ScreenRecord) error
	GetScreen(ctx context.Context, key string) (ScreenRecord, error)
	ListScreens(ctx context.Context) ([]ScreenRecord, error)
	DeleteScreen(ctx context.Context, key string) error
}
