// Package state implements the append-only event log, the pure derivation
// of application state from it, and the reactive stores the renderer
// subscribes to.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billy1976-servant/screenloom/internal/state/event"
)

// Persister saves and loads the serialized event log under a single opaque
// key owned by the implementation.
type Persister interface {
	SaveLog(ctx context.Context, data []byte) error
	// LoadLog returns the stored payload and whether one exists.
	LoadLog(ctx context.Context) ([]byte, bool, error)
}

// Store owns the event log, the derived snapshot, and the subscriber set.
// It is the single mutation path for application state: all writes go
// through Dispatch. Construct one per process or per test; there are no
// package-level instances.
type Store struct {
	mu        sync.Mutex
	log       []event.Event
	derived   Derived
	listeners map[int]func(Derived)
	nextKey   int

	persister Persister
	clock     func() time.Time
	newID     func() string
}

// Option configures a Store.
type Option func(*Store)

// WithPersister attaches log persistence. Without one the store runs
// in-memory only.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock overrides event timestamping, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIDFunc overrides event id generation, for tests.
func WithIDFunc(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		derived:   emptyDerived(),
		listeners: map[int]func(Derived){},
		clock:     time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append constructs an event with a fresh id and timestamp and pushes it to
// the log without rederiving. Dispatch is the normal entry point; Append
// exists for replay tooling that batches events before a single rederive.
func (s *Store) Append(intent string, payload map[string]any) event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(intent, payload)
}

func (s *Store) appendLocked(intent string, payload map[string]any) event.Event {
	evt := event.Event{
		ID:      s.newID(),
		Time:    s.clock().UTC(),
		Intent:  intent,
		Payload: payload,
	}
	s.log = append(s.log, evt)
	return evt
}

// Dispatch appends an event, rederives the snapshot by full replay, notifies
// every subscriber synchronously, and persists the log. Each step completes
// before the next; subscribers always observe a fully-consistent snapshot.
// Persistence failures are logged and never surface to the caller.
func (s *Store) Dispatch(ctx context.Context, intent string, payload map[string]any) event.Event {
	s.mu.Lock()
	evt := s.appendLocked(intent, payload)
	s.derived = Derive(s.log)
	snapshot := s.derived
	listeners := make([]func(Derived), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}

	s.persist(ctx)
	return evt
}

// SeedCurrentView applies a screen document's default-view hint. The hint
// only seeds: an event is dispatched when no view has been set yet, so
// screen reloads and restored logs are never overridden. Reports whether an
// event was dispatched.
func (s *Store) SeedCurrentView(ctx context.Context, view string) bool {
	if strings.TrimSpace(view) == "" {
		return false
	}
	s.mu.Lock()
	current := s.derived.CurrentView
	s.mu.Unlock()
	if current != "" {
		return false
	}
	s.Dispatch(ctx, event.IntentCurrentView, event.CurrentViewPayload(view))
	return true
}

// State returns the last computed snapshot. It is cheap to call repeatedly;
// nothing is recomputed on read.
func (s *Store) State() Derived {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derived
}

// Events returns a copy of the event log.
func (s *Store) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.log))
	copy(out, s.log)
	return out
}

// Subscribe registers a listener invoked synchronously after every dispatch.
// The returned function removes the listener.
func (s *Store) Subscribe(fn func(Derived)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextKey
	s.nextKey++
	s.listeners[key] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, key)
	}
}

// Reset clears the log and snapshot. Dev-only: the log is append-only in
// every other path.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.log = nil
	s.derived = emptyDerived()
	s.mu.Unlock()
	s.persist(ctx)
}

// logEnvelope versions the persisted log format. Earlier builds wrote a bare
// event array; Restore still accepts that shape.
type logEnvelope struct {
	Version int           `json:"version"`
	Events  []event.Event `json:"events"`
}

const logFormatVersion = 1

// EncodeLog serializes events in the persistence format.
func EncodeLog(events []event.Event) ([]byte, error) {
	data, err := json.Marshal(logEnvelope{Version: logFormatVersion, Events: events})
	if err != nil {
		return nil, fmt.Errorf("encode event log: %w", err)
	}
	return data, nil
}

// DecodeLog parses the persistence format, accepting both the versioned
// envelope and the legacy bare array.
func DecodeLog(data []byte) ([]event.Event, error) {
	var envelope logEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Events != nil {
		return envelope.Events, nil
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode event log: %w", err)
	}
	return events, nil
}

// Restore wholesale-replaces the in-memory log from persistence (never
// merges) and rederives before any other event fires. Missing or unreadable
// persisted state degrades to an empty in-memory store: failures are logged,
// not returned, so startup cannot be blocked by a bad stored log.
func (s *Store) Restore(ctx context.Context) {
	if s.persister == nil {
		return
	}
	data, found, err := s.persister.LoadLog(ctx)
	if err != nil {
		log.Printf("state: load persisted log: %v", err)
		return
	}
	if !found {
		return
	}
	events, err := DecodeLog(data)
	if err != nil {
		log.Printf("state: decode persisted log: %v", err)
		return
	}
	s.mu.Lock()
	s.log = events
	s.derived = Derive(s.log)
	s.mu.Unlock()
}

func (s *Store) persist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	data, err := EncodeLog(s.Events())
	if err != nil {
		log.Printf("state: encode event log: %v", err)
		return
	}
	if err := s.persister.SaveLog(ctx, data); err != nil {
		log.Printf("state: persist event log: %v", err)
	}
}
