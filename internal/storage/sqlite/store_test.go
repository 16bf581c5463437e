package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/billy1976-servant/screenloom/internal/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestSaveLoadLogRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if _, found, err := store.LoadLog(ctx); err != nil || found {
		t.Fatalf("LoadLog on empty store = found %v, err %v, want not found", found, err)
	}

	payload := []byte(`{"version":1,"events":[]}`)
	if err := store.SaveLog(ctx, payload); err != nil {
		t.Fatalf("save log: %v", err)
	}
	got, found, err := store.LoadLog(ctx)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	if !found {
		t.Fatal("log not found after save")
	}
	if string(got) != string(payload) {
		t.Fatalf("loaded log = %s, want %s", got, payload)
	}

	// Save replaces wholesale.
	replacement := []byte(`{"version":1,"events":[{"id":"e1"}]}`)
	if err := store.SaveLog(ctx, replacement); err != nil {
		t.Fatalf("save replacement log: %v", err)
	}
	got, _, err = store.LoadLog(ctx)
	if err != nil {
		t.Fatalf("load replacement log: %v", err)
	}
	if string(got) != string(replacement) {
		t.Fatalf("loaded log = %s, want %s", got, replacement)
	}
}

func TestPutGetScreenRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	document := json.RawMessage(`{"key":"home","sections":[]}`)

	record := storage.ScreenRecord{Key: "home", Document: document, UpdatedAt: now}
	if err := store.PutScreen(ctx, record); err != nil {
		t.Fatalf("put screen: %v", err)
	}

	got, err := store.GetScreen(ctx, "home")
	if err != nil {
		t.Fatalf("get screen: %v", err)
	}
	if got.Key != "home" {
		t.Fatalf("key = %q, want home", got.Key)
	}
	if string(got.Document) != string(document) {
		t.Fatalf("document = %s, want %s", got.Document, document)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, now)
	}
}

func TestGetScreenMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetScreen(context.Background(), "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutScreenReplacesDocument(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	first := storage.ScreenRecord{Key: "home", Document: json.RawMessage(`{"v":1}`)}
	if err := store.PutScreen(ctx, first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	second := storage.ScreenRecord{Key: "home", Document: json.RawMessage(`{"v":2}`)}
	if err := store.PutScreen(ctx, second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := store.GetScreen(ctx, "home")
	if err != nil {
		t.Fatalf("get screen: %v", err)
	}
	if string(got.Document) != `{"v":2}` {
		t.Fatalf("document = %s, want replacement", got.Document)
	}
}

func TestListScreensOrdered(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	for _, key := range []string{"zebra", "alpha", "mango"} {
		record := storage.ScreenRecord{Key: key, Document: json.RawMessage(`{}`)}
		if err := store.PutScreen(ctx, record); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	records, err := store.ListScreens(ctx)
	if err != nil {
		t.Fatalf("list screens: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("listed %d screens, want 3", len(records))
	}
	want := []string{"alpha", "mango", "zebra"}
	for i, record := range records {
		if record.Key != want[i] {
			t.Fatalf("records[%d].Key = %q, want %q", i, record.Key, want[i])
		}
	}
}

func TestDeleteScreen(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	record := storage.ScreenRecord{Key: "home", Document: json.RawMessage(`{}`)}
	if err := store.PutScreen(ctx, record); err != nil {
		t.Fatalf("put screen: %v", err)
	}

	if err := store.DeleteScreen(ctx, "home"); err != nil {
		t.Fatalf("delete screen: %v", err)
	}
	if _, err := store.GetScreen(ctx, "home"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteScreen(ctx, "home"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestQueryScreensFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	screens := []storage.ScreenRecord{
		{
			Key:       "home",
			Document:  json.RawMessage(`{"key":"home","title":"Home","template":"standard"}`),
			UpdatedAt: time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			Key:       "about",
			Document:  json.RawMessage(`{"key":"about","title":"About","template":"standard"}`),
			UpdatedAt: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Key:       "landing",
			Document:  json.RawMessage(`{"key":"landing","title":"Launch","template":"marketing"}`),
			UpdatedAt: time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, record := range screens {
		if err := store.PutScreen(ctx, record); err != nil {
			t.Fatalf("put %s: %v", record.Key, err)
		}
	}

	all, err := store.QueryScreens(ctx, "")
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("query all returned %d screens, want 3", len(all))
	}

	standard, err := store.QueryScreens(ctx, `template = "standard"`)
	if err != nil {
		t.Fatalf("query by template: %v", err)
	}
	if len(standard) != 2 {
		t.Fatalf("standard screens = %d, want 2", len(standard))
	}
	if standard[0].Key != "about" || standard[1].Key != "home" {
		t.Fatalf("standard keys = [%s %s], want [about home]", standard[0].Key, standard[1].Key)
	}

	recent, err := store.QueryScreens(ctx, `updated_at >= timestamp("2026-08-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("query by timestamp: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent screens = %d, want 2", len(recent))
	}

	combined, err := store.QueryScreens(ctx, `template = "standard" AND updated_at >= timestamp("2026-08-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("query combined: %v", err)
	}
	if len(combined) != 1 || combined[0].Key != "home" {
		t.Fatalf("combined = %v, want only home", combined)
	}

	if _, err := store.QueryScreens(ctx, `owner = "alice"`); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestPutScreenValidation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutScreen(ctx, storage.ScreenRecord{Document: json.RawMessage(`{}`)}); err == nil {
		t.Fatal("expected missing key error")
	}
	if err := store.PutScreen(ctx, storage.ScreenRecord{Key: "home"}); err == nil {
		t.Fatal("expected missing document error")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "screens.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
