package screenctl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/state/event"
	"github.com/billy1976-servant/screenloom/internal/storage"
	"github.com/billy1976-servant/screenloom/internal/storage/sqlite"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

const validScreen = `{
  "key": "home",
  "title": "Home",
  "template": "standard",
  "sections": [
    {"type": "Section", "role": "hero", "layout": "hero-banner"}
  ]
}`

const legacyScreen = `{
  "key": "home",
  "sections": [
    {
      "type": "Section",
      "role": "hero",
      "layout": {"type": "hero-banner", "params": {"align": "center"}},
      "children": [{"type": "Text", "content": {"text": "Hi"}}]
    }
  ]
}`

func TestRunRequiresCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := Run(context.Background(), nil, &out, &errOut); err == nil {
		t.Fatal("expected missing command error")
	}
	if !strings.Contains(errOut.String(), "usage:") {
		t.Errorf("stderr = %q, want usage", errOut.String())
	}
	if err := Run(context.Background(), []string{"publish"}, &out, &errOut); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestRunValidate(t *testing.T) {
	good := writeFile(t, "good.json", validScreen)

	var out bytes.Buffer
	if err := Run(context.Background(), []string{"validate", good}, &out, nil); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "ok "+good) {
		t.Errorf("output = %q, want ok line", out.String())
	}

	bad := writeFile(t, "bad.json", `{"sections": "nope"}`)
	out.Reset()
	if err := Run(context.Background(), []string{"validate", bad}, &out, nil); err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out.String(), "invalid "+bad) {
		t.Errorf("output = %q, want invalid line", out.String())
	}
}

func TestRunMigrateCollapsesLegacyLayout(t *testing.T) {
	path := writeFile(t, "legacy.json", legacyScreen)

	var out bytes.Buffer
	if err := Run(context.Background(), []string{"migrate", "-w", path}, &out, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "migrated "+path) {
		t.Errorf("output = %q, want migrated line", out.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migrated file: %v", err)
	}
	doc, err := node.Parse(data)
	if err != nil {
		t.Fatalf("parse migrated file: %v", err)
	}
	hero := doc.Sections[0]
	if hero.Layout.ID != "hero-banner" || hero.Layout.Spec != nil {
		t.Errorf("layout = %+v, want flat id hero-banner", hero.Layout)
	}
	if hero.Params["align"] != "center" {
		t.Errorf("params = %v, want align carried over", hero.Params)
	}
	if len(hero.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(hero.Children))
	}

	out.Reset()
	if err := Run(context.Background(), []string{"migrate", "-w", path}, &out, nil); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !strings.Contains(out.String(), "unchanged "+path) {
		t.Errorf("output = %q, want unchanged on second run", out.String())
	}
}

func TestRunMigrateKeepsNodeParamPrecedence(t *testing.T) {
	path := writeFile(t, "legacy.json", `{
  "sections": [
    {
      "type": "Section",
      "role": "hero",
      "layout": {"type": "hero-banner", "params": {"align": "center"}},
      "params": {"align": "start"}
    }
  ]
}`)

	var out bytes.Buffer
	if err := Run(context.Background(), []string{"migrate", path}, &out, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	doc, err := node.Parse(out.Bytes())
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if got := doc.Sections[0].Params["align"]; got != "start" {
		t.Errorf("align = %v, want node param to win", got)
	}
}

func TestRunGenerate(t *testing.T) {
	script := writeFile(t, "landing.lua", `
local s = Screen.new("landing")
s:title("Landing")
s:section("hero", {layout = "hero-split"})
return s
`)
	outPath := filepath.Join(t.TempDir(), "landing.json")

	if err := Run(context.Background(), []string{"generate", "-o", outPath, script}, nil, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	doc, err := node.Parse(data)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if doc.Key != "landing" || doc.Title != "Landing" {
		t.Errorf("doc = %+v, want landing/Landing", doc)
	}
}

func TestRunList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "screens.db")
	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, key := range []string{"home", "about"} {
		record := storage.ScreenRecord{
			Key:       key,
			Document:  json.RawMessage(`{"sections": []}`),
			UpdatedAt: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		}
		if err := store.PutScreen(context.Background(), record); err != nil {
			t.Fatalf("put screen: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	var out bytes.Buffer
	if err := Run(context.Background(), []string{"list", "-db-path", dbPath}, &out, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "about") {
		t.Fatalf("lines = %q, want about then home", lines)
	}

	out.Reset()
	if err := Run(context.Background(), []string{"list", "-db-path", dbPath, "-filter", `key = "home"`}, &out, nil); err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if got := strings.TrimSpace(out.String()); !strings.HasPrefix(got, "home") {
		t.Fatalf("filtered output = %q, want home only", got)
	}
}

func TestRunEvents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "screens.db")
	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	data, err := state.EncodeLog([]event.Event{
		{
			ID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
			Time:    time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
			Intent:  event.IntentCurrentView,
			Payload: event.CurrentViewPayload("menu"),
		},
	})
	if err != nil {
		t.Fatalf("encode log: %v", err)
	}
	if err := store.SaveLog(context.Background(), data); err != nil {
		t.Fatalf("save log: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	var out bytes.Buffer
	if err := Run(context.Background(), []string{"events", "-db-path", dbPath}, &out, nil); err != nil {
		t.Fatalf("events: %v", err)
	}
	got := strings.TrimSpace(out.String())
	want := `2026-08-01T12:00:00Z 0f8fad5b state:currentView {"view":"menu"}`
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
