package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/billy1976-servant/screenloom/internal/screen/layout"
	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/screen/render"
	"github.com/billy1976-servant/screenloom/internal/screen/template"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/storage"
	"github.com/billy1976-servant/screenloom/internal/storage/cursor"
	"github.com/billy1976-servant/screenloom/internal/storage/memory"
)

type fakeSource map[string]node.Document

func (f fakeSource) Screen(key string) (node.Document, bool) {
	doc, ok := f[key]
	return doc, ok
}

func (f fakeSource) Keys() []string {
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type fakeQuerier struct {
	records    []storage.ScreenRecord
	lastFilter string
	err        error
}

func (f *fakeQuerier) QueryScreens(_ context.Context, filter string) ([]storage.ScreenRecord, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func homeDoc() node.Document {
	return node.Document{
		Key:      "home",
		Title:    "Home",
		Template: "standard",
		Sections: []node.Node{
			{Type: "Section", Role: "hero", Children: []node.Node{
				{Type: "Text", Content: map[string]any{"text": "Welcome"}},
			}},
			{Type: "Section", Role: "content", Children: []node.Node{
				{Type: "Text", Content: map[string]any{"text": "Body"}},
			}},
		},
	}
}

func testHandler(t *testing.T, mutate func(*HandlerConfig)) (http.Handler, *state.Store) {
	t.Helper()
	profiles, err := template.BuiltIn()
	if err != nil {
		t.Fatalf("built-in profiles: %v", err)
	}
	store := state.New(state.WithPersister(memory.New()))
	cfg := HandlerConfig{
		Source:   fakeSource{"home": homeDoc()},
		Store:    store,
		Renderer: render.New(render.BuiltIn(), profiles, layout.BuiltIn()),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, store
}

func TestHandleHealth(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestHandleRenderJSON(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens/home?experience=website", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result render.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Title != "Home" {
		t.Errorf("title = %q, want Home", result.Title)
	}
	if result.Root.Type != "Screen" {
		t.Errorf("root type = %q, want Screen", result.Root.Type)
	}
	if len(result.Traces) == 0 {
		t.Error("no layout traces in response")
	}
}

func TestHandleRenderJSONResourceName(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens/screens/home/sections/hero?experience=app", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result render.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ScreenKey != "home" {
		t.Errorf("screen key = %q, want home", result.ScreenKey)
	}
}

func TestHandleRenderJSONNotFound(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens/ghost", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRenderJSONInvalidStep(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens/home?step=later", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRenderHTML(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/home", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!doctype html>") {
		t.Errorf("body missing document preamble: %q", body)
	}
	if !strings.Contains(body, `class="sl-screen"`) {
		t.Errorf("body missing screen wrapper: %q", body)
	}
	if !strings.Contains(body, "Welcome") {
		t.Errorf("body missing hero text: %q", body)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("content type = %q, want text/html", got)
	}
}

func TestHandleDispatch(t *testing.T) {
	handler, store := testHandler(t, nil)
	body := strings.NewReader(`{"intent":"state.update","payload":{"key":"currentView","value":"editor"}}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dispatch", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if events := store.Events(); len(events) != 1 || events[0].Intent != "state.update" {
		t.Fatalf("events = %+v, want one state.update", events)
	}
}

func TestHandleDispatchValidation(t *testing.T) {
	handler, _ := testHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{"payload":{}}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing intent status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dispatch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
}

func TestHandleLayoutOverrideRequiresGrant(t *testing.T) {
	pub, priv := grantKeys(t)
	cfg := grantConfig(pub)
	handler, store := testHandler(t, func(hc *HandlerConfig) {
		hc.Grants = &cfg
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/layout",
		strings.NewReader(`{"screen":"home","sectionId":"hero","presetId":"hero-split"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no grant status = %d, want 401", rec.Code)
	}

	grant := signGrant(t, priv, nil)
	payload := `{"screen":"home","sectionId":"hero","presetId":"hero-split","grant":"` + grant + `"}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/layout", strings.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("granted status = %d, body %s", rec.Code, rec.Body.String())
	}

	overrides := store.State().LayoutByScreen["home"]
	if overrides.Section["hero"] != "hero-split" {
		t.Fatalf("override = %+v, want hero mapped to hero-split", overrides)
	}
}

func TestHandleLayoutOverrideRejectsForeignScreenGrant(t *testing.T) {
	pub, priv := grantKeys(t)
	cfg := grantConfig(pub)
	handler, _ := testHandler(t, func(hc *HandlerConfig) {
		hc.Grants = &cfg
	})

	grant := signGrant(t, priv, func(c *editorGrantClaims) { c.ScreenKey = "about" })
	payload := `{"screen":"home","sectionId":"hero","presetId":"hero-split","grant":"` + grant + `"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/layout", strings.NewReader(payload)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleLayoutOverrideUnconfigured(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/layout",
		strings.NewReader(`{"screen":"home","sectionId":"hero","presetId":"hero-split"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleListScreensFromSource(t *testing.T) {
	handler, _ := testHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var response struct {
		Screens []screenListing `json:"screens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Screens) != 1 || response.Screens[0].Key != "home" {
		t.Fatalf("screens = %+v, want [home]", response.Screens)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens?filter=key%3D%22x%22", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("filter without storage status = %d, want 400", rec.Code)
	}
}

func TestHandleListScreensWithQuerier(t *testing.T) {
	querier := &fakeQuerier{records: []storage.ScreenRecord{
		{Key: "about", UpdatedAt: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{Key: "home", UpdatedAt: time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)},
	}}
	handler, _ := testHandler(t, func(hc *HandlerConfig) {
		hc.Querier = querier
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, `/api/screens?filter=template%20%3D%20%22standard%22`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if querier.lastFilter != `template = "standard"` {
		t.Errorf("filter = %q, want pass-through", querier.lastFilter)
	}
	var response struct {
		Screens []screenListing `json:"screens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Screens) != 2 {
		t.Fatalf("screens = %+v, want 2 entries", response.Screens)
	}
}

func TestHandleListScreensPagination(t *testing.T) {
	querier := &fakeQuerier{records: []storage.ScreenRecord{
		{Key: "about"},
		{Key: "home"},
		{Key: "landing"},
	}}
	handler, _ := testHandler(t, func(hc *HandlerConfig) {
		hc.Querier = querier
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens?pageSize=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var first struct {
		Screens       []screenListing `json:"screens"`
		NextPageToken string          `json:"nextPageToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode first page: %v", err)
	}
	if len(first.Screens) != 2 || first.Screens[1].Key != "home" {
		t.Fatalf("first page = %+v, want [about home]", first.Screens)
	}
	if first.NextPageToken == "" {
		t.Fatal("no next page token")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens?pageSize=2&pageToken="+first.NextPageToken, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var second struct {
		Screens       []screenListing `json:"screens"`
		NextPageToken string          `json:"nextPageToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode second page: %v", err)
	}
	if len(second.Screens) != 1 || second.Screens[0].Key != "landing" {
		t.Fatalf("second page = %+v, want [landing]", second.Screens)
	}
	if second.NextPageToken != "" {
		t.Errorf("unexpected next page token %q", second.NextPageToken)
	}

	stale, err := cursor.Encode(cursor.Next("about", `template = "standard"`))
	if err != nil {
		t.Fatalf("encode cursor: %v", err)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screens?pageToken="+stale, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for filter mismatch", rec.Code)
	}
}

func TestNewServerValidation(t *testing.T) {
	handler, _ := testHandler(t, nil)
	if _, err := NewServer(Config{}, handler); err == nil {
		t.Fatal("expected missing address error")
	}
	if _, err := NewServer(Config{HTTPAddr: ":0"}, nil); err == nil {
		t.Fatal("expected missing handler error")
	}
	if _, err := NewServer(Config{HTTPAddr: ":0"}, handler); err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
}
