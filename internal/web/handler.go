// Package web hosts the development HTTP server: screen rendering, event
// dispatch, and grant-guarded layout edits.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/billy1976-servant/screenloom/internal/screen/content"
	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/screen/palette"
	"github.com/billy1976-servant/screenloom/internal/screen/region"
	"github.com/billy1976-servant/screenloom/internal/screen/render"
	"github.com/billy1976-servant/screenloom/internal/screenkey"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/state/event"
	"github.com/billy1976-servant/screenloom/internal/storage"
	"github.com/billy1976-servant/screenloom/internal/storage/cursor"
)

// dispatchPayloadLimit caps the request body size for mutation endpoints.
const dispatchPayloadLimit = 1 << 20

// ScreenSource supplies parsed screen documents by key.
type ScreenSource interface {
	Screen(key string) (node.Document, bool)
	Keys() []string
}

// ScreenQuerier answers filtered screen listings from persistent storage.
type ScreenQuerier interface {
	QueryScreens(ctx context.Context, filter string) ([]storage.ScreenRecord, error)
}

// Handler routes screen rendering and mutation requests.
type Handler struct {
	source   ScreenSource
	store    *state.Store
	layouts  *state.LayoutStore
	palettes *state.PaletteStore
	renderer *render.Renderer
	querier  ScreenQuerier
	grants   *EditorGrantConfig
}

// HandlerConfig wires the handler's collaborators. Querier and Grants are
// optional: without a querier the listing endpoint falls back to the source
// keys, and without grants the layout endpoint rejects every request.
type HandlerConfig struct {
	Source   ScreenSource
	Store    *state.Store
	Layouts  *state.LayoutStore
	Palettes *state.PaletteStore
	Renderer *render.Renderer
	Querier  ScreenQuerier
	Grants   *EditorGrantConfig
}

// NewHandler builds the HTTP handler for the development server.
func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if cfg.Source == nil {
		return nil, errors.New("screen source is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.Layouts == nil {
		cfg.Layouts = state.NewLayoutStore()
	}
	if cfg.Palettes == nil {
		cfg.Palettes = state.NewPaletteStore()
	}

	h := &Handler{
		source:   cfg.Source,
		store:    cfg.Store,
		layouts:  cfg.Layouts,
		palettes: cfg.Palettes,
		renderer: cfg.Renderer,
		querier:  cfg.Querier,
		grants:   cfg.Grants,
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(h.handleHealth))
	mux.Handle("/api/screens", http.HandlerFunc(h.handleListScreens))
	mux.Handle("/api/screens/", http.HandlerFunc(h.handleRenderJSON))
	mux.Handle("/api/dispatch", http.HandlerFunc(h.handleDispatch))
	mux.Handle("/api/layout", http.HandlerFunc(h.handleLayoutOverride))
	mux.Handle("/screens/", http.HandlerFunc(h.handleRenderHTML))
	return withTracing(mux), nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// screenListing is one row of the listing response.
type screenListing struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (h *Handler) handleListScreens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	filter := strings.TrimSpace(query.Get("filter"))

	pageSize := 0
	if raw := strings.TrimSpace(query.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid page size %q", raw))
			return
		}
		pageSize = size
	}

	var listings []screenListing
	if h.querier != nil {
		records, err := h.querier.QueryScreens(r.Context(), filter)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		listings = make([]screenListing, 0, len(records))
		for _, record := range records {
			listings = append(listings, screenListing{Key: record.Key, UpdatedAt: record.UpdatedAt})
		}
	} else {
		if filter != "" {
			writeJSONError(w, http.StatusBadRequest, "filtering requires persistent storage")
			return
		}
		listings = make([]screenListing, 0)
		for _, key := range h.source.Keys() {
			listings = append(listings, screenListing{Key: key})
		}
	}

	if token := strings.TrimSpace(query.Get("pageToken")); token != "" {
		position, err := cursor.Decode(token)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := cursor.Validate(position, filter); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		start := len(listings)
		for i, listing := range listings {
			if listing.Key > position.Key {
				start = i
				break
			}
		}
		listings = listings[start:]
	}

	response := map[string]any{}
	if pageSize > 0 && len(listings) > pageSize {
		listings = listings[:pageSize]
		next, err := cursor.Encode(cursor.Next(listings[len(listings)-1].Key, filter))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		response["nextPageToken"] = next
	}
	response["screens"] = listings
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleRenderJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/screens/"), "/")
	result, status, err := h.renderScreen(w, r, key)
	if err != nil {
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRenderHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/screens/"), "/")
	result, status, err := h.renderScreen(w, r, key)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprintf(w, "<!doctype html>\n<html lang=%q><head><meta charset=\"utf-8\"><title>%s</title></head><body>", languageAttr(r), html.EscapeString(htmlTitle(result))); err != nil {
		return
	}
	if err := h.renderer.HTML(result.Root).Render(r.Context(), w); err != nil {
		log.Printf("web: render screen %s html: %v", key, err)
		return
	}
	_, _ = fmt.Fprint(w, "</body></html>")
}

// renderScreen resolves one screen for a request; the error status is only
// meaningful when err is non-nil.
func (h *Handler) renderScreen(w http.ResponseWriter, r *http.Request, key string) (render.Result, int, error) {
	if key == "" {
		return render.Result{}, http.StatusNotFound, errors.New("screen key is required")
	}
	name, err := screenkey.Parse(key)
	if err != nil {
		return render.Result{}, http.StatusNotFound, err
	}
	doc, ok := h.source.Screen(name.ScreenID)
	if !ok {
		return render.Result{}, http.StatusNotFound, fmt.Errorf("screen %q not found", name.ScreenID)
	}

	query := r.URL.Query()
	section := strings.TrimSpace(query.Get("section"))
	if section == "" && name.HasSection() {
		section = name.SectionID
	}
	opts := render.Options{
		ScreenKey:     name.ScreenID,
		Experience:    region.Experience(strings.TrimSpace(query.Get("experience"))),
		ActiveSection: section,
		Policy:        h.layouts.Policy(name.ScreenID),
		Snapshot:      h.store.State(),
	}
	if step := strings.TrimSpace(query.Get("step")); step != "" {
		index, err := strconv.Atoi(step)
		if err != nil || index < 0 {
			return render.Result{}, http.StatusBadRequest, fmt.Errorf("invalid step %q", step)
		}
		opts.StepIndex = index
	}
	if name := strings.TrimSpace(query.Get("palette")); name != "" {
		opts.Palette = palette.ByName(name)
	} else {
		opts.Palette = h.palettes.Palette()
	}

	tag, persist := content.ResolveTag(r)
	opts.Locale = tag
	if persist {
		http.SetCookie(w, &http.Cookie{
			Name:     content.LangCookieName,
			Value:    tag.String(),
			Path:     "/",
			HttpOnly: true,
		})
	}

	return h.renderer.RenderScreen(r.Context(), doc, opts), http.StatusOK, nil
}

// dispatchRequest is the mutation envelope for the dispatch endpoint.
type dispatchRequest struct {
	Intent  string         `json:"intent"`
	Payload map[string]any `json:"payload"`
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req dispatchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Intent) == "" {
		writeJSONError(w, http.StatusBadRequest, "intent is required")
		return
	}
	evt := h.store.Dispatch(r.Context(), req.Intent, req.Payload)
	writeJSON(w, http.StatusOK, map[string]any{"event": evt})
}

// layoutOverrideRequest targets one section of one screen with a preset.
type layoutOverrideRequest struct {
	Screen    string `json:"screen"`
	SectionID string `json:"sectionId"`
	PresetID  string `json:"presetId"`
	Grant     string `json:"grant"`
}

func (h *Handler) handleLayoutOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.grants == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "layout editing is not configured")
		return
	}
	var req layoutOverrideRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Screen) == "" || strings.TrimSpace(req.SectionID) == "" || strings.TrimSpace(req.PresetID) == "" {
		writeJSONError(w, http.StatusBadRequest, "screen, sectionId, and presetId are required")
		return
	}

	expected := EditorGrantExpectation{ScreenKey: req.Screen, Scope: EditorGrantScopeLayout}
	if _, err := ValidateEditorGrant(req.Grant, expected, *h.grants); err != nil {
		writeJSONError(w, http.StatusUnauthorized, err.Error())
		return
	}

	evt := h.store.Dispatch(r.Context(), event.IntentLayoutOverride,
		event.LayoutOverridePayload(req.Screen, "", req.SectionID, req.PresetID))
	writeJSON(w, http.StatusOK, map[string]any{"event": evt})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, into any) error {
	body := http.MaxBytesReader(w, r.Body, dispatchPayloadLimit)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func languageAttr(r *http.Request) string {
	tag, _ := content.ResolveTag(r)
	if tag == (language.Tag{}) {
		return content.Default().String()
	}
	return tag.String()
}

func htmlTitle(result render.Result) string {
	if result.Title != "" {
		return result.Title
	}
	return result.ScreenKey
}
