package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/language"

	"github.com/billy1976-servant/screenloom/internal/screen/content"
	"github.com/billy1976-servant/screenloom/internal/screen/palette"
	"github.com/billy1976-servant/screenloom/internal/screen/region"
	"github.com/billy1976-servant/screenloom/internal/screen/render"
	"github.com/billy1976-servant/screenloom/internal/screenkey"
)

// ScreenRenderInput represents the MCP tool input for rendering a screen.
type ScreenRenderInput struct {
	Screen     string `json:"screen" jsonschema:"screen key to render"`
	Experience string `json:"experience,omitempty" jsonschema:"rendering experience (website, app, learning)"`
	Step       int    `json:"step,omitempty" jsonschema:"visible step index for stepped experiences"`
	Section    string `json:"section,omitempty" jsonschema:"active section id for the app experience"`
	Palette    string `json:"palette,omitempty" jsonschema:"palette name to resolve tokens against"`
	Lang       string `json:"lang,omitempty" jsonschema:"BCP 47 locale for content selection"`
}

// ScreenRenderResult represents the MCP tool output for rendering a screen.
type ScreenRenderResult struct {
	ScreenKey string `json:"screen_key" jsonschema:"key of the rendered screen"`
	Title     string `json:"title,omitempty" jsonschema:"screen title"`
	Tree      string `json:"tree" jsonschema:"resolved output tree encoded as JSON"`
	HTML      string `json:"html" jsonschema:"resolved screen rendered as HTML"`
}

// ScreenRenderTool defines the MCP tool schema for rendering a screen.
func ScreenRenderTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "screen_render",
		Description: "Resolves a screen document against the current state and returns the output tree and its HTML.",
	}
}

// ScreenRenderHandler executes a screen render request.
func ScreenRenderHandler(server *Server) mcp.ToolHandlerFor[ScreenRenderInput, ScreenRenderResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ScreenRenderInput) (*mcp.CallToolResult, ScreenRenderResult, error) {
		result, err := server.renderScreen(ctx, input)
		if err != nil {
			return nil, ScreenRenderResult{}, err
		}

		tree, err := json.Marshal(result.Root)
		if err != nil {
			return nil, ScreenRenderResult{}, fmt.Errorf("encode output tree: %w", err)
		}
		var sb strings.Builder
		if err := server.renderer.HTML(result.Root).Render(ctx, &sb); err != nil {
			return nil, ScreenRenderResult{}, fmt.Errorf("render html: %w", err)
		}

		return nil, ScreenRenderResult{
			ScreenKey: result.ScreenKey,
			Title:     result.Title,
			Tree:      string(tree),
			HTML:      sb.String(),
		}, nil
	}
}

// ScreenDispatchInput represents the MCP tool input for dispatching an event.
type ScreenDispatchInput struct {
	Intent  string         `json:"intent" jsonschema:"mutation intent name"`
	Payload map[string]any `json:"payload,omitempty" jsonschema:"intent-specific payload"`
}

// ScreenDispatchResult represents the MCP tool output for dispatching an event.
type ScreenDispatchResult struct {
	EventID string `json:"event_id" jsonschema:"identifier of the appended event"`
	Intent  string `json:"intent" jsonschema:"intent that was dispatched"`
	Time    string `json:"time" jsonschema:"RFC3339 timestamp when the event was appended"`
}

// ScreenDispatchTool defines the MCP tool schema for dispatching an event.
func ScreenDispatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "screen_dispatch",
		Description: "Appends an intent event to the state log and re-derives the application state.",
	}
}

// ScreenDispatchHandler executes a dispatch request.
func ScreenDispatchHandler(server *Server) mcp.ToolHandlerFor[ScreenDispatchInput, ScreenDispatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ScreenDispatchInput) (*mcp.CallToolResult, ScreenDispatchResult, error) {
		intent := strings.TrimSpace(input.Intent)
		if intent == "" {
			return nil, ScreenDispatchResult{}, fmt.Errorf("intent is required")
		}
		evt := server.store.Dispatch(ctx, intent, input.Payload)
		return nil, ScreenDispatchResult{
			EventID: evt.ID,
			Intent:  evt.Intent,
			Time:    evt.Time.UTC().Format(time.RFC3339),
		}, nil
	}
}

// LayoutTraceInput represents the MCP tool input for explaining layout resolution.
type LayoutTraceInput struct {
	Screen     string `json:"screen" jsonschema:"screen key to resolve"`
	Experience string `json:"experience,omitempty" jsonschema:"rendering experience (website, app, learning)"`
}

// LayoutTraceEntry explains the resolution of one section.
type LayoutTraceEntry struct {
	Section         string `json:"section" jsonschema:"section key"`
	Template        string `json:"template,omitempty" jsonschema:"template id in effect"`
	Override        string `json:"override,omitempty" jsonschema:"candidate from a recorded override"`
	Explicit        string `json:"explicit,omitempty" jsonschema:"candidate declared on the section"`
	TemplateRole    string `json:"template_role,omitempty" jsonschema:"candidate from the template role mapping"`
	TemplateDefault string `json:"template_default,omitempty" jsonschema:"candidate from the template default"`
	Source          string `json:"source" jsonschema:"winning rung"`
	Resolved        string `json:"resolved" jsonschema:"layout id the section resolved to"`
	Warning         string `json:"warning,omitempty" jsonschema:"set when resolution fell through to the fallback"`
}

// LayoutTraceResult represents the MCP tool output for layout tracing.
type LayoutTraceResult struct {
	ScreenKey string             `json:"screen_key" jsonschema:"key of the traced screen"`
	Traces    []LayoutTraceEntry `json:"traces" jsonschema:"per-section resolution traces"`
}

// LayoutTraceTool defines the MCP tool schema for layout tracing.
func LayoutTraceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "layout_trace",
		Description: "Explains which rung of the layout ladder chose each section's layout for a screen.",
	}
}

// LayoutTraceHandler executes a layout trace request.
func LayoutTraceHandler(server *Server) mcp.ToolHandlerFor[LayoutTraceInput, LayoutTraceResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LayoutTraceInput) (*mcp.CallToolResult, LayoutTraceResult, error) {
		result, err := server.renderScreen(ctx, ScreenRenderInput{
			Screen:     input.Screen,
			Experience: input.Experience,
		})
		if err != nil {
			return nil, LayoutTraceResult{}, err
		}

		entries := make([]LayoutTraceEntry, 0, len(result.Traces))
		for _, trace := range result.Traces {
			entries = append(entries, LayoutTraceEntry{
				Section:         trace.SectionKey,
				Template:        trace.TemplateID,
				Override:        trace.Override,
				Explicit:        trace.Explicit,
				TemplateRole:    trace.TemplateRole,
				TemplateDefault: trace.TemplateDefault,
				Source:          string(trace.Source),
				Resolved:        trace.Resolved,
				Warning:         trace.Warning,
			})
		}
		return nil, LayoutTraceResult{ScreenKey: result.ScreenKey, Traces: entries}, nil
	}
}

// ScreenListInput represents the MCP tool input for listing screens.
type ScreenListInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"AIP-160 filter over key, title, template, and updated_at"`
}

// ScreenSummary is one row of a screen listing.
type ScreenSummary struct {
	Key       string `json:"key" jsonschema:"screen key"`
	UpdatedAt string `json:"updated_at,omitempty" jsonschema:"RFC3339 timestamp of the last write"`
}

// ScreenListResult represents the MCP tool output for listing screens.
type ScreenListResult struct {
	Screens []ScreenSummary `json:"screens" jsonschema:"matching screens ordered by key"`
}

// ScreenListTool defines the MCP tool schema for listing screens.
func ScreenListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "screen_list",
		Description: "Lists loaded screens, optionally filtered with an AIP-160 expression against persistent storage.",
	}
}

// ScreenListHandler executes a screen listing request.
func ScreenListHandler(server *Server) mcp.ToolHandlerFor[ScreenListInput, ScreenListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ScreenListInput) (*mcp.CallToolResult, ScreenListResult, error) {
		filter := strings.TrimSpace(input.Filter)

		if server.querier != nil {
			records, err := server.querier.QueryScreens(ctx, filter)
			if err != nil {
				return nil, ScreenListResult{}, fmt.Errorf("query screens: %w", err)
			}
			summaries := make([]ScreenSummary, 0, len(records))
			for _, record := range records {
				summaries = append(summaries, ScreenSummary{
					Key:       record.Key,
					UpdatedAt: record.UpdatedAt.UTC().Format(time.RFC3339),
				})
			}
			return nil, ScreenListResult{Screens: summaries}, nil
		}

		if filter != "" {
			return nil, ScreenListResult{}, fmt.Errorf("filtering requires persistent storage")
		}
		summaries := make([]ScreenSummary, 0)
		for _, key := range server.source.Keys() {
			summaries = append(summaries, ScreenSummary{Key: key})
		}
		return nil, ScreenListResult{Screens: summaries}, nil
	}
}

// renderScreen resolves one screen for a tool call.
func (s *Server) renderScreen(ctx context.Context, input ScreenRenderInput) (render.Result, error) {
	name, err := screenkey.Parse(input.Screen)
	if err != nil {
		return render.Result{}, err
	}
	doc, ok := s.source.Screen(name.ScreenID)
	if !ok {
		return render.Result{}, fmt.Errorf("screen %q not found", name.ScreenID)
	}
	if input.Step < 0 {
		return render.Result{}, fmt.Errorf("step must not be negative")
	}

	section := strings.TrimSpace(input.Section)
	if section == "" && name.HasSection() {
		section = name.SectionID
	}
	opts := render.Options{
		ScreenKey:     name.ScreenID,
		Experience:    region.Experience(strings.TrimSpace(input.Experience)),
		StepIndex:     input.Step,
		ActiveSection: section,
		Policy:        s.layouts.Policy(name.ScreenID),
		Snapshot:      s.store.State(),
	}
	if paletteName := strings.TrimSpace(input.Palette); paletteName != "" {
		opts.Palette = palette.ByName(paletteName)
	} else {
		opts.Palette = s.palettes.Palette()
	}
	opts.Locale = content.Default()
	if lang := strings.TrimSpace(input.Lang); lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return render.Result{}, fmt.Errorf("parse lang %q: %w", lang, err)
		}
		opts.Locale = tag
	}

	return s.renderer.RenderScreen(ctx, doc, opts), nil
}
