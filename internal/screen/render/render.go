// Package render turns a screen document plus the current application state
// into a resolved output tree, and renders that tree through the component
// registry.
package render

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/language"

	"github.com/billy1976-servant/screenloom/internal/screen/compose"
	"github.com/billy1976-servant/screenloom/internal/screen/content"
	"github.com/billy1976-servant/screenloom/internal/screen/layout"
	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/screen/palette"
	"github.com/billy1976-servant/screenloom/internal/screen/region"
	"github.com/billy1976-servant/screenloom/internal/screen/template"
	"github.com/billy1976-servant/screenloom/internal/screen/visibility"
	"github.com/billy1976-servant/screenloom/internal/state"
)

// Resolved is one node of the output tree after every resolution pass:
// region composition, visibility, layout ladder, param merge, and content
// localization.
type Resolved struct {
	Type      string             `json:"type"`
	ID        string             `json:"id,omitempty"`
	Role      string             `json:"role,omitempty"`
	LayoutID  string             `json:"layoutId,omitempty"`
	Layout    *layout.Definition `json:"layout,omitempty"`
	Params    map[string]any     `json:"params,omitempty"`
	Content   map[string]any     `json:"content,omitempty"`
	Collapsed bool               `json:"collapsed,omitempty"`
	// Missing is set when no component is registered for Type; the HTML
	// pass renders a diagnostic placeholder for it.
	Missing  bool       `json:"missing,omitempty"`
	Children []Resolved `json:"children,omitempty"`
}

// Result is a fully resolved screen.
type Result struct {
	ScreenKey string         `json:"screenKey,omitempty"`
	Title     string         `json:"title,omitempty"`
	Root      Resolved       `json:"root"`
	Traces    []layout.Trace `json:"traces,omitempty"`
}

// Options carries the per-request inputs to a render.
type Options struct {
	ScreenKey  string
	Experience region.Experience
	// StepIndex selects the visible section in stepped experiences.
	StepIndex int
	// ActiveSection selects the expanded section in the app experience.
	ActiveSection string
	Locale        language.Tag
	Policy        region.PolicyState
	Palette       *palette.Palette
	Snapshot      state.Derived
}

// Renderer resolves screens against a component registry, template
// profiles, and a layout catalog. It is safe for concurrent use.
type Renderer struct {
	registry *Registry
	profiles *template.Registry
	catalog  *layout.Catalog
}

// New returns a renderer over the given registries.
func New(registry *Registry, profiles *template.Registry, catalog *layout.Catalog) *Renderer {
	return &Renderer{registry: registry, profiles: profiles, catalog: catalog}
}

var tracer = otel.Tracer("screenloom/render")

// RenderScreen resolves a screen document into an output tree. Resolution
// never fails: load errors, unknown layouts, and unregistered components
// all degrade to visible fallbacks.
func (r *Renderer) RenderScreen(ctx context.Context, doc node.Document, opts Options) Result {
	_, span := tracer.Start(ctx, "render.screen")
	span.SetAttributes(
		attribute.String("screen.key", opts.ScreenKey),
		attribute.String("screen.experience", string(opts.Experience)),
	)
	defer span.End()

	if opts.Palette == nil {
		opts.Palette = palette.Default()
	}

	composed := compose.Compose(compose.Input{
		Nodes:      doc.Sections,
		Policy:     opts.Policy,
		Experience: opts.Experience,
	})

	snapshotJSON, err := json.Marshal(opts.Snapshot)
	if err != nil {
		log.Printf("render: encode state snapshot: %v", err)
		snapshotJSON = []byte("{}")
	}
	var env map[string]any
	if err := json.Unmarshal(snapshotJSON, &env); err != nil {
		env = map[string]any{}
	}

	profile, _ := r.profiles.Lookup(doc.Template)

	rc := &renderContext{
		opts:         opts,
		profile:      profile,
		templateID:   doc.Template,
		snapshotJSON: snapshotJSON,
		env:          env,
		sectionKeys:  node.SectionKeys(composed.Children),
		overrides:    opts.Snapshot.LayoutByScreen[opts.ScreenKey].Section,
	}

	root, _ := r.renderNode(composed, 0, rc)
	span.SetAttributes(attribute.Int("screen.sections", len(rc.sectionKeys)))

	return Result{
		ScreenKey: opts.ScreenKey,
		Title:     doc.Title,
		Root:      root,
		Traces:    rc.traces,
	}
}

// HTML renders a resolved tree through the renderer's component registry.
func (r *Renderer) HTML(resolved Resolved) templ.Component {
	return r.registry.HTML(resolved)
}

type renderContext struct {
	opts         Options
	profile      *template.Profile
	templateID   string
	snapshotJSON []byte
	env          map[string]any
	sectionKeys  []string
	overrides    map[string]string
	traces       []layout.Trace
}

// renderNode resolves one node. The second return is false when the node is
// gated out entirely.
func (r *Renderer) renderNode(n node.Node, depth int, rc *renderContext) (Resolved, bool) {
	if !whenPasses(n.When, rc.snapshotJSON, rc.env) {
		return Resolved{}, false
	}

	verdict := visibility.For(string(rc.opts.Experience), n, depth, rc.opts.StepIndex, rc.sectionKeys, rc.opts.ActiveSection)
	if verdict == visibility.Hide {
		return Resolved{}, false
	}

	resolved := Resolved{
		Type: n.Type,
		ID:   n.ID,
		Role: n.Role,
	}

	component, registered := r.registry.Lookup(n.Type)
	resolved.Missing = !registered

	var profileParams map[string]any
	if n.IsSection() {
		layoutID, trace := layout.SectionLayoutID(layout.SectionRequest{
			SectionKey: n.SectionKey(),
			Node:       n,
			TemplateID: rc.templateID,
			Overrides:  rc.overrides,
			Profiles:   r.profiles,
		})
		rc.traces = append(rc.traces, trace)
		resolved.LayoutID = layoutID
		resolved.Layout = r.catalog.Resolve(layoutID)

		if rc.profile != nil {
			if def, ok := rc.profile.Sections[roleKey(n)]; ok {
				profileParams = def.Params
			}
		}
	}

	sources := make([]map[string]any, 0, 5)
	if component.Defaults != nil {
		sources = append(sources, component.Defaults)
	}
	if profileParams != nil {
		sources = append(sources, profileParams)
	}
	if n.Variant != "" && component.Variants != nil {
		if preset, ok := component.Variants[n.Variant]; ok {
			sources = append(sources, preset)
		}
	}
	if n.Size != "" && component.Sizes != nil {
		if preset, ok := component.Sizes[n.Size]; ok {
			sources = append(sources, preset)
		}
	}
	if n.Params != nil {
		sources = append(sources, n.Params)
	}
	if len(sources) > 0 {
		resolved.Params = palette.Resolve(rc.opts.Palette, sources...)
	}

	// A molecule-level layout spec resolves through the catalog and travels
	// in params so the component can consume it.
	if n.Layout.Spec != nil {
		resolved.Params = attachMolecule(resolved.Params, n.Layout.Spec, r.catalog)
	}

	resolved.Content = content.Localize(n.Content, rc.opts.Locale)

	if verdict == visibility.Collapse {
		resolved.Collapsed = true
		return resolved, true
	}

	for _, child := range n.Children {
		rendered, ok := r.renderNode(child, depth+1, rc)
		if !ok {
			continue
		}
		resolved.Children = append(resolved.Children, rendered)
	}
	return resolved, true
}

func attachMolecule(params map[string]any, spec *node.LayoutSpec, catalog *layout.Catalog) map[string]any {
	layoutValue := map[string]any{"type": spec.Type}
	if spec.Preset != "" {
		layoutValue["preset"] = spec.Preset
		if def := catalog.Resolve(spec.Preset); def != nil && def.Molecule != nil {
			layoutValue["flow"] = def.Molecule.Flow
			if def.Molecule.Params != nil {
				layoutValue["presetParams"] = def.Molecule.Params
			}
		}
	}
	if spec.Params != nil {
		layoutValue["params"] = spec.Params
	}
	merged := make(map[string]any, len(params)+1)
	for key, value := range params {
		merged[key] = value
	}
	merged["layout"] = layoutValue
	return merged
}

func roleKey(n node.Node) string {
	role := n.Role
	if role == "" {
		role = n.ID
	}
	return strings.ToLower(strings.TrimSpace(role))
}
