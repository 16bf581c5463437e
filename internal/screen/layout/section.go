// Package layout resolves which layout definition applies to a screen
// section: the section-layout-id authority ladder plus the page/molecule
// definition catalog.
package layout

import (
	"log"
	"strings"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/screen/template"
)

// FallbackSectionLayoutID is the sentinel returned when the authority ladder
// is exhausted. It keeps section resolution total.
const FallbackSectionLayoutID = "content-stack"

// Source names the ladder rung that produced a section layout id.
type Source string

const (
	SourceOverride        Source = "override"
	SourceExplicit        Source = "explicit"
	SourceTemplateRole    Source = "template-role"
	SourceTemplateDefault Source = "template-default"
	SourceFallback        Source = "fallback"
)

// SectionRequest carries everything the authority ladder consults.
type SectionRequest struct {
	// SectionKey addresses the section in override maps.
	SectionKey string
	// Node is the section node being resolved.
	Node node.Node
	// TemplateID selects the template profile for role lookups.
	TemplateID string
	// Overrides maps section keys to preset ids, highest authority.
	Overrides map[string]string
	// ProfileDefault, when set, replaces the template's own registered
	// default on the template-default rung.
	ProfileDefault string
	// Profiles resolves template-role and template-default candidates.
	Profiles *template.Registry
}

// Trace records the full ladder for one resolution call. Candidates are
// recorded whether or not they won, so a downstream debugger can see every
// value that was considered.
type Trace struct {
	SectionKey string
	TemplateID string
	// Candidate values per rung; empty means the rung had nothing.
	Override        string
	Explicit        string
	TemplateRole    string
	TemplateDefault string
	// Source is the winning rung, Resolved the id it produced.
	Source   Source
	Resolved string
	// Warning is set when resolution fell through to the sentinel.
	Warning string
}

// SectionLayoutID resolves the layout id for a section node. First match
// wins: override, explicit node layout, template role, template default,
// then the content-stack sentinel. The result is never empty.
func SectionLayoutID(req SectionRequest) (string, Trace) {
	trace := Trace{
		SectionKey: strings.TrimSpace(req.SectionKey),
		TemplateID: strings.TrimSpace(req.TemplateID),
	}

	if trace.SectionKey != "" {
		trace.Override = strings.TrimSpace(req.Overrides[trace.SectionKey])
	}
	trace.Explicit = strings.TrimSpace(req.Node.Layout.ID)

	var profile *template.Profile
	if req.Profiles != nil && trace.TemplateID != "" {
		profile, _ = req.Profiles.Lookup(trace.TemplateID)
	}
	if profile != nil && strings.TrimSpace(req.Node.Role) != "" {
		if id, ok := profile.RoleLayoutID(req.Node.Role); ok {
			trace.TemplateRole = id
		}
	}
	trace.TemplateDefault = strings.TrimSpace(req.ProfileDefault)
	if trace.TemplateDefault == "" && profile != nil {
		trace.TemplateDefault = strings.TrimSpace(profile.DefaultSectionLayoutID)
	}

	switch {
	case trace.Override != "":
		trace.Source = SourceOverride
		trace.Resolved = trace.Override
	case trace.Explicit != "":
		trace.Source = SourceExplicit
		trace.Resolved = trace.Explicit
	case trace.TemplateRole != "":
		trace.Source = SourceTemplateRole
		trace.Resolved = trace.TemplateRole
	case trace.TemplateDefault != "":
		trace.Source = SourceTemplateDefault
		trace.Resolved = trace.TemplateDefault
	default:
		trace.Source = SourceFallback
		trace.Resolved = FallbackSectionLayoutID
		if trace.SectionKey == "" {
			trace.Warning = "section key is empty; override lookup skipped"
		} else {
			trace.Warning = "no override, explicit, or template layout found"
		}
		log.Printf("layout: section %q (template %q) fell back to %s: %s",
			trace.SectionKey, trace.TemplateID, FallbackSectionLayoutID, trace.Warning)
	}

	return trace.Resolved, trace
}
