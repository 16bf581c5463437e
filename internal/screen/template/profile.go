// Package template holds template profiles: per-template defaults applied to
// screen sections during layout resolution and render.
package template

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

// SectionDefault is the layout default a template registers for one section
// role.
type SectionDefault struct {
	// LayoutID is the page layout applied when the node carries none.
	LayoutID string `json:"layoutId,omitempty"`
	// Params are parameter defaults merged below the node's own params.
	Params map[string]any `json:"params,omitempty"`
}

// Profile bundles the template-scoped defaults for screen composition.
// Profiles are loaded from static configuration and immutable at runtime.
type Profile struct {
	// ID is the template id documents reference.
	ID string `json:"id"`
	// Sections maps section roles to their layout defaults.
	Sections map[string]SectionDefault `json:"sections,omitempty"`
	// DefaultSectionLayoutID applies when no role default matches.
	DefaultSectionLayoutID string `json:"defaultSectionLayoutId,omitempty"`
	// ContainerWidthByRole overrides container width per section role.
	ContainerWidthByRole map[string]string `json:"containerWidthByRole,omitempty"`
	// Spacing names the spacing preset bundle.
	Spacing string `json:"spacing,omitempty"`
	// CardPreset names the default card preset.
	CardPreset string `json:"cardPreset,omitempty"`
	// HeroPreset names the default hero preset.
	HeroPreset string `json:"heroPreset,omitempty"`
	// Capabilities flags optional template behaviors.
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

// RoleLayoutID returns the page layout id registered for a section role.
func (p *Profile) RoleLayoutID(role string) (string, bool) {
	if p == nil {
		return "", false
	}
	def, ok := p.Sections[strings.ToLower(strings.TrimSpace(role))]
	if !ok || strings.TrimSpace(def.LayoutID) == "" {
		return "", false
	}
	return def.LayoutID, true
}

// Registry looks up template profiles by id.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry returns an empty profile registry.
func NewRegistry() *Registry {
	return &Registry{profiles: map[string]*Profile{}}
}

// Register adds or replaces a profile.
func (r *Registry) Register(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	id := strings.TrimSpace(profile.ID)
	if id == "" {
		return fmt.Errorf("profile id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[id] = profile
	return nil
}

// Lookup returns the profile registered under id.
func (r *Registry) Lookup(id string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[strings.TrimSpace(id)]
	return profile, ok
}

// IDs lists registered template ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

//go:embed profiles/*.json
var profilesFS embed.FS

// BuiltIn returns a registry holding the embedded template profiles.
func BuiltIn() (*Registry, error) {
	registry := NewRegistry()
	paths, err := fs.Glob(profilesFS, "profiles/*.json")
	if err != nil {
		return nil, fmt.Errorf("glob embedded profiles: %w", err)
	}
	for _, path := range paths {
		data, err := profilesFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", path, err)
		}
		var profile Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", path, err)
		}
		if err := registry.Register(&profile); err != nil {
			return nil, fmt.Errorf("register profile %s: %w", path, err)
		}
	}
	return registry, nil
}

// MustBuiltIn is BuiltIn for process setup paths where a broken embedded
// profile is a build defect, not a runtime condition.
func MustBuiltIn() *Registry {
	registry, err := BuiltIn()
	if err != nil {
		panic(err)
	}
	return registry
}
