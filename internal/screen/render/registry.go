package render

import (
	"context"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Component describes one registered node type: its param presets and the
// function that renders it to markup.
type Component struct {
	// Defaults are params merged below everything else.
	Defaults map[string]any
	// Variants and Sizes are preset param bundles selected by the node's
	// variant and size fields.
	Variants map[string]map[string]any
	Sizes    map[string]map[string]any
	// Render produces markup for a resolved node. Children arrive already
	// rendered.
	Render func(r Resolved, children templ.Component) templ.Component
}

// Registry maps node type strings to components. Lookup is by exact type
// string; a miss renders a diagnostic placeholder, never an error.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{components: map[string]Component{}}
}

// Register adds or replaces a component for a type string.
func (r *Registry) Register(typeName string, component Component) error {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return fmt.Errorf("component type is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[typeName] = component
	return nil
}

// Lookup returns the component registered for a type string.
func (r *Registry) Lookup(typeName string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	component, ok := r.components[typeName]
	return component, ok
}

// Types returns the registered type strings sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.components))
	for typeName := range r.components {
		types = append(types, typeName)
	}
	sort.Strings(types)
	return types
}

// Placeholder renders the visible diagnostic emitted for an unregistered
// node type.
func Placeholder(typeName string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="sl-missing" data-missing-component="%s">unregistered component: %s</div>`,
			html.EscapeString(typeName), html.EscapeString(typeName))
		return err
	})
}
