// Package node defines the JSON screen node tree consumed by the
// composition and render pipeline.
package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one element of a screen tree. Ownership is structural: a parent's
// Children slice owns its entries, with no back-references.
type Node struct {
	// ID optionally identifies the node for layout overrides and
	// active-section matching.
	ID string `json:"id,omitempty"`
	// Type selects the component rendered for this node.
	Type string `json:"type"`
	// Role tags top-level nodes for region assignment and template
	// section defaults.
	Role string `json:"role,omitempty"`
	// Variant selects a component preset bundle.
	Variant string `json:"variant,omitempty"`
	// Size selects a component size preset bundle.
	Size string `json:"size,omitempty"`
	// Layout references a section layout by id or carries an inline
	// molecule layout spec.
	Layout LayoutRef `json:"layout,omitzero"`
	// Params are inline parameter overrides, highest merge priority.
	Params map[string]any `json:"params,omitempty"`
	// Content holds display content, possibly keyed by locale.
	Content map[string]any `json:"content,omitempty"`
	// Behavior holds action bindings consumed by the host.
	Behavior map[string]any `json:"behavior,omitempty"`
	// Children are rendered recursively before the node wraps them.
	Children []Node `json:"children,omitempty"`
	// When gates rendering on the current derived state.
	When *When `json:"when,omitempty"`
}

// When is a conditional-render clause evaluated against the derived state
// snapshot on every render pass, never against a cached one.
type When struct {
	// State is a dot path into the serialized snapshot (e.g. "currentView"
	// or "values.cart\.count").
	State string `json:"state,omitempty"`
	// Equals is the value the state path must match.
	Equals any `json:"equals,omitempty"`
	// Expr is an optional boolean expression evaluated with the snapshot
	// exposed as "state". Used when path equality is not enough.
	Expr string `json:"expr,omitempty"`
}

// LayoutRef is either a section layout id (JSON string) or an inline
// molecule layout spec (JSON object).
type LayoutRef struct {
	// ID is the section layout id when the reference is a plain string.
	ID string
	// Spec is the inline molecule layout when the reference is an object.
	Spec *LayoutSpec
}

// LayoutSpec is an inline molecule-level layout description.
type LayoutSpec struct {
	Type   string         `json:"type"`
	Preset string         `json:"preset,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// IsZero reports whether the reference carries neither an id nor a spec.
func (r LayoutRef) IsZero() bool {
	return strings.TrimSpace(r.ID) == "" && r.Spec == nil
}

// UnmarshalJSON accepts both the string and the object layout forms.
func (r *LayoutRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = LayoutRef{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("decode layout id: %w", err)
		}
		*r = LayoutRef{ID: id}
		return nil
	}
	var spec LayoutSpec
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		return fmt.Errorf("decode layout spec: %w", err)
	}
	*r = LayoutRef{Spec: &spec}
	return nil
}

// MarshalJSON writes the string form when only an id is set.
func (r LayoutRef) MarshalJSON() ([]byte, error) {
	if r.Spec != nil {
		return json.Marshal(r.Spec)
	}
	if strings.TrimSpace(r.ID) == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// StateHint is the optional default-state block of a screen document,
// applied once when the screen loads.
type StateHint struct {
	CurrentView string `json:"currentView,omitempty"`
}

// Document is a loadable screen definition: role-tagged top-level sections
// plus template and default-state hints.
type Document struct {
	// Key addresses the screen (e.g. "screens/home").
	Key string `json:"key,omitempty"`
	// Title is the human-readable screen title.
	Title string `json:"title,omitempty"`
	// Template selects the template profile applied during render.
	Template string `json:"template,omitempty"`
	// State optionally seeds derived state on first load.
	State *StateHint `json:"state,omitempty"`
	// Sections are the role-tagged content nodes fed to the composer.
	Sections []Node `json:"sections"`
}

// Parse decodes a screen document and enforces the minimal structural
// contract every consumer relies on.
func Parse(data []byte) (Document, error) {
	var doc Document
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode screen document: %w", err)
	}
	for i := range doc.Sections {
		if err := validate(&doc.Sections[i]); err != nil {
			return Document{}, fmt.Errorf("section %d: %w", i, err)
		}
	}
	return doc, nil
}

func validate(n *Node) error {
	if strings.TrimSpace(n.Type) == "" {
		return fmt.Errorf("node type is required")
	}
	for i := range n.Children {
		if err := validate(&n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// IsSection reports whether the node is a section container. The check is
// case-insensitive because documents produced by older authoring tools used
// the lowercase form.
func (n Node) IsSection() bool {
	return strings.EqualFold(strings.TrimSpace(n.Type), "section")
}

// SectionKey returns the key a section is addressed by: its id when set,
// otherwise its role.
func (n Node) SectionKey() string {
	if key := strings.TrimSpace(n.ID); key != "" {
		return key
	}
	return strings.TrimSpace(n.Role)
}

// SectionKeys lists the keys of the section children of root, in order.
// Non-section children are skipped.
func SectionKeys(nodes []Node) []string {
	keys := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsSection() {
			continue
		}
		if key := n.SectionKey(); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
