// Package compose assembles role-tagged content nodes into a composed
// screen tree using the region policy tables.
package compose

import (
	"sort"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/screen/region"
)

// Input is everything screen composition consumes.
type Input struct {
	// Nodes are the role-tagged content nodes of the screen document.
	Nodes []node.Node
	// Policy carries per-screen region overrides.
	Policy region.PolicyState
	// Experience selects the region tables.
	Experience region.Experience
}

// Regions that may render empty because the shell depends on them being
// structurally present.
var structuralRegions = map[region.Key]bool{
	region.KeyNav:    true,
	region.KeyHeader: true,
	region.KeyFooter: true,
}

// Compose builds the screen tree: content is bucketed by region, content in
// regions that do not emit for the experience (disabled, or not part of the
// experience order at all) is merged forward into the primary fallback
// region (never dropped), regions emit in canonical order, and the result is
// wrapped in the experience shell. Composition is pure and preserves the
// relative order of nodes assigned to the same region.
func Compose(in Input) node.Node {
	buckets := map[region.Key][]node.Node{}
	for _, n := range in.Nodes {
		key := region.ResolveRegionForRole(n.Role, in.Experience)
		buckets[key] = append(buckets[key], n)
	}

	// A bucket merges forward when its region is disabled or absent from the
	// experience order entirely; either way the content must still render.
	fallback := region.PrimaryFallback(in.Experience)
	emits := map[region.Key]bool{}
	for _, key := range region.Order(in.Experience) {
		emits[key] = region.Enabled(key, in.Policy, in.Experience)
	}
	var merge []region.Key
	for key := range buckets {
		if key != fallback && !emits[key] {
			merge = append(merge, key)
		}
	}
	sort.Slice(merge, func(i, j int) bool { return merge[i] < merge[j] })
	for _, key := range merge {
		buckets[fallback] = append(buckets[fallback], buckets[key]...)
		delete(buckets, key)
	}

	var sections []node.Node
	for _, key := range region.Order(in.Experience) {
		// The fallback always emits when it holds content; disabling it
		// would drop everything merged into it.
		if key != fallback && !region.Enabled(key, in.Policy, in.Experience) {
			continue
		}
		content := buckets[key]
		if len(content) == 0 && !structuralRegions[key] {
			continue
		}
		sections = append(sections, regionSection(key, content))
	}

	return shell(sections, in)
}

func regionSection(key region.Key, content []node.Node) node.Node {
	return node.Node{
		Type:     "Section",
		ID:       string(key),
		Role:     string(key),
		Children: content,
	}
}

// shell wraps region sections in the experience chrome. Website and learning
// screens, and app screens without a side nav, stack vertically; an app
// screen with side nav splits into a nav column and a main column.
func shell(sections []node.Node, in Input) node.Node {
	nav := region.ResolveNavPlacement(in.Policy, in.Experience)
	sideNav := in.Experience == region.ExperienceApp && nav == region.NavSide
	if !sideNav {
		return node.Node{
			Type:     "Screen",
			Layout:   node.LayoutRef{Spec: &node.LayoutSpec{Type: "stack"}},
			Params:   map[string]any{"nav": string(nav)},
			Children: sections,
		}
	}

	var navSection *node.Node
	var rest []node.Node
	for i := range sections {
		if navSection == nil && sections[i].ID == string(region.KeyNav) {
			navSection = &sections[i]
			continue
		}
		rest = append(rest, sections[i])
	}

	main := node.Node{
		Type:     "Section",
		Role:     "content",
		Layout:   node.LayoutRef{Spec: &node.LayoutSpec{Type: "stack"}},
		Children: rest,
	}
	children := []node.Node{}
	if navSection != nil {
		children = append(children, *navSection)
	}
	children = append(children, main)
	return node.Node{
		Type:     "Screen",
		Layout:   node.LayoutRef{Spec: &node.LayoutSpec{Type: "row"}},
		Params:   map[string]any{"nav": string(nav)},
		Children: children,
	}
}
