// Package visibility decides how a node renders for a given experience: the
// per-experience conditional rendering state machine.
package visibility

import (
	"strings"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
)

// Verdict is the rendering decision for one node.
type Verdict string

const (
	// Render shows the node normally.
	Render Verdict = "render"
	// Collapse keeps the node in the output but visually condensed.
	Collapse Verdict = "collapse"
	// Hide omits the node entirely.
	Hide Verdict = "hide"
	// Step marks a node as part of a step sequence without rendering it.
	// No built-in experience emits it today; it is part of the verdict
	// contract so step-aware hosts can extend the table.
	Step Verdict = "step"
)

// For computes the visibility verdict for a node. It is a pure function of
// its inputs: experience mode, the node, its depth in the composed tree, the
// current step index, the ordered section keys of the screen, and the
// optional active section key.
func For(experience string, n node.Node, depth, stepIndex int, sectionKeys []string, activeSectionKey string) Verdict {
	switch strings.ToLower(strings.TrimSpace(experience)) {
	case "website", "":
		return Render
	case "app":
		return forApp(n, depth, sectionKeys, activeSectionKey)
	case "learning":
		return forStepped(n, depth, stepIndex, sectionKeys, false)
	case "focus":
		return forStepped(n, depth, stepIndex, sectionKeys, true)
	case "presentation":
		return forStepped(n, depth, stepIndex, sectionKeys, false)
	case "kids":
		if depth >= 3 {
			return Hide
		}
		return Render
	default:
		// Unknown experiences render everything. Hiding on an unrecognized
		// mode would turn a typo into a blank screen.
		return Render
	}
}

// forApp renders the shell plus the active section, collapsing the rest so
// section switching keeps layout continuity.
func forApp(n node.Node, depth int, sectionKeys []string, activeSectionKey string) Verdict {
	if depth == 0 || depth >= 2 {
		return Render
	}
	if !n.IsSection() {
		return Hide
	}
	active := strings.TrimSpace(activeSectionKey)
	if active == "" && len(sectionKeys) > 0 {
		active = sectionKeys[0]
	}
	if matchesSection(n, active) {
		return Render
	}
	return Collapse
}

// forStepped shows exactly one section: the one at stepIndex. When lenient,
// an out-of-range step falls back to the first section; otherwise nothing
// matches and every section hides.
func forStepped(n node.Node, depth, stepIndex int, sectionKeys []string, lenient bool) Verdict {
	if depth == 0 || depth >= 2 {
		return Render
	}
	if !n.IsSection() {
		return Hide
	}
	current := ""
	if stepIndex >= 0 && stepIndex < len(sectionKeys) {
		current = sectionKeys[stepIndex]
	} else if lenient && len(sectionKeys) > 0 {
		current = sectionKeys[0]
	}
	if current != "" && matchesSection(n, current) {
		return Render
	}
	return Hide
}

func matchesSection(n node.Node, key string) bool {
	if key == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(n.ID), key) ||
		strings.EqualFold(strings.TrimSpace(n.Role), key)
}
