// Package palette merges parameter objects and resolves symbolic design
// tokens to concrete values.
package palette

import "strings"

// Palette maps symbolic token references like "color.primary" to concrete
// values.
type Palette struct {
	// Name identifies the palette for store subscriptions.
	Name string
	// Tokens holds the token table, keyed by full dotted reference.
	Tokens map[string]any
}

// ResolveToken returns the concrete value for a token reference.
func (p *Palette) ResolveToken(ref string) (any, bool) {
	if p == nil {
		return nil, false
	}
	value, ok := p.Tokens[strings.TrimSpace(ref)]
	return value, ok
}

// Merge deep-merges an ordered list of partial parameter objects. Later
// sources override earlier ones per key; nested plain objects merge
// recursively; arrays and every other value replace wholesale. Inputs are
// never mutated.
func Merge(sources ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, source := range sources {
		mergeInto(merged, source)
	}
	return merged
}

func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		incoming, isMap := value.(map[string]any)
		if !isMap {
			dst[key] = cloneValue(value)
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok {
			existing = map[string]any{}
		} else {
			existing = cloneMap(existing)
		}
		mergeInto(existing, incoming)
		dst[key] = existing
	}
}

// cloneValue copies maps and slices so the merged result never aliases a
// source; resolveLeaves rewrites slices in place and must only ever touch
// the copy.
func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return typed
	}
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = cloneValue(value)
	}
	return out
}

// Resolve merges the sources, then resolves every string leaf that names a
// palette token. Non-symbolic leaves pass through unchanged, as do token
// shaped strings the palette does not define.
func Resolve(p *Palette, sources ...map[string]any) map[string]any {
	merged := Merge(sources...)
	resolveLeaves(p, merged)
	return merged
}

func resolveLeaves(p *Palette, values map[string]any) {
	for key, value := range values {
		switch typed := value.(type) {
		case map[string]any:
			resolveLeaves(p, typed)
		case []any:
			for i, item := range typed {
				if ref, ok := item.(string); ok {
					if resolved, found := p.ResolveToken(ref); found {
						typed[i] = resolved
					}
				}
			}
		case string:
			if resolved, found := p.ResolveToken(typed); found {
				values[key] = resolved
			}
		}
	}
}

// Default returns the built-in light palette.
func Default() *Palette {
	return &Palette{
		Name: "daylight",
		Tokens: map[string]any{
			"color.primary":     "#1f6feb",
			"color.secondary":   "#57606a",
			"color.accent":      "#bc4c00",
			"color.danger":      "#cf222e",
			"surface.base":      "#ffffff",
			"surface.muted":     "#f6f8fa",
			"surface.accent":    "#ddf4ff",
			"surface.inverse":   "#0d1117",
			"text.primary":      "#1f2328",
			"text.muted":        "#57606a",
			"text.inverse":      "#f0f6fc",
			"space.2":           "0.5rem",
			"space.3":           "0.75rem",
			"space.4":           "1rem",
			"space.6":           "1.5rem",
			"space.8":           "2rem",
			"radius.card":       "0.5rem",
			"font.size.sm":      "0.875rem",
			"font.size.body":    "1rem",
			"font.size.title":   "1.5rem",
			"font.size.display": "2.25rem",
		},
	}
}

// Midnight returns the built-in dark palette.
func Midnight() *Palette {
	base := Default()
	tokens := make(map[string]any, len(base.Tokens))
	for key, value := range base.Tokens {
		tokens[key] = value
	}
	tokens["surface.base"] = "#0d1117"
	tokens["surface.muted"] = "#161b22"
	tokens["surface.accent"] = "#121d2f"
	tokens["surface.inverse"] = "#f6f8fa"
	tokens["text.primary"] = "#e6edf3"
	tokens["text.muted"] = "#8b949e"
	tokens["text.inverse"] = "#1f2328"
	return &Palette{Name: "midnight", Tokens: tokens}
}

// ByName returns a built-in palette by name, defaulting to daylight.
func ByName(name string) *Palette {
	if strings.EqualFold(strings.TrimSpace(name), "midnight") {
		return Midnight()
	}
	return Default()
}
