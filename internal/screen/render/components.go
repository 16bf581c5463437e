package render

import (
	"context"
	"fmt"
	"html"
	"io"
	"sort"

	"github.com/a-h/templ"
)

// HTML renders a resolved tree through the registry. Children render before
// their parent wraps them; unregistered types render the diagnostic
// placeholder.
func (r *Registry) HTML(resolved Resolved) templ.Component {
	children := make([]templ.Component, 0, len(resolved.Children))
	for _, child := range resolved.Children {
		children = append(children, r.HTML(child))
	}
	wrapped := concat(children)

	component, ok := r.Lookup(resolved.Type)
	if !ok || component.Render == nil {
		return Placeholder(resolved.Type)
	}
	return component.Render(resolved, wrapped)
}

func concat(components []templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, component := range components {
			if err := component.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// BuiltIn returns a registry with the baseline component set.
func BuiltIn() *Registry {
	registry := NewRegistry()

	register := func(typeName string, component Component) {
		if err := registry.Register(typeName, component); err != nil {
			panic(err)
		}
	}

	register("Screen", Component{
		Render: func(r Resolved, children templ.Component) templ.Component {
			return element("main", "sl-screen", r, children)
		},
	})
	register("Section", Component{
		Defaults: map[string]any{"padding": "space.4"},
		Render: func(r Resolved, children templ.Component) templ.Component {
			if r.Collapsed {
				return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
					_, err := fmt.Fprintf(w,
						`<section class="sl-section sl-collapsed" data-section="%s"></section>`,
						html.EscapeString(sectionAttr(r)))
					return err
				})
			}
			return element("section", "sl-section", r, children)
		},
	})
	register("Text", Component{
		Variants: map[string]map[string]any{
			"muted":   {"color": "text.muted"},
			"inverse": {"color": "text.inverse"},
		},
		Sizes: map[string]map[string]any{
			"sm": {"fontSize": "font.size.sm"},
			"md": {"fontSize": "font.size.body"},
			"lg": {"fontSize": "font.size.title"},
		},
		Render: func(r Resolved, children templ.Component) templ.Component {
			return textComponent("p", "sl-text", r)
		},
	})
	register("Heading", Component{
		Sizes: map[string]map[string]any{
			"sm": {"fontSize": "font.size.title"},
			"lg": {"fontSize": "font.size.display"},
		},
		Render: func(r Resolved, children templ.Component) templ.Component {
			return textComponent("h2", "sl-heading", r)
		},
	})
	register("Button", Component{
		Defaults: map[string]any{"background": "color.primary", "color": "text.inverse"},
		Variants: map[string]map[string]any{
			"ghost":     {"background": "surface.base", "color": "color.primary"},
			"secondary": {"background": "color.secondary"},
		},
		Render: func(r Resolved, children templ.Component) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				label, _ := r.Params["label"].(string)
				if label == "" {
					label, _ = contentText(r)
				}
				_, err := fmt.Fprintf(w, `<button class="sl-button"%s>%s</button>`,
					styleAttr(r.Params), html.EscapeString(label))
				return err
			})
		},
	})
	register("Image", Component{
		Render: func(r Resolved, children templ.Component) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				src, _ := r.Content["src"].(string)
				alt, _ := r.Content["alt"].(string)
				_, err := fmt.Fprintf(w, `<img class="sl-image" src="%s" alt="%s">`,
					html.EscapeString(src), html.EscapeString(alt))
				return err
			})
		},
	})
	register("Card", Component{
		Defaults: map[string]any{"background": "surface.muted", "radius": "radius.card"},
		Render: func(r Resolved, children templ.Component) templ.Component {
			return element("article", "sl-card", r, children)
		},
	})
	register("Stack", Component{
		Render: func(r Resolved, children templ.Component) templ.Component {
			return element("div", "sl-stack", r, children)
		},
	})
	register("Row", Component{
		Render: func(r Resolved, children templ.Component) templ.Component {
			return element("div", "sl-row", r, children)
		},
	})
	register("Nav", Component{
		Render: func(r Resolved, children templ.Component) templ.Component {
			return element("nav", "sl-nav", r, children)
		},
	})

	return registry
}

func element(tag, class string, r Resolved, children templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<%s class="%s"%s%s>`, tag, class, dataAttrs(r), styleAttr(r.Params)); err != nil {
			return err
		}
		if children != nil {
			if err := children.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `</%s>`, tag)
		return err
	})
}

func textComponent(tag, class string, r Resolved) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		text, _ := contentText(r)
		_, err := fmt.Fprintf(w, `<%s class="%s"%s>%s</%s>`,
			tag, class, styleAttr(r.Params), html.EscapeString(text), tag)
		return err
	})
}

func contentText(r Resolved) (string, bool) {
	if r.Content == nil {
		return "", false
	}
	text, ok := r.Content["text"].(string)
	return text, ok
}

func sectionAttr(r Resolved) string {
	if r.ID != "" {
		return r.ID
	}
	return r.Role
}

func dataAttrs(r Resolved) string {
	out := ""
	if r.ID != "" {
		out += fmt.Sprintf(` id="%s"`, html.EscapeString(r.ID))
	}
	if r.Role != "" {
		out += fmt.Sprintf(` data-role="%s"`, html.EscapeString(r.Role))
	}
	if r.LayoutID != "" {
		out += fmt.Sprintf(` data-layout="%s"`, html.EscapeString(r.LayoutID))
	}
	return out
}

// styleAttr emits resolved scalar params as inline custom properties, in
// sorted order so output is stable.
func styleAttr(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		switch params[key].(type) {
		case string, float64, int, bool:
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	style := ""
	for _, key := range keys {
		style += fmt.Sprintf("--sl-%s:%v;", key, params[key])
	}
	return fmt.Sprintf(` style="%s"`, html.EscapeString(style))
}
