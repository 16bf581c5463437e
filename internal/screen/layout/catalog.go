package layout

import (
	"strings"
	"sync"
)

// SplitDef describes two-column split behavior for a page layout.
type SplitDef struct {
	// Ratio is the column ratio, e.g. "1:1" or "2:1".
	Ratio string `json:"ratio,omitempty"`
	// Collapse names the breakpoint below which the split stacks.
	Collapse string `json:"collapse,omitempty"`
}

// PageDef is the page-level layout definition for a layout id.
type PageDef struct {
	ID             string    `json:"id"`
	ContainerWidth string    `json:"containerWidth,omitempty"`
	Background     string    `json:"background,omitempty"`
	Split          *SplitDef `json:"split,omitempty"`
}

// MoleculeDef is the component-level layout definition for a layout id.
type MoleculeDef struct {
	Flow   string         `json:"flow,omitempty"`
	Preset string         `json:"preset,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// Definition is the merged result of page-level and component-level
// resolution for one layout id.
type Definition struct {
	ID             string
	ContainerWidth string
	Background     string
	Split          *SplitDef
	Molecule       *MoleculeDef
}

// Catalog registers page and molecule definitions and resolves layout
// references to merged definitions.
type Catalog struct {
	mu        sync.RWMutex
	aliases   map[string]string
	pages     map[string]PageDef
	molecules map[string]MoleculeDef
}

// NewCatalog returns an empty layout catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		aliases:   map[string]string{},
		pages:     map[string]PageDef{},
		molecules: map[string]MoleculeDef{},
	}
}

// RegisterPage adds a page-level definition.
func (c *Catalog) RegisterPage(def PageDef) {
	id := strings.TrimSpace(def.ID)
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[id] = def
}

// RegisterMolecule adds a component-level definition under a layout id.
func (c *Catalog) RegisterMolecule(id string, def MoleculeDef) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.molecules[id] = def
}

// RegisterAlias maps an alternate reference onto a concrete layout id.
func (c *Catalog) RegisterAlias(alias, id string) {
	alias = strings.TrimSpace(alias)
	id = strings.TrimSpace(id)
	if alias == "" || id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[alias] = id
}

// aliasHopLimit bounds alias chains so a registration cycle cannot hang
// resolution.
const aliasHopLimit = 8

// ResolveID follows alias registrations to a concrete layout id. Returns
// the empty string for an empty reference.
func (c *Catalog) ResolveID(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for hop := 0; hop < aliasHopLimit; hop++ {
		next, ok := c.aliases[ref]
		if !ok {
			return ref
		}
		ref = next
	}
	return ref
}

// Resolve looks up the merged layout definition for a reference. Unlike the
// section ladder this resolver may return nil: the renderer treats a nil
// definition as "render unstyled", so no fallback applies here.
func (c *Catalog) Resolve(ref string) *Definition {
	id := c.ResolveID(ref)
	if id == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	page, ok := c.pages[id]
	if !ok {
		return nil
	}
	def := &Definition{
		ID:             id,
		ContainerWidth: page.ContainerWidth,
		Background:     page.Background,
		Split:          page.Split,
	}
	if molecule, ok := c.molecules[id]; ok {
		moleculeCopy := molecule
		def.Molecule = &moleculeCopy
	}
	return def
}

// BuiltIn returns a catalog seeded with the layout ids the embedded template
// profiles reference.
func BuiltIn() *Catalog {
	c := NewCatalog()

	c.RegisterPage(PageDef{ID: "content-stack", ContainerWidth: "readable"})
	c.RegisterMolecule("content-stack", MoleculeDef{Flow: "stack", Params: map[string]any{"gap": "space.4"}})

	c.RegisterPage(PageDef{ID: "hero-banner", ContainerWidth: "full", Background: "surface.accent"})
	c.RegisterMolecule("hero-banner", MoleculeDef{Flow: "stack", Preset: "hero", Params: map[string]any{"align": "center"}})

	c.RegisterPage(PageDef{ID: "hero-split", ContainerWidth: "full", Split: &SplitDef{Ratio: "1:1", Collapse: "md"}})
	c.RegisterMolecule("hero-split", MoleculeDef{Flow: "row", Preset: "hero", Params: map[string]any{"gap": "space.6"}})

	c.RegisterPage(PageDef{ID: "product-grid", ContainerWidth: "wide"})
	c.RegisterMolecule("product-grid", MoleculeDef{Flow: "grid", Params: map[string]any{"columns": 3, "gap": "space.4"}})

	c.RegisterPage(PageDef{ID: "feature-rows", ContainerWidth: "wide"})
	c.RegisterMolecule("feature-rows", MoleculeDef{Flow: "stack", Params: map[string]any{"gap": "space.8"}})

	c.RegisterPage(PageDef{ID: "cta-band", ContainerWidth: "readable", Background: "surface.inverse"})
	c.RegisterMolecule("cta-band", MoleculeDef{Flow: "row", Params: map[string]any{"justify": "center"}})

	c.RegisterPage(PageDef{ID: "footer-columns", ContainerWidth: "wide", Background: "surface.muted"})
	c.RegisterMolecule("footer-columns", MoleculeDef{Flow: "grid", Params: map[string]any{"columns": 4}})

	c.RegisterPage(PageDef{ID: "toolbar", ContainerWidth: "fluid"})
	c.RegisterMolecule("toolbar", MoleculeDef{Flow: "row", Params: map[string]any{"justify": "space-between"}})

	c.RegisterPage(PageDef{ID: "rail", ContainerWidth: "narrow"})
	c.RegisterMolecule("rail", MoleculeDef{Flow: "stack", Params: map[string]any{"gap": "space.2"}})

	c.RegisterPage(PageDef{ID: "action-row", ContainerWidth: "readable"})
	c.RegisterMolecule("action-row", MoleculeDef{Flow: "row", Params: map[string]any{"gap": "space.3"}})

	// Legacy documents still reference the pre-rename stack id.
	c.RegisterAlias("stack", "content-stack")

	return c
}
