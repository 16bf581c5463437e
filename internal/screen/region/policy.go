// Package region maps content roles to screen regions and decides region
// ordering, enablement, and nav placement per experience.
package region

import "strings"

// Key names a placement slot in a composed screen.
type Key string

const (
	KeyNav      Key = "nav"
	KeyHeader   Key = "header"
	KeyHero     Key = "hero"
	KeyContent  Key = "content"
	KeyPrimary  Key = "primary"
	KeySidebar  Key = "sidebar"
	KeyProducts Key = "products"
	KeyActions  Key = "actions"
	KeyFooter   Key = "footer"
)

// Experience names a rendering mode. The policy tables only distinguish
// website, app, and learning; other experiences fall back to website rules.
type Experience string

const (
	ExperienceWebsite  Experience = "website"
	ExperienceApp      Experience = "app"
	ExperienceLearning Experience = "learning"
)

// NavPlacement positions the navigation region in the shell.
type NavPlacement string

const (
	NavTop    NavPlacement = "top"
	NavSide   NavPlacement = "side"
	NavBottom NavPlacement = "bottom"
	NavNone   NavPlacement = "none"
)

// PolicyState carries per-screen overrides of the experience defaults. The
// zero value applies no overrides.
type PolicyState struct {
	// Regions maps a region to an explicit enable/disable decision.
	Regions map[Key]bool
	// NavEnabled overrides nav enablement when set.
	NavEnabled *bool
	// Nav overrides nav placement when non-empty.
	Nav NavPlacement
}

var orderByExperience = map[Experience][]Key{
	ExperienceWebsite:  {KeyHeader, KeyHero, KeyContent, KeyProducts, KeyFooter},
	ExperienceApp:      {KeyNav, KeyHeader, KeyPrimary, KeySidebar, KeyActions, KeyFooter},
	ExperienceLearning: {KeyHeader, KeyContent, KeyActions, KeyFooter},
}

var roleToRegion = map[string]Key{
	"nav":        KeyNav,
	"navigation": KeyNav,
	"menu":       KeyNav,
	"header":     KeyHeader,
	"hero":       KeyHero,
	"banner":     KeyHero,
	"content":    KeyContent,
	"main":       KeyContent,
	"body":       KeyContent,
	"primary":    KeyPrimary,
	"sidebar":    KeySidebar,
	"aside":      KeySidebar,
	"products":   KeyProducts,
	"catalog":    KeyProducts,
	"shop":       KeyProducts,
	"actions":    KeyActions,
	"cta":        KeyActions,
	"footer":     KeyFooter,
}

// appRoleToRegion remaps website-shaped roles onto the app shell so the same
// document composes in both experiences.
var appRoleToRegion = map[string]Key{
	"hero":     KeyHeader,
	"banner":   KeyHeader,
	"content":  KeyPrimary,
	"main":     KeyPrimary,
	"body":     KeyPrimary,
	"products": KeyPrimary,
	"catalog":  KeyPrimary,
	"shop":     KeyPrimary,
}

var enabledDefaults = map[Experience]map[Key]bool{
	ExperienceWebsite: {
		KeyNav: true, KeyHeader: true, KeyHero: true, KeyContent: true,
		KeyProducts: true, KeyFooter: true,
	},
	ExperienceApp: {
		KeyNav: true, KeyHeader: true, KeyPrimary: true, KeySidebar: true,
		KeyActions: true, KeyFooter: false,
	},
	ExperienceLearning: {
		KeyNav: false, KeyHeader: true, KeyContent: true, KeyActions: true,
		KeyFooter: true,
	},
}

var navDefaults = map[Experience]NavPlacement{
	ExperienceWebsite:  NavTop,
	ExperienceApp:      NavSide,
	ExperienceLearning: NavNone,
}

// normalize folds unknown experiences onto website, the baseline mode.
func normalize(experience Experience) Experience {
	switch experience {
	case ExperienceApp, ExperienceLearning:
		return experience
	default:
		return ExperienceWebsite
	}
}

// Order returns the canonical region ordering for the experience.
func Order(experience Experience) []Key {
	order := orderByExperience[normalize(experience)]
	out := make([]Key, len(order))
	copy(out, order)
	return out
}

// PrimaryFallback is the region that absorbs content assigned to disabled
// regions and unrecognized roles.
func PrimaryFallback(experience Experience) Key {
	if normalize(experience) == ExperienceApp {
		return KeyPrimary
	}
	return KeyContent
}

// ResolveRegionForRole maps a content role to a region. The match is
// case-insensitive and total: unrecognized or empty roles land in the
// experience's primary fallback region.
func ResolveRegionForRole(role string, experience Experience) Key {
	experience = normalize(experience)
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		return PrimaryFallback(experience)
	}
	if experience == ExperienceApp {
		if key, ok := appRoleToRegion[normalized]; ok {
			return key
		}
	}
	if key, ok := roleToRegion[normalized]; ok {
		return key
	}
	return PrimaryFallback(experience)
}

// Enabled reports whether a region renders for the experience. An explicit
// per-region override in state wins, then the dedicated nav flag, then the
// experience defaults.
func Enabled(key Key, state PolicyState, experience Experience) bool {
	if decision, ok := state.Regions[key]; ok {
		return decision
	}
	if key == KeyNav && state.NavEnabled != nil {
		return *state.NavEnabled
	}
	return enabledDefaults[normalize(experience)][key]
}

// ResolveNavPlacement returns where the nav region renders. An explicit
// override in state wins over the experience default.
func ResolveNavPlacement(state PolicyState, experience Experience) NavPlacement {
	switch state.Nav {
	case NavTop, NavSide, NavBottom, NavNone:
		return state.Nav
	}
	return navDefaults[normalize(experience)]
}
