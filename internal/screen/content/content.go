// Package content selects locale-appropriate values from node content maps.
//
// A content field is either a plain value or a map keyed by BCP 47 tags:
//
//	{"text": "Hello"}
//	{"text": {"en": "Hello", "pt-BR": "Olá"}}
//
// Localize collapses the second form to the best match for the requested
// tag.
package content

import (
	"net/http"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

// LangCookieName stores the user's language preference.
const LangCookieName = "sl_lang"

// Default returns the default language tag.
func Default() language.Tag {
	return language.English
}

// ResolveTag determines the best language tag for the request.
// The bool indicates whether the lang query param should be persisted as a cookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}

	if langValue := strings.TrimSpace(r.URL.Query().Get(LangParam)); langValue != "" {
		if tag, err := language.Parse(langValue); err == nil {
			return tag, true
		}
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, err := language.Parse(cookie.Value); err == nil {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return tags[0], false
		}
	}

	return Default(), false
}

// Localize returns a copy of content with locale-keyed fields collapsed to
// the best value for tag. Fields that are not locale maps pass through.
func Localize(content map[string]any, tag language.Tag) map[string]any {
	if content == nil {
		return nil
	}
	out := make(map[string]any, len(content))
	for key, value := range content {
		out[key] = localizeValue(value, tag)
	}
	return out
}

func localizeValue(value any, tag language.Tag) any {
	localeMap, ok := value.(map[string]any)
	if !ok || len(localeMap) == 0 {
		return value
	}
	keys := make([]string, 0, len(localeMap))
	for key := range localeMap {
		keys = append(keys, key)
	}
	// Stable order, English first, so fallback matches are deterministic.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "en" {
			return keys[j] != "en"
		}
		if keys[j] == "en" {
			return false
		}
		return keys[i] < keys[j]
	})
	tags := make([]language.Tag, 0, len(keys))
	for _, key := range keys {
		parsed, err := language.Parse(key)
		if err != nil {
			// Not a locale map; keep the nested object as-is.
			return value
		}
		tags = append(tags, parsed)
	}
	matcher := language.NewMatcher(tags)
	_, index, _ := matcher.Match(tag)
	return localeMap[keys[index]]
}
