package palette

import (
	"reflect"
	"testing"
)

func TestMerge_LaterSourcesWinNestedObjectsMerge(t *testing.T) {
	got := Merge(
		map[string]any{"a": 1, "b": map[string]any{"x": 1}},
		map[string]any{"b": map[string]any{"y": 2}},
		map[string]any{"a": 2},
	)
	want := map[string]any{"a": 2, "b": map[string]any{"x": 1, "y": 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMerge_ArraysReplaceWholesale(t *testing.T) {
	got := Merge(
		map[string]any{"items": []any{"a", "b"}},
		map[string]any{"items": []any{"c"}},
	)
	want := []any{"c"}
	if !reflect.DeepEqual(got["items"], want) {
		t.Fatalf("items = %v, want %v", got["items"], want)
	}
}

func TestMerge_DoesNotMutateSources(t *testing.T) {
	base := map[string]any{"b": map[string]any{"x": 1}}
	_ = Merge(base, map[string]any{"b": map[string]any{"y": 2}})
	nested := base["b"].(map[string]any)
	if _, leaked := nested["y"]; leaked {
		t.Fatal("Merge mutated an input source")
	}
}

func TestResolve_DoesNotMutateSourceArrays(t *testing.T) {
	source := map[string]any{"stops": []any{"color.primary", "plain"}}
	got := Resolve(Default(), source)

	resolved := got["stops"].([]any)
	if resolved[0] != "#1f6feb" || resolved[1] != "plain" {
		t.Fatalf("resolved stops = %v, want [#1f6feb plain]", resolved)
	}
	original := source["stops"].([]any)
	if original[0] != "color.primary" || original[1] != "plain" {
		t.Fatalf("source stops = %v, want the untouched token references", original)
	}
}

func TestResolve_TokensAndPassThrough(t *testing.T) {
	p := Default()
	got := Resolve(p,
		map[string]any{
			"background": "surface.muted",
			"label":      "Buy now",
			"nested":     map[string]any{"gap": "space.4"},
			"stops":      []any{"color.primary", "plain"},
		},
	)
	if got["background"] != "#f6f8fa" {
		t.Fatalf("background = %v, want resolved surface.muted", got["background"])
	}
	if got["label"] != "Buy now" {
		t.Fatalf("label = %v, want pass-through", got["label"])
	}
	nested := got["nested"].(map[string]any)
	if nested["gap"] != "1rem" {
		t.Fatalf("nested gap = %v, want 1rem", nested["gap"])
	}
	stops := got["stops"].([]any)
	if stops[0] != "#1f6feb" || stops[1] != "plain" {
		t.Fatalf("stops = %v, want [#1f6feb plain]", stops)
	}
}

func TestResolve_NilPaletteLeavesValues(t *testing.T) {
	got := Resolve(nil, map[string]any{"background": "surface.muted"})
	if got["background"] != "surface.muted" {
		t.Fatalf("background = %v, want untouched reference", got["background"])
	}
}

func TestByName(t *testing.T) {
	if ByName("midnight").Name != "midnight" {
		t.Fatal("ByName(midnight) did not return midnight palette")
	}
	if ByName("unknown").Name != "daylight" {
		t.Fatal("ByName should default to daylight")
	}
	if Midnight().Tokens["color.primary"] != Default().Tokens["color.primary"] {
		t.Fatal("midnight palette should inherit base colors")
	}
}
