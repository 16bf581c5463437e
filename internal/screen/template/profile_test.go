package template

import "testing"

func TestBuiltIn_LoadsEmbeddedProfiles(t *testing.T) {
	registry, err := BuiltIn()
	if err != nil {
		t.Fatalf("BuiltIn returned error: %v", err)
	}
	for _, id := range []string{"standard", "marketing", "workspace"} {
		if _, ok := registry.Lookup(id); !ok {
			t.Fatalf("built-in profile %q is missing", id)
		}
	}
}

func TestProfile_RoleLayoutID(t *testing.T) {
	registry := MustBuiltIn()
	profile, ok := registry.Lookup("standard")
	if !ok {
		t.Fatal("standard profile missing")
	}
	layoutID, ok := profile.RoleLayoutID("hero")
	if !ok || layoutID != "hero-banner" {
		t.Fatalf("RoleLayoutID(hero) = %q, %v, want hero-banner", layoutID, ok)
	}
	if _, ok := profile.RoleLayoutID("made-up"); ok {
		t.Fatal("RoleLayoutID matched an unregistered role")
	}
	if _, ok := profile.RoleLayoutID(""); ok {
		t.Fatal("RoleLayoutID matched an empty role")
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(nil); err == nil {
		t.Fatal("Register accepted nil profile")
	}
	if err := registry.Register(&Profile{}); err == nil {
		t.Fatal("Register accepted profile without id")
	}
	if err := registry.Register(&Profile{ID: "custom"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, ok := registry.Lookup("custom"); !ok {
		t.Fatal("registered profile not found")
	}
}
