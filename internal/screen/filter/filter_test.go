package filter

import (
	"strings"
	"testing"
	"time"
)

func TestParseScreenFilterEmpty(t *testing.T) {
	t.Parallel()

	condition, err := ParseScreenFilter("")
	if err != nil {
		t.Fatalf("ParseScreenFilter() error = %v", err)
	}
	if condition.Clause != "" {
		t.Errorf("clause = %q, want empty", condition.Clause)
	}
	if len(condition.Params) != 0 {
		t.Errorf("params = %v, want none", condition.Params)
	}
}

func TestParseScreenFilterEquality(t *testing.T) {
	t.Parallel()

	condition, err := ParseScreenFilter(`key = "home"`)
	if err != nil {
		t.Fatalf("ParseScreenFilter() error = %v", err)
	}
	if condition.Clause != "key = ?" {
		t.Errorf("clause = %q, want key = ?", condition.Clause)
	}
	if len(condition.Params) != 1 || condition.Params[0] != "home" {
		t.Errorf("params = %v, want [home]", condition.Params)
	}
}

func TestParseScreenFilterDocumentField(t *testing.T) {
	t.Parallel()

	condition, err := ParseScreenFilter(`template = "standard"`)
	if err != nil {
		t.Fatalf("ParseScreenFilter() error = %v", err)
	}
	want := "json_extract(document, '$.template') = ?"
	if condition.Clause != want {
		t.Errorf("clause = %q, want %q", condition.Clause, want)
	}
	if len(condition.Params) != 1 || condition.Params[0] != "standard" {
		t.Errorf("params = %v, want [standard]", condition.Params)
	}
}

func TestParseScreenFilterConjunction(t *testing.T) {
	t.Parallel()

	condition, err := ParseScreenFilter(`key = "home" AND title != "Draft"`)
	if err != nil {
		t.Fatalf("ParseScreenFilter() error = %v", err)
	}
	if !strings.Contains(condition.Clause, "AND") {
		t.Errorf("clause = %q, want AND conjunction", condition.Clause)
	}
	if len(condition.Params) != 2 {
		t.Fatalf("params = %v, want 2 values", condition.Params)
	}
	if condition.Params[0] != "home" || condition.Params[1] != "Draft" {
		t.Errorf("params = %v, want [home Draft]", condition.Params)
	}
}

func TestParseScreenFilterDisjunction(t *testing.T) {
	t.Parallel()

	condition, err := ParseScreenFilter(`key = "home" OR key = "about"`)
	if err != nil {
		t.Fatalf("ParseScreenFilter() error = %v", err)
	}
	want := "(key = ? OR key = ?)"
	if condition.Clause != want {
		t.Errorf("clause = %q, want %q", condition.Clause, want)
	}
}

func TestParseScreenFilterTimestamp(t *testing.T) {
	t.Parallel()

	condition, err := ParseScreenFilter(`updated_at >= timestamp("2026-08-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("ParseScreenFilter() error = %v", err)
	}
	if condition.Clause != "updated_at >= ?" {
		t.Errorf("clause = %q, want updated_at >= ?", condition.Clause)
	}
	if len(condition.Params) != 1 {
		t.Fatalf("params = %v, want 1 value", condition.Params)
	}
	wantMillis := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if condition.Params[0] != wantMillis {
		t.Errorf("params[0] = %v, want %d", condition.Params[0], wantMillis)
	}
}

func TestParseScreenFilterUnknownField(t *testing.T) {
	t.Parallel()

	if _, err := ParseScreenFilter(`owner = "alice"`); err == nil {
		t.Fatal("ParseScreenFilter() accepted an unknown field")
	}
}

func TestParseScreenFilterMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseScreenFilter(`key = `); err == nil {
		t.Fatal("ParseScreenFilter() accepted a malformed expression")
	}
}
