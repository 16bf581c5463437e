package cursor

import (
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token, err := Encode(Next("home", `template = "standard"`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Key != "home" {
		t.Errorf("key = %q, want home", decoded.Key)
	}
	if decoded.FilterHash == "" {
		t.Error("filter hash missing")
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"", "not base64!", "aGVsbG8="} {
		if _, err := Decode(token); err == nil {
			t.Errorf("Decode(%q) expected error", token)
		}
	}
}

func TestValidateDetectsFilterChange(t *testing.T) {
	c := Next("home", `template = "standard"`)
	if err := Validate(c, `template = "standard"`); err != nil {
		t.Fatalf("matching filter rejected: %v", err)
	}
	if err := Validate(c, `template = "marketing"`); err == nil {
		t.Fatal("expected filter change error")
	}
	if err := Validate(Next("home", ""), ""); err != nil {
		t.Fatalf("empty filter rejected: %v", err)
	}
}

func TestHashFilter(t *testing.T) {
	if HashFilter("") != "" {
		t.Error("empty filter should hash to empty string")
	}
	hash := HashFilter(`key = "home"`)
	if len(hash) != 16 {
		t.Errorf("hash = %q, want 16 hex chars", hash)
	}
	if hash == HashFilter(`key = "about"`) {
		t.Error("distinct filters should hash differently")
	}
}
