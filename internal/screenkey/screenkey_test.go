package screenkey

import "testing"

func TestParseForms(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Screen
		wantErr bool
	}{
		{name: "bare id", input: "home", want: Screen{ScreenID: "home"}},
		{name: "screen name", input: "screens/home", want: Screen{ScreenID: "home"}},
		{name: "section name", input: "screens/home/sections/hero", want: Screen{ScreenID: "home", SectionID: "hero"}},
		{name: "empty", input: "  ", wantErr: true},
		{name: "wrong collection", input: "pages/home", wantErr: true},
		{name: "trailing segment", input: "screens/home/sections/hero/extra", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestNameRoundTrip(t *testing.T) {
	for _, name := range []string{"screens/home", "screens/home/sections/hero"} {
		parsed, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if got := parsed.Name(); got != name {
			t.Fatalf("Name() = %q, want %q", got, name)
		}
	}
	if !(Screen{ScreenID: "home", SectionID: "hero"}).HasSection() {
		t.Fatal("HasSection() = false for section name")
	}
	if (Screen{ScreenID: "home"}).HasSection() {
		t.Fatal("HasSection() = true for bare screen")
	}
}
