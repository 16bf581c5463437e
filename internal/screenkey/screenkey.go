// Package screenkey parses and formats the resource names that identify
// screens and their sections.
package screenkey

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/resourcename"
)

const (
	screenPattern  = "screens/{screen}"
	sectionPattern = "screens/{screen}/sections/{section}"
)

// Screen identifies one screen, optionally narrowed to a section.
type Screen struct {
	ScreenID  string
	SectionID string
}

// Parse accepts either a bare screen id, a screens/{screen} name, or a
// screens/{screen}/sections/{section} name.
func Parse(name string) (Screen, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Screen{}, fmt.Errorf("screen name is required")
	}
	if !strings.Contains(name, "/") {
		return Screen{ScreenID: name}, nil
	}
	var screenID, sectionID string
	if err := resourcename.Sscan(name, sectionPattern, &screenID, &sectionID); err == nil {
		return Screen{ScreenID: screenID, SectionID: sectionID}, nil
	}
	if err := resourcename.Sscan(name, screenPattern, &screenID); err == nil {
		return Screen{ScreenID: screenID}, nil
	}
	return Screen{}, fmt.Errorf("invalid screen name %q", name)
}

// Name returns the canonical resource name.
func (s Screen) Name() string {
	if s.SectionID != "" {
		return resourcename.Sprint(sectionPattern, s.ScreenID, s.SectionID)
	}
	return resourcename.Sprint(screenPattern, s.ScreenID)
}

// HasSection reports whether the name narrows to a section.
func (s Screen) HasSection() bool {
	return s.SectionID != ""
}
