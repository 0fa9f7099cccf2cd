package theme

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/cloudplot/cloudplot/pkg/errors"
)

// themesFile is the TOML document shape:
//
//	[themes.corporate.compute]
//	color = "#0052CC"
//	icon  = "server"
//	shape = "box"
type themesFile struct {
	Themes map[string]map[string]Style `toml:"themes"`
}

// LoadFile reads custom themes from a TOML file. Theme and category names
// are validated; unknown categories are rejected so typos don't silently
// fall through to the default style.
func LoadFile(path string) ([]Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes themes from TOML bytes.
func Parse(data []byte) ([]Theme, error) {
	var file themesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode themes: %w", err)
	}

	known := make(map[Category]bool)
	for _, c := range Categories() {
		known[c] = true
	}

	themes := make([]Theme, 0, len(file.Themes))
	for name, styles := range file.Themes {
		if err := errors.ValidateThemeName(name); err != nil {
			return nil, err
		}
		t := Theme{Name: name, Styles: make(map[Category]Style, len(styles))}
		for cat, style := range styles {
			c := Category(cat)
			if !known[c] {
				return nil, fmt.Errorf("theme %q: unknown category %q", name, cat)
			}
			t.Styles[c] = style
		}
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].Name < themes[j].Name })
	return themes, nil
}
