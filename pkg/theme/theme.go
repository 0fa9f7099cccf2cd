// Package theme maps resource categories to visual style attributes.
//
// A Theme is plain configuration: category → {color, icon, shape}. Themes
// live in an explicit [Set] passed to callers rather than process-global
// state, so concurrent requests with different themes never interfere.
// Resolution is a pure function and fails only on an unknown theme name.
package theme

import (
	"fmt"
	"slices"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

// Style holds the visual attributes for one resource category.
type Style struct {
	Color string `json:"color" toml:"color"`
	Icon  string `json:"icon" toml:"icon"`
	Shape string `json:"shape" toml:"shape"`
}

// Theme is a named mapping from category to style. Categories without an
// entry fall back to the theme's CategoryDefault style.
type Theme struct {
	Name   string
	Styles map[Category]Style
}

// style returns the style for a category, falling back to the default entry
// and then to a zero style.
func (t Theme) style(c Category) Style {
	if s, ok := t.Styles[c]; ok {
		return s
	}
	return t.Styles[CategoryDefault]
}

// UnknownThemeError is returned by Set.Resolve for a theme name not present
// in the set. Fatal to the single diagram request, not to the process.
type UnknownThemeError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownThemeError) Error() string {
	return fmt.Sprintf("unknown theme %q", e.Name)
}

// Set is an immutable collection of themes.
type Set struct {
	themes map[string]Theme
}

// NewSet builds a set from the given themes. Later themes with the same name
// replace earlier ones.
func NewSet(themes ...Theme) Set {
	m := make(map[string]Theme, len(themes))
	for _, t := range themes {
		m[t.Name] = t
	}
	return Set{themes: m}
}

// Builtin returns the set of builtin themes.
func Builtin() Set {
	return NewSet(defaultTheme, darkTheme)
}

// With returns a new set containing the receiver's themes plus the given
// ones. The receiver is not modified.
func (s Set) With(themes ...Theme) Set {
	all := make([]Theme, 0, len(s.themes)+len(themes))
	for _, name := range s.Names() {
		all = append(all, s.themes[name])
	}
	all = append(all, themes...)
	return NewSet(all...)
}

// Names returns the theme names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.themes))
	for name := range s.themes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Theme returns the named theme.
func (s Set) Theme(name string) (Theme, bool) {
	t, ok := s.themes[name]
	return t, ok
}

// Resolve returns the style for a resource under the named theme. The
// resource's category is derived from its type via the per-provider
// classification tables; unknown types use the theme's default style.
func (s Set) Resolve(r resource.Resource, themeName string) (Style, error) {
	t, ok := s.themes[themeName]
	if !ok {
		return Style{}, &UnknownThemeError{Name: themeName}
	}
	return t.style(Classify(r.Provider, r.Type)), nil
}

// DefaultName is the theme applied when a request names none.
const DefaultName = "default"

var defaultTheme = Theme{
	Name: DefaultName,
	Styles: map[Category]Style{
		CategoryCompute:  {Color: "#4C9AFF", Icon: "server", Shape: "box"},
		CategoryStorage:  {Color: "#36B37E", Icon: "database", Shape: "cylinder"},
		CategoryNetwork:  {Color: "#6554C0", Icon: "share-2", Shape: "ellipse"},
		CategoryDatabase: {Color: "#FF8B00", Icon: "layers", Shape: "cylinder"},
		CategorySecurity: {Color: "#FF5630", Icon: "shield", Shape: "diamond"},
		CategoryDefault:  {Color: "#8993A4", Icon: "box", Shape: "box"},
	},
}

var darkTheme = Theme{
	Name: "dark",
	Styles: map[Category]Style{
		CategoryCompute:  {Color: "#2684FF", Icon: "server", Shape: "box"},
		CategoryStorage:  {Color: "#00875A", Icon: "database", Shape: "cylinder"},
		CategoryNetwork:  {Color: "#8777D9", Icon: "share-2", Shape: "ellipse"},
		CategoryDatabase: {Color: "#FF991F", Icon: "layers", Shape: "cylinder"},
		CategorySecurity: {Color: "#DE350B", Icon: "shield", Shape: "diamond"},
		CategoryDefault:  {Color: "#505F79", Icon: "box", Shape: "box"},
	},
}
