package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cloudplot/cloudplot/pkg/theme"
)

// themesCommand creates the themes command for listing available themes.
func (c *CLI) themesCommand() *cobra.Command {
	var themesFile string

	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List available diagram themes",
		Long: `List available diagram themes.

Shows the builtin themes plus any themes defined in a TOML themes file.
Each theme maps resource categories (compute, storage, network, database,
security) to a color, icon, and node shape.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThemes(themesFile)
		},
	}

	cmd.Flags().StringVar(&themesFile, "themes-file", "", "TOML file with custom themes")

	return cmd
}

// runThemes prints each theme with its per-category styles.
func runThemes(themesFile string) error {
	themes, err := loadThemes(themesFile)
	if err != nil {
		return fmt.Errorf("load themes: %w", err)
	}

	for _, name := range themes.Names() {
		t, _ := themes.Theme(name)

		title := name
		if name == theme.DefaultName {
			title += " " + StyleDim.Render("(default)")
		}
		fmt.Println(StyleTitle.Render(title))

		for _, cat := range theme.Categories() {
			s, ok := t.Styles[cat]
			if !ok {
				continue
			}
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("■")
			fmt.Printf("  %s %-10s %s  %s\n",
				swatch, string(cat), StyleValue.Render(s.Color), StyleDim.Render(s.Shape+" / "+s.Icon))
		}
		printNewline()
	}

	return nil
}
