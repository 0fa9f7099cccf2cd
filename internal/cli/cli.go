// Package cli implements the cloudplot command-line interface.
//
// This package provides commands for discovering cloud resource graphs from
// inventory exports, building diagrams from them, listing themes, running the
// HTTP API server, and managing the pipeline cache. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - discover: Build a resource graph from inventory files
//   - diagram: Build and render a diagram from inventory files or a saved graph
//   - themes: List available themes
//   - serve: Run the HTTP API server
//   - cache: Manage the pipeline cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/cloudplot/cloudplot/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cloudplot/cloudplot/pkg/buildinfo"
	"github.com/cloudplot/cloudplot/pkg/cache"
	"github.com/cloudplot/cloudplot/pkg/pipeline"
	"github.com/cloudplot/cloudplot/pkg/theme"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "cloudplot"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "cloudplot",
		Short:        "Cloudplot turns cloud inventories into architecture diagrams",
		Long:         `Cloudplot discovers relationships between cloud resources across Azure, AWS, and GCP inventories and renders them as themed architecture diagrams.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Commands read the logger back out of their context.
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.discoverCommand())
	root.AddCommand(c.diagramCommand())
	root.AddCommand(c.themesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool, themesFile string) (*pipeline.Runner, error) {
	pipelineCache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	themes, err := loadThemes(themesFile)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(pipelineCache, nil, themes, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// loadThemes returns the builtin themes, merged with a TOML themes file when
// one is given. File themes override builtins with the same name.
func loadThemes(path string) (theme.Set, error) {
	themes := theme.Builtin()
	if path == "" {
		return themes, nil
	}
	custom, err := theme.LoadFile(path)
	if err != nil {
		return theme.Set{}, err
	}
	return themes.With(custom...), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/cloudplot/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
