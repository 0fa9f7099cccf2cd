package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/pipeline"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
)

// diagramCommand creates the diagram command for building and rendering
// diagrams from a resource graph.
func (c *CLI) diagramCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		themesFile string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "diagram [graph.json]",
		Short: "Build and render a diagram from a resource graph",
		Long: `Build and render a diagram from a resource graph.

The diagram command takes a graph.json file (produced by 'discover'), computes
node positions with the selected layout algorithm, resolves per-node styles
from the theme, and renders the diagram in one or more output formats.

Supported algorithms: hierarchical (default), force, circular.
Supported formats: svg (default), png, dot, json.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formatsStr)
			return c.runDiagram(cmd.Context(), args[0], opts, output, themesFile, noCache)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: derived from input)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	// Diagram flags
	cmd.Flags().StringVarP(&opts.Algorithm, "algorithm", "a", pipeline.DefaultAlgorithm, "layout algorithm: hierarchical (default), force, circular")
	cmd.Flags().StringVarP(&opts.Theme, "theme", "t", pipeline.DefaultTheme, "theme name")
	cmd.Flags().StringVar(&themesFile, "themes-file", "", "TOML file with custom themes")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	cmd.Flags().IntVar(&opts.MaxNodesPerRow, "max-nodes-per-row", 0, "wrap hierarchical tiers after this many nodes")
	cmd.Flags().Float64Var(&opts.TierSpacing, "tier-spacing", 0, "vertical spacing between hierarchical tiers")
	cmd.Flags().Float64Var(&opts.NodeSpacing, "node-spacing", 0, "horizontal spacing between nodes")
	cmd.Flags().IntVar(&opts.Iterations, "iterations", 0, "force-directed iteration cap")

	return cmd
}

// runDiagram loads the graph, builds the diagram, renders it, and writes
// one output file per requested format.
func (c *CLI) runDiagram(ctx context.Context, input string, opts pipeline.Options, output, themesFile string, noCache bool) error {
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return err
	}
	if opts.Theme != "" {
		if err := errors.ValidateThemeName(opts.Theme); err != nil {
			return err
		}
	}
	base := diagramBasePath(output, input)
	if err := errors.ValidateOutputPath(base); err != nil {
		return err
	}

	g, err := resgraph.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache, themesFile)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = loggerFromContext(ctx)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Algorithm))
	spinner.Start()

	d, cacheHit, err := runner.BuildDiagramWithCacheInfo(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Diagram failed")
		return fmt.Errorf("build diagram: %w", err)
	}

	artifacts, _, err := runner.RenderWithCacheInfo(ctx, d, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render diagram: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	printSuccess("Diagram complete")
	for _, format := range opts.Formats {
		path := base + "." + format
		if err := os.WriteFile(path, artifacts[format], 0644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(len(d.Nodes), len(d.Edges), cacheHit)

	return nil
}

// diagramBasePath derives the base output path from the output and input
// file paths, stripping ".graph.json" from discover outputs.
func diagramBasePath(output, input string) string {
	if output != "" {
		if pipeline.ValidFormats[strings.TrimPrefix(filepath.Ext(output), ".")] {
			return strings.TrimSuffix(output, filepath.Ext(output))
		}
		return output
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return strings.TrimSuffix(base, ".graph")
}
