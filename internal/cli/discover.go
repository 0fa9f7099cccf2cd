package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/pipeline"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
	"github.com/cloudplot/cloudplot/pkg/source"
)

// discoverCommand creates the discover command for building resource graphs.
func (c *CLI) discoverCommand() *cobra.Command {
	var (
		output   string
		provider string
		account  string
		region   string
		refresh  bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "discover [inventory.json...]",
		Short: "Build a resource graph from cloud inventory files",
		Long: `Build a resource graph from cloud inventory files.

The discover command reads one or more JSON inventory exports, normalizes the
records into canonical resources, derives containment, connection, and
dependency relationships, and writes the resulting graph as JSON.

Each inventory file is treated as one scope. The --provider flag sets the
default provider for records that don't carry their own; --account and
--region label the scope for caching and error reporting.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiscover(cmd.Context(), args, provider, account, region, output, refresh, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.graph.json)")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "default provider for the inventory (azure, aws, gcp)")
	cmd.Flags().StringVar(&account, "account", "", "account or subscription label for the scope")
	cmd.Flags().StringVar(&region, "region", "", "region label for the scope")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the graph cache and rediscover")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runDiscover fetches the inventories, builds the graph, and writes output.
func (c *CLI) runDiscover(ctx context.Context, inputs []string, provider, account, region, output string, refresh, noCache bool) error {
	if output != "" {
		if err := errors.ValidateOutputPath(output); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(noCache, "")
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	scope := source.Scope{Provider: provider, Account: account, Region: region}
	sources := make([]source.Source, 0, len(inputs))
	for _, path := range inputs {
		sources = append(sources, source.NewFile(scope, path))
	}

	opts := pipeline.Options{Refresh: refresh, Logger: loggerFromContext(ctx)}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Discovering resources from %d file(s)...", len(inputs)))
	spinner.Start()

	g, failed, cacheHit, err := runner.DiscoverWithCacheInfo(ctx, sources, opts)
	if err != nil {
		spinner.StopWithError("Discovery failed")
		return fmt.Errorf("discover: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, f := range failed {
		printWarning("Scope %s failed: %s", f.Scope, f.Message())
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(inputs[0], filepath.Ext(inputs[0]))
		outputPath = base + ".graph.json"
	}

	if err := resgraph.WriteFile(g, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Discovery complete")
	printFile(outputPath)
	printStats(g.NodeCount(), g.EdgeCount(), cacheHit)
	printNewline()
	printNextStep("Build a diagram", "cloudplot diagram "+outputPath)

	return nil
}
