package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/cloudplot/cloudplot/internal/server"
	"github.com/cloudplot/cloudplot/pkg/cache"
	"github.com/cloudplot/cloudplot/pkg/pipeline"
	"github.com/cloudplot/cloudplot/pkg/store"
)

// serveCommand creates the serve command for running the HTTP API server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configFile string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

Exposes the discovery and diagram pipeline over HTTP. Configuration is
layered: defaults, then an optional TOML config file, then CLOUDPLOT_*
environment variables (a .env file in the working directory is honored).

When redis_addr is set, pipeline results are cached in Redis instead of the
local file cache. When mongo_uri is set, snapshots and diagrams are persisted
to MongoDB and the snapshot endpoints become available.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), configFile, addr)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "TOML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

// runServe wires the cache, store, and runner from config and serves until
// the context is canceled.
func (c *CLI) runServe(ctx context.Context, configFile, addr string) error {
	cfg, err := server.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	pipelineCache, err := c.serverCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	themes, err := loadThemes(cfg.ThemesFile)
	if err != nil {
		return fmt.Errorf("load themes: %w", err)
	}

	runner := pipeline.NewRunner(pipelineCache, nil, themes, c.Logger)
	defer runner.Close()

	var st *store.Store
	if cfg.MongoURI != "" {
		st, err = store.Open(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("connect store: %w", err)
		}
		defer st.Close(context.Background())
		c.Logger.Info("Connected to store", "database", cfg.MongoDB)
	}

	srv := server.NewServer(runner, st, c.Logger)
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("Server listening", "addr", cfg.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// serverCache picks Redis when configured, otherwise the file cache.
func (c *CLI) serverCache(ctx context.Context, cfg server.Config) (cache.Cache, error) {
	if cfg.RedisAddr != "" {
		c.Logger.Info("Using Redis cache", "addr", cfg.RedisAddr)
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	dir := cfg.CacheDir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}
