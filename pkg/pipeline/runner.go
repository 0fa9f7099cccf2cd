package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cloudplot/cloudplot/pkg/cache"
	"github.com/cloudplot/cloudplot/pkg/diagram"
	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/export"
	"github.com/cloudplot/cloudplot/pkg/layout"
	"github.com/cloudplot/cloudplot/pkg/observability"
	"github.com/cloudplot/cloudplot/pkg/relate"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
	"github.com/cloudplot/cloudplot/pkg/resource"
	"github.com/cloudplot/cloudplot/pkg/source"
	"github.com/cloudplot/cloudplot/pkg/theme"
)

// fetchConcurrency bounds the number of sources fetched in parallel.
const fetchConcurrency = 8

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, themes, and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options; concurrent diagram builds for the
// same key are collapsed into a single computation.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Themes   theme.Set
	Registry *resource.Registry
	Logger   *log.Logger

	group singleflight.Group
}

// NewRunner creates a runner with the given cache, keyer, and themes.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If themes is empty, the builtin themes are used.
func NewRunner(c cache.Cache, keyer cache.Keyer, themes theme.Set, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if len(themes.Names()) == 0 {
		themes = theme.Builtin()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Themes:   themes,
		Registry: resource.NewRegistry(),
		Logger:   logger,
	}
}

// Execute runs the complete discover → diagram → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, sources []source.Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Discover
	discoverStart := time.Now()
	g, failed, graphHit, malformed, err := r.discoverWithCacheInfo(ctx, sources, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.FailedScopes = failed
	result.Stats.DiscoverTime = time.Since(discoverStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.Malformed = malformed
	result.CacheInfo.GraphHit = graphHit

	// Compute graph hash for cache keys and API responses
	if graphData, err := resgraph.Marshal(g); err == nil {
		result.GraphHash = cache.Hash(graphData)
	}

	r.Logger.Info("discovered resources",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"failed_scopes", len(failed),
		"duration", result.Stats.DiscoverTime)

	// Stage 2: Diagram
	diagramStart := time.Now()
	d, diagramHit, err := r.BuildDiagramWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Diagram = d
	result.Stats.DiagramTime = time.Since(diagramStart)
	result.CacheInfo.DiagramHit = diagramHit

	r.Logger.Info("built diagram",
		"algorithm", opts.Algorithm,
		"theme", opts.Theme,
		"duration", result.Stats.DiagramTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, d, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Discover fetches all sources, normalizes records, and derives relationships
// into a resource graph. Fetch failures are tolerated per scope and reported
// in the second return value; the graph covers the scopes that succeeded.
func (r *Runner) Discover(ctx context.Context, sources []source.Source, opts Options) (*resgraph.Graph, []ScopeError, error) {
	g, failed, _, _, err := r.discoverWithCacheInfo(ctx, sources, opts)
	return g, failed, err
}

// DiscoverWithCacheInfo is Discover plus a flag reporting whether the graph
// came from the cache.
func (r *Runner) DiscoverWithCacheInfo(ctx context.Context, sources []source.Source, opts Options) (*resgraph.Graph, []ScopeError, bool, error) {
	g, failed, hit, _, err := r.discoverWithCacheInfo(ctx, sources, opts)
	return g, failed, hit, err
}

func (r *Runner) discoverWithCacheInfo(ctx context.Context, sources []source.Source, opts Options) (*resgraph.Graph, []ScopeError, bool, int, error) {
	opts.SetDiscoverDefaults()
	r.applyLogger(&opts)

	scopes := make([]string, 0, len(sources))
	for _, s := range sources {
		scopes = append(scopes, s.Scope().String())
	}
	sort.Strings(scopes)

	observability.Pipeline().OnDiscoverStart(ctx, scopes)
	start := time.Now()

	// Fetch all sources concurrently. A failed scope must not cancel its
	// siblings, so errors are collected instead of returned to the group.
	// Records are kept per source so the content hash below does not depend
	// on goroutine completion order.
	var (
		mu        sync.Mutex
		perSource = make([][]resource.RawRecord, len(sources))
		failed    []ScopeError
	)
	var eg errgroup.Group
	eg.SetLimit(fetchConcurrency)
	for i, src := range sources {
		eg.Go(func() error {
			recs, err := src.Fetch(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.Logger.Warn("source fetch failed", "scope", src.Scope().String(), "err", err)
				failed = append(failed, ScopeError{Scope: src.Scope(), Err: err})
				return nil
			}
			perSource[i] = recs
			return nil
		})
	}
	_ = eg.Wait()

	sort.Slice(failed, func(i, j int) bool {
		return failed[i].Scope.String() < failed[j].Scope.String()
	})

	var records []resource.RawRecord
	for _, recs := range perSource {
		records = append(records, recs...)
	}

	// The graph cache is keyed by what was actually fetched. Keying on scope
	// labels alone would serve a stale graph when the same scope yields
	// different inventory content.
	cacheKey, keyOK := "", false
	if inputHash, err := inventoryHash(scopes, records); err == nil {
		cacheKey = r.Keyer.GraphKey(inputHash, opts.GraphKeyOpts(scopes))
		keyOK = true
	} else {
		r.Logger.Warn("inventory not hashable, graph cache disabled for this run", "err", err)
	}

	if keyOK && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if g, err := resgraph.Read(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, "graph")
				observability.Pipeline().OnDiscoverComplete(ctx, scopes, g.NodeCount(), time.Since(start), nil)
				return g, failed, true, 0, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	resources, malformed := r.Registry.Normalize(records)
	for _, m := range malformed {
		r.Logger.Warn("dropped malformed record", "index", m.Index, "provider", m.Provider, "reason", m.Reason)
	}

	engine := relate.NewEngine(
		relate.WithLogger(r.Logger),
		relate.WithScanLimits(opts.MaxScanDepth, opts.MaxScanElements),
	)
	rels := engine.Discover(resources)
	g := resgraph.New(resources, rels)

	// Only complete runs are cached. Serving a partial graph from cache
	// would hide scope failures from later callers.
	if keyOK && len(failed) == 0 {
		if data, err := resgraph.Marshal(g); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLGraph)
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}

	observability.Pipeline().OnDiscoverComplete(ctx, scopes, g.NodeCount(), time.Since(start), nil)
	return g, failed, false, len(malformed), nil
}

// BuildDiagramWithCacheInfo builds a diagram with caching and returns cache hit info.
// Concurrent builds for the same graph and options share one computation.
func (r *Runner) BuildDiagramWithCacheInfo(ctx context.Context, g *resgraph.Graph, opts Options) (diagram.Description, bool, error) {
	if err := opts.ValidateForDiagram(); err != nil {
		return diagram.Description{}, false, err
	}
	r.applyLogger(&opts)

	if _, ok := r.Themes.Theme(opts.Theme); !ok {
		return diagram.Description{}, false, errors.New(errors.ErrCodeThemeNotFound, "unknown theme: %q", opts.Theme)
	}

	graphData, err := resgraph.Marshal(g)
	if err != nil {
		return diagram.Description{}, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize graph for cache key")
	}
	cacheKey := r.Keyer.DiagramKey(cache.Hash(graphData), opts.DiagramKeyOpts())

	type buildResult struct {
		d   diagram.Description
		hit bool
	}

	v, err, _ := r.group.Do(cacheKey, func() (any, error) {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := diagram.Unmarshal(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "diagram")
				return buildResult{d: cached, hit: true}, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "diagram")

		observability.Pipeline().OnDiagramStart(ctx, opts.Algorithm, g.NodeCount())
		start := time.Now()

		d, err := r.buildDiagram(g, opts)
		observability.Pipeline().OnDiagramComplete(ctx, opts.Algorithm, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		if data, err := diagram.Marshal(d); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLDiagram)
			observability.Cache().OnCacheSet(ctx, "diagram", len(data))
		}
		return buildResult{d: d}, nil
	})
	if err != nil {
		return diagram.Description{}, false, err
	}

	br := v.(buildResult)
	return br.d, br.hit, nil
}

// BuildDiagram is a convenience wrapper that calls BuildDiagramWithCacheInfo
// and discards the cache hit info.
func (r *Runner) BuildDiagram(ctx context.Context, g *resgraph.Graph, opts Options) (diagram.Description, error) {
	d, _, err := r.BuildDiagramWithCacheInfo(ctx, g, opts)
	return d, err
}

// buildDiagram computes the layout, resolves styles, and emits the description.
func (r *Runner) buildDiagram(g *resgraph.Graph, opts Options) (diagram.Description, error) {
	positions, err := layout.Compute(g, layout.Algorithm(opts.Algorithm), opts.LayoutOptions())
	if err != nil {
		return diagram.Description{}, errors.Wrap(errors.ErrCodeInvalidAlgorithm, err, "compute layout")
	}

	styles := make(map[string]theme.Style, g.NodeCount())
	for _, res := range g.Resources() {
		style, err := r.Themes.Resolve(res, opts.Theme)
		if err != nil {
			return diagram.Description{}, errors.Wrap(errors.ErrCodeThemeNotFound, err, "resolve style for %s", res.ID)
		}
		styles[res.ID] = style
	}

	return diagram.Emit(g, positions, styles, opts.Logger), nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d diagram.Description, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	// Try to get all formats from cache. The diagram id is already a
	// content hash, so it keys artifacts directly.
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(d.ID, format)
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, true, nil
	}

	// Render all formats
	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := r.renderFormat(ctx, d, format)
		if err != nil {
			observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
			return nil, false, err
		}
		rendered[format] = data
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(d.ID, format)
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Render(ctx context.Context, d diagram.Description, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, opts)
	return artifacts, err
}

func (r *Runner) renderFormat(ctx context.Context, d diagram.Description, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := diagram.Marshal(d)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal diagram")
		}
		return data, nil
	case FormatDOT:
		return []byte(export.ToDOT(d)), nil
	case FormatSVG:
		data, err := export.RenderSVG(ctx, d)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		return data, nil
	case FormatPNG:
		data, err := export.RenderPNG(ctx, d)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render png")
		}
		return data, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q", format)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// inventoryHash derives the graph cache key input from the fetched records.
// Map keys marshal in sorted order and records keep source order, so equal
// inventory content yields equal hashes.
func inventoryHash(scopes []string, records []resource.RawRecord) (string, error) {
	data, err := json.Marshal(struct {
		Scopes  []string             `json:"scopes"`
		Records []resource.RawRecord `json:"records"`
	}{Scopes: scopes, Records: records})
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
