// Package pipeline provides the core diagram pipeline for Cloudplot.
//
// This package implements the complete discover → diagram → render pipeline
// that can be used by CLI, API, and worker components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Discover: Fetch inventory records per scope, normalize them, and derive
//     relationships into a resource graph
//  2. Diagram: Compute a layout, resolve styles, and emit the diagram
//     description
//  3. Render: Generate output in various formats (JSON, DOT, SVG, PNG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, theme.Builtin(), logger)
//	opts := pipeline.Options{
//	    Algorithm: "hierarchical",
//	    Theme:     "default",
//	    Formats:   []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, sources, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	// Discover only
//	g, failed, err := runner.Discover(ctx, sources, opts)
//
//	// Diagram with existing graph
//	d, err := runner.BuildDiagram(ctx, g, opts)
//
//	// Render with existing diagram
//	artifacts, err := runner.Render(ctx, d, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cloudplot/cloudplot/pkg/cache"
	"github.com/cloudplot/cloudplot/pkg/diagram"
	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/layout"
	"github.com/cloudplot/cloudplot/pkg/relate"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
	"github.com/cloudplot/cloudplot/pkg/source"
	"github.com/cloudplot/cloudplot/pkg/theme"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Worker
// =============================================================================

const (
	// DefaultAlgorithm is the default layout algorithm.
	DefaultAlgorithm = string(layout.Hierarchical)

	// DefaultTheme is the default theme name.
	DefaultTheme = theme.DefaultName
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the diagram pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Discovery options
	MaxScanDepth    int  `json:"max_scan_depth,omitempty"`    // property tree depth cap for reference scanning
	MaxScanElements int  `json:"max_scan_elements,omitempty"` // property tree element cap for reference scanning
	Refresh         bool `json:"refresh,omitempty"`           // bypass the graph cache

	// Diagram options
	Algorithm      string  `json:"algorithm,omitempty"`
	Theme          string  `json:"theme,omitempty"`
	MaxNodesPerRow int     `json:"max_nodes_per_row,omitempty"`
	TierSpacing    float64 `json:"tier_spacing,omitempty"`
	NodeSpacing    float64 `json:"node_spacing,omitempty"`
	Iterations     int     `json:"iterations,omitempty"`
	Epsilon        float64 `json:"epsilon,omitempty"`
	Radius         float64 `json:"radius,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the discovered resource graph.
	Graph *resgraph.Graph

	// GraphHash is the content hash of the graph.
	GraphHash string

	// Diagram is the emitted diagram description.
	Diagram diagram.Description

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// FailedScopes lists sources whose fetch failed. Discovery tolerates
	// partial failure; callers decide whether a partial graph is acceptable.
	FailedScopes []ScopeError

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// ScopeError records a failed source fetch.
type ScopeError struct {
	Scope source.Scope `json:"scope"`
	Err   error        `json:"-"`
}

// Message returns the fetch error as a string for serialization.
func (s ScopeError) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	Malformed    int // records dropped during normalization
	DiscoverTime time.Duration
	DiagramTime  time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GraphHit   bool // Whether the graph came from cache
	DiagramHit bool // Whether the diagram came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, dot, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAlgorithm checks that a layout algorithm is valid.
func ValidateAlgorithm(algo string) error {
	if !layout.Algorithm(algo).Valid() {
		return errors.New(errors.ErrCodeInvalidAlgorithm, "invalid algorithm: %q (must be one of: hierarchical, force, circular)", algo)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDiscoverDefaults()
	if err := o.ValidateForDiagram(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDiscoverDefaults sets default values for discovery.
func (o *Options) SetDiscoverDefaults() {
	if o.MaxScanDepth == 0 {
		o.MaxScanDepth = relate.DefaultMaxDepth
	}
	if o.MaxScanElements == 0 {
		o.MaxScanElements = relate.DefaultMaxElements
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetDiagramDefaults sets default values for diagram building.
func (o *Options) SetDiagramDefaults() {
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForDiagram validates and sets defaults for diagram building.
func (o *Options) ValidateForDiagram() error {
	o.SetDiagramDefaults()
	return ValidateAlgorithm(o.Algorithm)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// LayoutOptions returns the layout engine options derived from o.
// Zero-valued fields fall back to the layout package defaults.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		MaxNodesPerRow: o.MaxNodesPerRow,
		TierSpacing:    o.TierSpacing,
		NodeSpacing:    o.NodeSpacing,
		Iterations:     o.Iterations,
		Epsilon:        o.Epsilon,
		Radius:         o.Radius,
	}.WithDefaults()
}

// DiagramKeyOpts returns cache key options for diagram building. The
// defaulted layout options feed the key so implicit and explicit defaults
// map to the same entry.
func (o *Options) DiagramKeyOpts() cache.DiagramKeyOpts {
	lo := o.LayoutOptions()
	return cache.DiagramKeyOpts{
		Algorithm:      o.Algorithm,
		Theme:          o.Theme,
		MaxNodesPerRow: lo.MaxNodesPerRow,
		TierSpacing:    lo.TierSpacing,
		NodeSpacing:    lo.NodeSpacing,
		Iterations:     lo.Iterations,
		Epsilon:        lo.Epsilon,
		Radius:         lo.Radius,
	}
}

// GraphKeyOpts returns cache key options for discovery over the given scopes.
func (o *Options) GraphKeyOpts(scopes []string) cache.GraphKeyOpts {
	return cache.GraphKeyOpts{Providers: scopes}
}
