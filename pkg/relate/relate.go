// Package relate derives typed relationships between normalized resources.
//
// Three detectors run over the same resource set and their outputs are merged:
//
//   - Containment: a resource whose parent_scope matches another resource's id
//     yields Contains(parent → child).
//   - Adjacency: registered per-provider rules recognize finer-grained
//     structural links (a subnet referencing its network) and yield ConnectsTo.
//   - Reference scan: an unbounded-depth walk of each property bag finds
//     string values shaped like another resource's id and yields DependsOn.
//
// The merged edge set is deduplicated by a stable sort on
// (source, target, type); the first occurrence wins. Self-edges and edges
// referencing ids outside the resource set are never emitted. Cycles between
// resources are permitted; downstream layout tolerates them.
//
// Failures local to one resource or one detector are logged and skipped.
// Discovery over an empty resource set yields an empty relationship set.
package relate

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

// Type classifies a relationship edge.
type Type string

// Relationship types.
const (
	// Contains links an organizational scope to a resource it holds.
	Contains Type = "contains"
	// ConnectsTo links structurally adjacent resources (network → subnet).
	ConnectsTo Type = "connects_to"
	// DependsOn links a resource to another it references in its configuration.
	DependsOn Type = "depends_on"
)

// Valid reports whether t is a known relationship type.
func (t Type) Valid() bool {
	switch t {
	case Contains, ConnectsTo, DependsOn:
		return true
	}
	return false
}

// Relationship is a directed, typed edge between two resource ids.
// Meta carries the detection rationale (matched rule, property path).
type Relationship struct {
	Source string            `json:"source"`
	Target string            `json:"target"`
	Type   Type              `json:"type"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// key is the stable dedup sort key.
func (r Relationship) key() string {
	return r.Source + "|" + r.Target + "|" + string(r.Type)
}

// Meta keys written by the detectors.
const (
	MetaDetector = "detector"
	MetaPath     = "path"
	MetaRule     = "rule"
)

// Scan guards. Property bags are tree-shaped, so the walk needs no visited
// set, but pathological inputs are bounded by depth and element count.
// Tripping a guard stops scanning that resource and keeps partial results.
const (
	DefaultMaxDepth    = 64
	DefaultMaxElements = 10000
)

// Engine runs the detectors. Construct with NewEngine; the zero value has no
// rules and a discarding logger.
type Engine struct {
	rules       []AdjacencyRule
	logger      *log.Logger
	maxDepth    int
	maxElements int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-resource detector failures and
// scan limit events.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRules replaces the builtin adjacency rule set.
func WithRules(rules []AdjacencyRule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithScanLimits overrides the reference-scan depth and element guards.
func WithScanLimits(maxDepth, maxElements int) Option {
	return func(e *Engine) {
		if maxDepth > 0 {
			e.maxDepth = maxDepth
		}
		if maxElements > 0 {
			e.maxElements = maxElements
		}
	}
}

// NewEngine creates an engine with the builtin adjacency rules and default
// scan limits.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:       BuiltinRules(),
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
		maxDepth:    DefaultMaxDepth,
		maxElements: DefaultMaxElements,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discover runs all detectors over the resource set and returns the merged,
// deduplicated relationship list. The result is deterministic for a given
// input: edges are sorted by (source, target, type).
func (e *Engine) Discover(resources []resource.Resource) []Relationship {
	if len(resources) == 0 {
		return nil
	}

	index := make(map[string]*resource.Resource, len(resources))
	for i := range resources {
		index[resources[i].ID] = &resources[i]
	}

	var all []Relationship
	for i := range resources {
		rels, err := e.discoverResource(&resources[i], index)
		all = append(all, rels...)
		if err != nil {
			e.logger.Warn("detector failed for resource, skipping",
				"resource", resources[i].ID, "err", err)
		}
	}

	return dedup(all)
}

// discoverResource runs all three detectors for one resource. A panic in a
// detector (user-registered rules included) is converted to an error so a
// single bad resource never aborts discovery.
func (e *Engine) discoverResource(r *resource.Resource, index map[string]*resource.Resource) (rels []Relationship, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("detector panic: %v", p)
		}
	}()

	rels = append(rels, e.detectContainment(r, index)...)
	rels = append(rels, e.detectAdjacency(r, index)...)

	deps, scanErr := e.scanReferences(r, index)
	rels = append(rels, deps...)
	if scanErr != nil {
		// Guard tripped: partial results are kept, not an abort.
		e.logger.Warn("reference scan limit exceeded",
			"resource", r.ID, "err", scanErr)
	}

	return rels, nil
}

// detectContainment emits Contains(parent → child) when the resource's
// parent scope resolves to a known resource. Unresolvable scopes emit
// nothing; no placeholder nodes are synthesized.
func (e *Engine) detectContainment(r *resource.Resource, index map[string]*resource.Resource) []Relationship {
	if r.ParentScope == "" || r.ParentScope == r.ID {
		return nil
	}
	parent, ok := index[r.ParentScope]
	if !ok {
		return nil
	}
	return []Relationship{{
		Source: parent.ID,
		Target: r.ID,
		Type:   Contains,
		Meta:   map[string]string{MetaDetector: "containment"},
	}}
}

// dedup removes exact duplicates by a stable sort on (source, target, type).
// The first occurrence of a key wins, so detector metadata from the earliest
// detection is retained.
func dedup(rels []Relationship) []Relationship {
	if len(rels) == 0 {
		return nil
	}
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].key() < rels[j].key() })

	out := rels[:1]
	for _, r := range rels[1:] {
		if r.key() != out[len(out)-1].key() {
			out = append(out, r)
		}
	}
	return out
}
