// Package cache provides content-addressed caching for pipeline stages.
//
// Three backends implement the same interface: FileCache for CLI runs,
// RedisCache for server deployments, and NullCache to disable caching.
// Keys are derived by a Keyer from content hashes plus the options that
// influence the stage's output, so identical inputs always map to the same
// entry and changed options never collide.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with a TTL.
type Cache interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Cache lifetimes per stage. Graphs change whenever discovery reruns, so
// they expire fastest; diagrams and artifacts are pure functions of their
// inputs and keep longer.
const (
	TTLGraph    = 1 * time.Hour
	TTLDiagram  = 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// GraphKeyOpts are the inputs that distinguish cached discovery graphs.
type GraphKeyOpts struct {
	Providers []string // sorted provider/region scopes included in the run
}

// DiagramKeyOpts are the inputs that distinguish cached diagram descriptions
// built from the same graph.
type DiagramKeyOpts struct {
	Algorithm      string
	Theme          string
	MaxNodesPerRow int
	TierSpacing    float64
	NodeSpacing    float64
	Iterations     int
	Epsilon        float64
	Radius         float64
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// GraphKey keys a discovery snapshot by its input content hash.
	GraphKey(inputHash string, opts GraphKeyOpts) string
	// DiagramKey keys a diagram description by graph hash and build options.
	DiagramKey(graphHash string, opts DiagramKeyOpts) string
	// ArtifactKey keys a rendered artifact by diagram hash and format.
	ArtifactKey(diagramHash, format string) string
}

// DefaultKeyer hashes key components with SHA-256 under a per-stage prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// GraphKey implements Keyer.
func (k *DefaultKeyer) GraphKey(inputHash string, opts GraphKeyOpts) string {
	return hashKey("graph", inputHash, opts)
}

// DiagramKey implements Keyer.
func (k *DefaultKeyer) DiagramKey(graphHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", graphHash, opts)
}

// ArtifactKey implements Keyer.
func (k *DefaultKeyer) ArtifactKey(diagramHash, format string) string {
	return hashKey("artifact", diagramHash, format)
}
