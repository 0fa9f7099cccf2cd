package relate

import (
	"errors"
	"regexp"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

// ErrScanLimit is reported when the reference scan trips a depth or element
// guard. The scan fails closed: partial results for the resource are kept.
var ErrScanLimit = errors.New("property scan limit exceeded")

// Identifier-shape patterns per provider. A string must both match one of
// these and exist in the known-id index to count as a reference. The shapes
// are deliberately loose; the index lookup is the authoritative filter.
var idShapes = []*regexp.Regexp{
	// Azure ARM ids: /subscriptions/<sub>/... with multiple segments.
	regexp.MustCompile(`^/subscriptions/[^/]+(?:/[^/]+){2,}$`),
	// AWS ARNs.
	regexp.MustCompile(`^arn:aws[a-z0-9-]*:[a-z0-9-]+:[a-z0-9-]*:[0-9]*:.+$`),
	// GCP self links and asset names: projects/<p>/... segments.
	regexp.MustCompile(`^(?://[a-z]+\.googleapis\.com/|https://www\.googleapis\.com/[a-z]+/v\d+/)?projects/[^/]+(?:/[^/]+){2,}$`),
}

// looksLikeID reports whether s has the shape of a provider-native resource
// identifier.
func looksLikeID(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, re := range idShapes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// scanState carries the walk budget across recursion.
type scanState struct {
	maxDepth int
	elements int // remaining element budget
}

// scanReferences walks the resource's property bag to unbounded depth looking
// for string values that name another known resource. Every hit yields
// DependsOn(resource → target), excluding self-references and the resource's
// own parent scope (that link is already captured as containment).
//
// The walk is an accumulating fold: each call returns the ids it found and
// the caller merges, so no shared accumulator is mutated during traversal.
func (e *Engine) scanReferences(r *resource.Resource, index map[string]*resource.Resource) ([]Relationship, error) {
	if len(r.Properties) == 0 {
		return nil, nil
	}

	state := &scanState{maxDepth: e.maxDepth, elements: e.maxElements}
	props := resource.MapValue(r.Properties)

	targets, err := walkValue(props, 0, state, index)

	var rels []Relationship
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if target == r.ID || target == r.ParentScope || seen[target] {
			continue
		}
		seen[target] = true
		rels = append(rels, Relationship{
			Source: r.ID,
			Target: target,
			Type:   DependsOn,
			Meta:   map[string]string{MetaDetector: "refscan"},
		})
	}
	return rels, err
}

// walkValue recurses through the tagged-variant property tree and returns
// candidate target ids in deterministic (sorted-key) order. A tripped guard
// surfaces as ErrScanLimit alongside whatever was found so far.
func walkValue(v resource.Value, depth int, state *scanState, index map[string]*resource.Resource) ([]string, error) {
	if depth > state.maxDepth {
		return nil, ErrScanLimit
	}
	if state.elements <= 0 {
		return nil, ErrScanLimit
	}
	state.elements--

	switch v.Kind {
	case resource.KindString:
		if looksLikeID(v.Str) {
			if _, ok := index[v.Str]; ok {
				return []string{v.Str}, nil
			}
		}
		return nil, nil

	case resource.KindMap:
		var found []string
		for _, k := range v.SortedKeys() {
			ids, err := walkValue(v.Map[k], depth+1, state, index)
			found = append(found, ids...)
			if err != nil {
				return found, err
			}
		}
		return found, nil

	case resource.KindSeq:
		var found []string
		for _, elem := range v.Seq {
			ids, err := walkValue(elem, depth+1, state, index)
			found = append(found, ids...)
			if err != nil {
				return found, err
			}
		}
		return found, nil

	default:
		// Numbers, bools, and nulls cannot reference a resource.
		return nil, nil
	}
}
