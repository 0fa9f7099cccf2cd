// Package resource defines the common resource model and the normalizer that
// maps provider-specific discovery records into it.
//
// Discovery clients (the Azure/AWS/GCP SDK callers) hand over batches of
// [RawRecord] values: loosely-typed field bags tagged with a provider. The
// normalizer selects a per-provider mapping table and produces uniform
// [Resource] entities. Records missing the mandatory id are dropped and
// reported as [MalformedRecordError], never failing the batch.
//
// Resources are immutable for the duration of one discovery run. A later run
// supersedes a resource by producing a new record with the same ID.
package resource

import (
	"encoding/json"
	"fmt"
)

// Provider identifies the cloud a resource was discovered in.
type Provider string

// Supported providers.
const (
	Azure Provider = "azure"
	AWS   Provider = "aws"
	GCP   Provider = "gcp"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case Azure, AWS, GCP:
		return true
	}
	return false
}

// Resource is a single discovered cloud entity in the common model.
//
// ID is the provider-native identifier and is globally unique within a
// discovery snapshot. ParentScope names the organizational container
// (resource group, account, project) holding the resource; it may reference
// an ID outside the snapshot, in which case no containment edge is derived.
type Resource struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Type        string            `json:"type,omitempty"`
	Provider    Provider          `json:"provider"`
	Region      string            `json:"region,omitempty"`
	Zone        string            `json:"zone,omitempty"`
	ParentScope string            `json:"parent_scope,omitempty"`
	Properties  map[string]Value  `json:"properties,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Property resolves a dot-free path of keys inside the resource's property
// bag. Returns false when any segment is missing or not a mapping.
func (r Resource) Property(path ...string) (Value, bool) {
	if r.Properties == nil || len(path) == 0 {
		return Value{}, false
	}
	first, ok := r.Properties[path[0]]
	if !ok {
		return Value{}, false
	}
	return first.Lookup(path[1:]...)
}

// RawRecord is one provider record as produced by a discovery client.
// Fields holds every key of the original payload; the provider tag selects
// the mapping table used to interpret them.
type RawRecord struct {
	Provider string
	Fields   map[string]any
}

// UnmarshalJSON captures the provider tag and retains all remaining keys in
// Fields so provider-specific field names survive into normalization.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	provider, _ := fields["provider"].(string)
	delete(fields, "provider")
	r.Provider = provider
	r.Fields = fields
	return nil
}

// MarshalJSON restores the flat record shape with the provider tag inlined.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["provider"] = r.Provider
	return json.Marshal(out)
}

// stringField returns the first non-empty string among the named fields.
func (r RawRecord) stringField(names ...string) string {
	for _, name := range names {
		if s, ok := r.Fields[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// mapField returns the first field that decodes as an object.
func (r RawRecord) mapField(names ...string) map[string]any {
	for _, name := range names {
		if m, ok := r.Fields[name].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// MalformedRecordError reports a record that could not be normalized.
// It carries the batch index and provider so callers can surface which
// discovery scope produced the bad record.
type MalformedRecordError struct {
	Index    int    // Position in the input batch
	Provider string // Provider tag as received (may be unknown)
	Reason   string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d (provider %q): %s", e.Index, e.Provider, e.Reason)
}
