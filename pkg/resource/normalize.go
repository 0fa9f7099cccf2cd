package resource

import "github.com/cloudplot/cloudplot/pkg/errors"

// Mapper converts one raw record into the common resource shape.
// Implementations are pure and must not retain the record.
type Mapper interface {
	Map(rec RawRecord) (Resource, error)
}

// Registry selects a Mapper by provider tag. The zero value is not usable;
// construct with NewRegistry, which installs the builtin provider tables.
type Registry struct {
	mappers map[Provider]Mapper
}

// NewRegistry creates a registry with the builtin Azure, AWS, and GCP
// mapping tables installed.
func NewRegistry() *Registry {
	r := &Registry{mappers: make(map[Provider]Mapper)}
	r.Register(Azure, azureTable)
	r.Register(AWS, awsTable)
	r.Register(GCP, gcpTable)
	return r
}

// Register installs or replaces the mapper for a provider.
func (r *Registry) Register(p Provider, m Mapper) {
	r.mappers[p] = m
}

// Normalize maps a batch of raw records into resources. Records with a
// missing or empty id, or an unknown provider tag, are dropped and reported;
// they never fail the batch. The returned slices preserve input order.
func (r *Registry) Normalize(records []RawRecord) ([]Resource, []*MalformedRecordError) {
	resources := make([]Resource, 0, len(records))
	var dropped []*MalformedRecordError

	for i, rec := range records {
		mapper, ok := r.mappers[Provider(rec.Provider)]
		if !ok {
			dropped = append(dropped, &MalformedRecordError{
				Index:    i,
				Provider: rec.Provider,
				Reason:   "unknown provider",
			})
			continue
		}
		res, err := mapper.Map(rec)
		if err != nil {
			if me, ok := err.(*MalformedRecordError); ok {
				me.Index = i
				dropped = append(dropped, me)
			} else {
				dropped = append(dropped, &MalformedRecordError{
					Index:    i,
					Provider: rec.Provider,
					Reason:   err.Error(),
				})
			}
			continue
		}
		resources = append(resources, res)
	}

	return resources, dropped
}

// fieldTable is a Mapper driven by per-field alias lists. The first alias
// present and non-empty wins; absent optional fields map to empty values.
type fieldTable struct {
	provider    Provider
	id          []string
	name        []string
	typ         []string
	region      []string
	zone        []string
	parentScope []string
	properties  []string
	tags        []string
}

// Map applies the alias table. Only a missing or unsafe id is an error.
func (t *fieldTable) Map(rec RawRecord) (Resource, error) {
	id := rec.stringField(t.id...)
	if id == "" {
		return Resource{}, &MalformedRecordError{Provider: string(t.provider), Reason: "missing id"}
	}
	// IDs flow into cache keys, store documents, and HTTP paths.
	if err := errors.ValidateResourceID(id); err != nil {
		return Resource{}, &MalformedRecordError{Provider: string(t.provider), Reason: err.Error()}
	}

	res := Resource{
		ID:          id,
		Name:        rec.stringField(t.name...),
		Type:        rec.stringField(t.typ...),
		Provider:    t.provider,
		Region:      rec.stringField(t.region...),
		Zone:        rec.stringField(t.zone...),
		ParentScope: rec.stringField(t.parentScope...),
		Properties:  PropertiesFromAny(rec.mapField(t.properties...)),
	}

	if raw := rec.mapField(t.tags...); raw != nil {
		res.Tags = make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				res.Tags[k] = s
			}
		}
	}

	return res, nil
}

// Builtin mapping tables. Alias order encodes preference: the native field
// name first, then the common-model name for records already close to shape.
var (
	azureTable = &fieldTable{
		provider:    Azure,
		id:          []string{"id"},
		name:        []string{"name"},
		typ:         []string{"type", "resource_type"},
		region:      []string{"location", "region"},
		zone:        []string{"zone"},
		parentScope: []string{"resourceGroup", "resource_group", "parent_scope"},
		properties:  []string{"properties", "config"},
		tags:        []string{"tags"},
	}

	awsTable = &fieldTable{
		provider:    AWS,
		id:          []string{"arn", "id"},
		name:        []string{"name", "resourceName"},
		typ:         []string{"resourceType", "type"},
		region:      []string{"region", "awsRegion"},
		zone:        []string{"availabilityZone", "zone"},
		parentScope: []string{"accountId", "account_id", "parent_scope"},
		properties:  []string{"configuration", "properties", "attributes"},
		tags:        []string{"tags"},
	}

	gcpTable = &fieldTable{
		provider:    GCP,
		id:          []string{"selfLink", "id"},
		name:        []string{"name", "displayName"},
		typ:         []string{"assetType", "kind", "type"},
		region:      []string{"region", "location"},
		zone:        []string{"zone"},
		parentScope: []string{"project", "parent", "parent_scope"},
		properties:  []string{"resource", "properties", "data"},
		tags:        []string{"labels", "tags"},
	}
)
