package source

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/resource"
)

// File reads an inventory export from a JSON file on disk. The file holds a
// JSON array of raw records in the shape the provider's export tool emits.
type File struct {
	scope Scope
	path  string
}

// NewFile creates a source backed by a JSON inventory export.
func NewFile(scope Scope, path string) *File {
	return &File{scope: scope, path: path}
}

// Scope implements Source.
func (f *File) Scope() Scope { return f.scope }

// Fetch implements Source.
func (f *File) Fetch(ctx context.Context) ([]resource.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceFetch, err, "read inventory file %s", f.path)
	}

	var records []resource.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceFetch, err, "decode inventory file %s", f.path)
	}

	// Records that omit a provider inherit the scope's.
	for i := range records {
		if records[i].Provider == "" {
			records[i].Provider = f.scope.Provider
		}
	}

	return records, nil
}
