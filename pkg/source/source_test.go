package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

func TestScopeString(t *testing.T) {
	tests := []struct {
		scope Scope
		want  string
	}{
		{Scope{Provider: "aws"}, "aws"},
		{Scope{Provider: "aws", Region: "us-east-1"}, "aws/us-east-1"},
		{Scope{Provider: "azure", Account: "sub-1", Region: "westeurope"}, "azure/sub-1/westeurope"},
	}
	for _, tt := range tests {
		if got := tt.scope.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestStaticFetch(t *testing.T) {
	records := []resource.RawRecord{
		{Provider: "aws", Fields: map[string]any{"arn": "arn:aws:ec2:us-east-1:1:vpc/vpc-1"}},
	}
	src := NewStatic(Scope{Provider: "aws"}, records)

	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(got))
	}
}

func TestStaticFetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewStatic(Scope{Provider: "aws"}, nil)
	if _, err := src.Fetch(ctx); err == nil {
		t.Error("Fetch() with canceled context = nil error, want error")
	}
}

func TestFileFetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.json")
	payload := `[
		{"provider": "azure", "id": "/subscriptions/s/resourceGroups/rg1", "name": "rg1", "type": "microsoft.resources/resourcegroups"},
		{"id": "/subscriptions/s/resourceGroups/rg1/vm1", "name": "vm1", "type": "microsoft.compute/virtualmachines"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFile(Scope{Provider: "azure", Account: "s"}, path)
	records, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Fetch() returned %d records, want 2", len(records))
	}
	// Second record has no provider tag and inherits the scope's.
	if records[1].Provider != "azure" {
		t.Errorf("records[1].Provider = %q, want %q", records[1].Provider, "azure")
	}
}

func TestFileFetchMissing(t *testing.T) {
	src := NewFile(Scope{Provider: "aws"}, filepath.Join(t.TempDir(), "nope.json"))
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Error("Fetch() on missing file = nil error, want error")
	}
}

func TestFileFetchInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFile(Scope{Provider: "aws"}, path)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Error("Fetch() on invalid JSON = nil error, want error")
	}
}
