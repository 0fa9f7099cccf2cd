package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/cloudplot/cloudplot/pkg/pipeline"
)

func TestDiscoverRejectsTraversalOutput(t *testing.T) {
	c := New(io.Discard, log.WarnLevel)
	err := c.runDiscover(context.Background(), []string{"inventory.json"}, "azure", "", "", "../escape.graph.json", false, true)
	if err == nil {
		t.Fatal("expected error for traversal output path")
	}
}

func TestDiagramRejectsInvalidTheme(t *testing.T) {
	c := New(io.Discard, log.WarnLevel)
	opts := pipeline.Options{Formats: []string{"json"}, Theme: "Not A Theme!"}
	err := c.runDiagram(context.Background(), "graph.json", opts, "", "", true)
	if err == nil {
		t.Fatal("expected error for invalid theme name")
	}
}

func TestDiagramRejectsTraversalOutput(t *testing.T) {
	c := New(io.Discard, log.WarnLevel)
	opts := pipeline.Options{Formats: []string{"json"}}
	err := c.runDiagram(context.Background(), "graph.json", opts, "../escape", "", true)
	if err == nil {
		t.Fatal("expected error for traversal output path")
	}
}
