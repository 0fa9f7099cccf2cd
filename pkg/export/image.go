package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/cloudplot/cloudplot/pkg/diagram"
)

// RenderSVG renders a diagram description to SVG using Graphviz.
func RenderSVG(ctx context.Context, d diagram.Description) ([]byte, error) {
	return render(ctx, d, graphviz.SVG)
}

// RenderPNG renders a diagram description to PNG using Graphviz.
func RenderPNG(ctx context.Context, d diagram.Description) ([]byte, error) {
	return render(ctx, d, graphviz.PNG)
}

func render(ctx context.Context, d diagram.Description, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(ToDOT(d)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
