// Package conn builds execution view models from connector-instance files.
//
// It is the boundary used by the command line, the watch loop and the MCP
// server: one sequential pass that loads the input, folds it into a model
// and writes the rendered result. Errors are returned as *model.ParseError,
// *model.IOError or *model.RenderError and are never logged here.
package conn

import (
	"context"

	"github.com/sarex-dev/sarex-go/internal/loader"
	"github.com/sarex-dev/sarex-go/internal/model"
	"github.com/sarex-dev/sarex-go/internal/render"
)

// Result summarizes a conversion.
type Result struct {
	Instances  int           `json:"instances"`
	Components int           `json:"components"`
	Connectors int           `json:"connectors"`
	Format     render.Format `json:"format"`
}

// Converter runs the load, build and render pipeline.
type Converter struct {
	engine render.Engine
	newIDs func() model.IDGenerator
}

// Option configures a Converter.
type Option func(*Converter)

// WithEngine sets the layout engine used for png output.
func WithEngine(e render.Engine) Option {
	return func(c *Converter) {
		c.engine = e
	}
}

// WithIDGenerator sets a factory for the component ID generator of each build.
func WithIDGenerator(f func() model.IDGenerator) Option {
	return func(c *Converter) {
		c.newIDs = f
	}
}

// NewConverter creates a Converter that renders png through Graphviz on PATH.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		engine: render.NewDotEngine(""),
		newIDs: func() model.IDGenerator { return model.UUIDGenerator{} },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build loads the connector instances at inputPath and folds them into a model.
func (c *Converter) Build(inputPath string) (*model.Model, int, error) {
	cis, err := loader.Load(inputPath)
	if err != nil {
		return nil, 0, err
	}
	return model.Build(cis, model.WithIDGenerator(c.newIDs())), len(cis), nil
}

// Convert builds the model for inputPath and writes it to outputPath in the
// format named by format. Unknown formats produce json.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath, format string) (*Result, error) {
	m, n, err := c.Build(inputPath)
	if err != nil {
		return nil, err
	}

	if err := render.Write(ctx, m, outputPath, format, c.engine); err != nil {
		return nil, err
	}

	return &Result{
		Instances:  n,
		Components: len(m.Components),
		Connectors: len(m.Connectors),
		Format:     render.ParseFormat(format),
	}, nil
}

// Convert runs the pipeline with default settings.
func Convert(ctx context.Context, inputPath, outputPath, format string) error {
	_, err := NewConverter().Convert(ctx, inputPath, outputPath, format)
	return err
}
