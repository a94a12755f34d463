package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sarex-dev/sarex-go/internal/model"
)

// DefaultDotBinary is the Graphviz layout program looked up on PATH.
const DefaultDotBinary = "dot"

// Engine renders DOT source into an image.
type Engine interface {
	Render(ctx context.Context, dot []byte, format Format) ([]byte, error)
}

// DotEngine renders through the Graphviz command-line tool.
type DotEngine struct {
	// Binary is the program name or path. Empty means DefaultDotBinary.
	Binary string
}

// NewDotEngine creates a DotEngine for the given binary.
func NewDotEngine(binary string) *DotEngine {
	return &DotEngine{Binary: binary}
}

func (e *DotEngine) binary() string {
	if e.Binary == "" {
		return DefaultDotBinary
	}
	return e.Binary
}

// Render pipes dot into "<binary> -T<format>" and returns its standard output.
// Any failure is reported as *model.RenderError.
func (e *DotEngine) Render(ctx context.Context, dot []byte, format Format) ([]byte, error) {
	bin := e.binary()

	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, &model.RenderError{Engine: bin, Err: err}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-T"+string(format))
	cmd.Stdin = bytes.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &model.RenderError{Engine: bin, Err: err}
	}

	if stdout.Len() == 0 {
		return nil, &model.RenderError{Engine: bin, Err: fmt.Errorf("empty output")}
	}

	return stdout.Bytes(), nil
}
