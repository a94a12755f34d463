// Package render serializes execution view models to json, dot and png.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarex-dev/sarex-go/internal/graph"
	"github.com/sarex-dev/sarex-go/internal/model"
)

// Format is an output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatPNG  Format = "png"
)

// ParseFormat maps a format selector to a Format.
// Unrecognized selectors fall back to FormatJSON.
func ParseFormat(s string) Format {
	switch Format(s) {
	case FormatDOT:
		return FormatDOT
	case FormatPNG:
		return FormatPNG
	default:
		return FormatJSON
	}
}

// Encode returns the complete output for m in the given format.
// engine is only used for FormatPNG and may be nil otherwise.
func Encode(ctx context.Context, m *model.Model, format Format, engine Engine) ([]byte, error) {
	switch format {
	case FormatDOT:
		return graph.FromModel(m).DOT(), nil
	case FormatPNG:
		if engine == nil {
			return nil, &model.RenderError{Engine: "none", Err: fmt.Errorf("no layout engine configured")}
		}
		return engine.Render(ctx, graph.FromModel(m).DOT(), FormatPNG)
	default:
		return EncodeJSON(m)
	}
}

// EncodeJSON returns the pretty-printed JSON dump of m.
func EncodeJSON(m *model.Model) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling model: %w", err)
	}
	return append(data, '\n'), nil
}

// Write encodes m in the format selected by formatStr and writes it to path.
//
// The output is fully materialized before anything touches path, and is
// then written atomically, so a failure never leaves a partial file.
func Write(ctx context.Context, m *model.Model, path, formatStr string, engine Engine) error {
	data, err := Encode(ctx, m, ParseFormat(formatStr), engine)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// WriteFile atomically replaces the file at path with data. An existing
// file keeps its permission bits; new files are created 0644.
// Failures are reported as *model.IOError.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &model.IOError{Op: "write", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &model.IOError{Op: "write", Path: path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &model.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &model.IOError{Op: "write", Path: path, Err: err}
	}

	return nil
}
