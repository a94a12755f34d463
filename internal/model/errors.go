package model

import "fmt"

// ParseError reports malformed connector-instance input.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports a failure to open, read or write a file.
// Op is one of "open", "read" or "write".
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RenderError reports a failure of the external layout engine.
type RenderError struct {
	Engine string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering with %s: %v", e.Engine, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
