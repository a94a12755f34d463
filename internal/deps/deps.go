// Package deps reads and filters source-level dependency relations.
package deps

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sarex-dev/sarex-go/internal/model"
	"github.com/sarex-dev/sarex-go/internal/storage"
	"github.com/sarex-dev/sarex-go/internal/validation"
)

const maxLineSize = 1024 * 1024

type record struct {
	Source *string `json:"source" validate:"required"`
	Target *string `json:"target" validate:"required"`
}

// Read decodes the JSON-lines relation file at path.
func Read(path string) ([]storage.DependencyRelation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	rels, err := Decode(f)
	if err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}
	return rels, nil
}

// Decode reads one relation object per line. Blank lines are skipped.
func Decode(r io.Reader) ([]storage.DependencyRelation, error) {
	var rels []storage.DependencyRelation

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec record
		dec := json.NewDecoder(bytes.NewReader(text))
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("line %d: unexpected data after relation", line)
		}
		if err := validation.Struct(rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rels = append(rels, storage.DependencyRelation{Source: *rec.Source, Target: *rec.Target})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}

	return rels, nil
}

// Filter keeps the relations that leave the package tree rooted at prefix:
// the source is inside it and the target is not.
func Filter(rels []storage.DependencyRelation, prefix string) []storage.DependencyRelation {
	var out []storage.DependencyRelation
	for _, rel := range rels {
		if strings.HasPrefix(rel.Source, prefix) && !strings.HasPrefix(rel.Target, prefix) {
			out = append(out, rel)
		}
	}
	return out
}
