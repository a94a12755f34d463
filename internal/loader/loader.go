// Package loader reads connector-instance files for sarex.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarex-dev/sarex-go/internal/model"
	"github.com/sarex-dev/sarex-go/internal/validation"
)

// record mirrors model.ConnectorInstance with a pointer for the type so
// that an absent field can be told apart from an empty one.
type record struct {
	ConnectorType                   *string           `json:"connector_type" validate:"required"`
	SourceComponentValues           map[string]string `json:"source_component_values" validate:"required"`
	TargetComponentValues           map[string]string `json:"target_component_values" validate:"required"`
	AdditionalSourceComponentValues map[string]string `json:"additional_source_component_values"`
}

// Load reads the connector instances stored in the file at path, in file order.
//
// It returns a *model.IOError if the file cannot be read and a
// *model.ParseError if it does not hold a JSON array of well-formed records.
func Load(path string) ([]model.ConnectorInstance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}

	cis, err := Decode(data)
	if err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}
	return cis, nil
}

// Decode parses a JSON array of connector-instance records.
func Decode(data []byte) ([]model.ConnectorInstance, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	// null unmarshals into a nil slice without error
	if records == nil {
		return nil, fmt.Errorf("expected a JSON array of connector instances")
	}

	cis := make([]model.ConnectorInstance, 0, len(records))
	for i := range records {
		r := &records[i]
		if err := validation.Struct(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		cis = append(cis, model.ConnectorInstance{
			ConnectorType:                   *r.ConnectorType,
			SourceComponentValues:           r.SourceComponentValues,
			TargetComponentValues:           r.TargetComponentValues,
			AdditionalSourceComponentValues: r.AdditionalSourceComponentValues,
		})
	}
	return cis, nil
}
