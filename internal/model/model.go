// Package model provides the execution view model for sarex.
//
// It defines the connector instances observed at runtime, the components
// and connectors they resolve into, and the Model that accumulates them.
package model

// ConnectorInstance is one observed interaction between two components.
type ConnectorInstance struct {
	// ConnectorType classifies the interaction (e.g. "calls").
	ConnectorType string `json:"connector_type"`

	// SourceComponentValues describes the originating component.
	// Empty values are ignored when matching.
	SourceComponentValues map[string]string `json:"source_component_values"`

	// TargetComponentValues describes the receiving component.
	TargetComponentValues map[string]string `json:"target_component_values"`

	// AdditionalSourceComponentValues is merged into a newly created
	// source component only.
	AdditionalSourceComponentValues map[string]string `json:"additional_source_component_values,omitempty"`
}

// Component is a deduplicated runtime entity in the model.
type Component struct {
	// ID is unique within the owning Model.
	ID string `json:"id"`

	// ComponentValues holds the attributes captured when the component was created.
	ComponentValues map[string]string `json:"component_values"`
}

// Connector is a directed, typed edge between two components.
type Connector struct {
	ConnectorType     string `json:"connector_type"`
	SourceComponentID string `json:"source_component_id"`
	TargetComponentID string `json:"target_component_id"`
}

// Model is an execution view model: components and the connectors between them,
// both in insertion order.
type Model struct {
	Components []Component `json:"components"`
	Connectors []Connector `json:"connectors"`
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		Components: []Component{},
		Connectors: []Connector{},
	}
}

// Component returns the component with the given ID, or nil if it does not exist.
func (m *Model) Component(id string) *Component {
	for i := range m.Components {
		if m.Components[i].ID == id {
			return &m.Components[i]
		}
	}
	return nil
}

// Stats returns a summary of model size.
func (m *Model) Stats() map[string]int {
	return map[string]int{
		"components": len(m.Components),
		"connectors": len(m.Connectors),
	}
}
