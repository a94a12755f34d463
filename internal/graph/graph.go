// Package graph provides the canonical node/edge form of an execution view model.
//
// A Graph is what every textual or rendered output is produced from: one
// labeled node per component and one labeled directed edge per connector,
// both in model order.
package graph

import (
	"sort"
	"strings"

	"github.com/sarex-dev/sarex-go/internal/model"
)

// DefaultName is the graph identifier used in DOT output.
const DefaultName = "model"

// Node is a labeled graph node.
type Node struct {
	// ID is the component ID, used verbatim as the DOT node identifier.
	ID string

	// Label is one "key:value" line per non-empty component attribute.
	Label string
}

// Edge is a labeled directed edge.
type Edge struct {
	Source string
	Target string
	Label  string
}

// Graph is an ordered list of nodes and directed edges.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []Edge
}

// FromModel converts a model into its canonical graph form.
func FromModel(m *model.Model) *Graph {
	g := &Graph{
		Name:  DefaultName,
		Nodes: make([]Node, 0, len(m.Components)),
		Edges: make([]Edge, 0, len(m.Connectors)),
	}

	for _, c := range m.Components {
		g.Nodes = append(g.Nodes, Node{
			ID:    c.ID,
			Label: NodeLabel(c.ComponentValues),
		})
	}

	for _, e := range m.Connectors {
		g.Edges = append(g.Edges, Edge{
			Source: e.SourceComponentID,
			Target: e.TargetComponentID,
			Label:  e.ConnectorType,
		})
	}

	return g
}

// NodeLabel formats the non-empty attributes as "key:value" lines, sorted by key.
func NodeLabel(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ":" + values[k]
	}
	return strings.Join(lines, "\n")
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.Edges)
}
