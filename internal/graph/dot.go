package graph

import (
	"bytes"
	"strings"
)

// dotEscaper escapes text for a double-quoted DOT string. Newlines become
// the DOT "\n" line break so multi-line labels render centered.
var dotEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// quote returns s as a double-quoted DOT ID.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// DOT returns the Graphviz source for a directed graph.
//
// Every identifier is quoted, so component IDs of any shape are valid
// node identifiers.
func (g *Graph) DOT() []byte {
	name := g.Name
	if name == "" {
		name = DefaultName
	}

	var buf bytes.Buffer
	buf.WriteString("digraph ")
	buf.WriteString(quote(name))
	buf.WriteString(" {\n")

	for _, n := range g.Nodes {
		buf.WriteString("    ")
		buf.WriteString(quote(n.ID))
		buf.WriteString(" [label=")
		buf.WriteString(quote(n.Label))
		buf.WriteString("];\n")
	}

	for _, e := range g.Edges {
		buf.WriteString("    ")
		buf.WriteString(quote(e.Source))
		buf.WriteString(" -> ")
		buf.WriteString(quote(e.Target))
		buf.WriteString(" [label=")
		buf.WriteString(quote(e.Label))
		buf.WriteString("];\n")
	}

	buf.WriteString("}\n")
	return buf.Bytes()
}
