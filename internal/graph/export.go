package graph

import (
	"encoding/json"
	"io"
)

// Export is the generic node/edge record serialization consumed by
// downstream visualization tooling. It is a thin transform over the
// read-only graph, not part of the algorithmic core.
type Export struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ToExport snapshots the graph into portable records.
func (g *Graph) ToExport() Export {
	nodes := g.Nodes()
	out := Export{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: g.Edges(),
	}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, *n)
	}
	return out
}

// WriteJSON streams the export as indented JSON.
func (g *Graph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.ToExport())
}
