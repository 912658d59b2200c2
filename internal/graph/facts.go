package graph

import (
	"github.com/mamertofabian/maid-runner-sub001/internal/kb"
)

// Facts converts the graph into datalog facts for the kb engine:
// node(id, kind, label) and edge(from, kind, to). Rule authors get the
// convenience views (belongs_to, reads, declares, ...) from the kb base
// schema.
func (g *Graph) Facts() []kb.Fact {
	facts := make([]kb.Fact, 0, g.NodeCount()+g.EdgeCount())
	for _, n := range g.Nodes() {
		facts = append(facts, kb.Fact{
			Predicate: "node",
			Args:      []interface{}{string(n.ID), string(n.Kind), n.Label},
		})
	}
	for _, e := range g.Edges() {
		facts = append(facts, kb.Fact{
			Predicate: "edge",
			Args:      []interface{}{string(e.From), string(e.Kind), string(e.To)},
		})
	}
	return facts
}
