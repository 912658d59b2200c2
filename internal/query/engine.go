// Package query answers dependency, impact, and lineage questions by
// traversing the frozen knowledge graph. All traversals are read-only and
// safe to run concurrently.
package query

import (
	"sort"

	"github.com/mamertofabian/maid-runner-sub001/internal/graph"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

// DefaultDepth bounds breadth-first traversals when the caller does not
// supply a limit.
const DefaultDepth = 10

// Engine traverses a built graph.
type Engine struct {
	g *graph.Graph
}

// NewEngine creates a query engine over a frozen graph.
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g}
}

// dependencyKinds are the edge kinds considered for dependents and
// dependencies when the caller does not narrow the subset.
var dependencyKinds = []graph.EdgeKind{
	graph.EdgeDeclares, graph.EdgeDefines, graph.EdgeReads,
	graph.EdgeContains, graph.EdgeInherits,
}

// Dependents returns the nodes that depend on the named artifact: anything
// reaching it through incoming edges, breadth-first, bounded by depth.
func (e *Engine) Dependents(name string, depth int, kinds ...graph.EdgeKind) []*graph.Node {
	return e.traverse(name, depth, kinds, false)
}

// Dependencies returns the nodes the named artifact depends on: anything
// reachable through outgoing edges, breadth-first, bounded by depth.
func (e *Engine) Dependencies(name string, depth int, kinds ...graph.EdgeKind) []*graph.Node {
	return e.traverse(name, depth, kinds, true)
}

func (e *Engine) traverse(name string, depth int, kinds []graph.EdgeKind, outgoing bool) []*graph.Node {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if len(kinds) == 0 {
		kinds = dependencyKinds
	}

	starts := e.g.ArtifactsNamed(name)
	visited := make(map[graph.NodeID]bool, len(starts))
	var frontier []graph.NodeID
	for _, id := range starts {
		visited[id] = true
		frontier = append(frontier, id)
	}

	var found []graph.NodeID
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []graph.NodeID
		for _, id := range frontier {
			var edges []graph.Edge
			if outgoing {
				edges = e.g.Out(id, kinds...)
			} else {
				edges = e.g.In(id, kinds...)
			}
			for _, edge := range edges {
				neighbor := edge.To
				if !outgoing {
					neighbor = edge.From
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				found = append(found, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	nodes := make([]*graph.Node, 0, len(found))
	for _, id := range found {
		if n, ok := e.g.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	logging.QueryDebug("traverse %s depth=%d outgoing=%v -> %d nodes", name, depth, outgoing, len(nodes))
	return nodes
}

// Cycles finds every cycle among edges of the given kinds using the same
// three-color traversal the chain resolver uses, generalized to arbitrary
// edge-type subsets (SUPERSEDES-only, DEFINES-only, or the full multigraph
// when kinds is empty).
func (e *Engine) Cycles(kinds ...graph.EdgeKind) [][]graph.NodeID {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[graph.NodeID]int, e.g.NodeCount())
	var cycles [][]graph.NodeID
	var stack []graph.NodeID

	var visit func(id graph.NodeID)
	visit = func(id graph.NodeID) {
		colors[id] = gray
		stack = append(stack, id)
		for _, edge := range e.g.Out(id, kinds...) {
			switch colors[edge.To] {
			case gray:
				start := 0
				for i, s := range stack {
					if s == edge.To {
						start = i
						break
					}
				}
				cycle := append(append([]graph.NodeID{}, stack[start:]...), edge.To)
				cycles = append(cycles, cycle)
			case white:
				visit(edge.To)
			}
		}
		stack = stack[:len(stack)-1]
		colors[id] = black
	}

	for _, n := range e.g.Nodes() {
		if colors[n.ID] == white {
			visit(n.ID)
		}
	}
	return cycles
}

// Impact is the result of impact analysis: the files whose code may break
// and the manifests whose declarations must be revisited.
type Impact struct {
	AffectedFiles     []string `json:"affected_files"`
	AffectedManifests []string `json:"affected_manifests"`
}

// AnalyzeImpact reports what changing the named artifact would touch. The
// seed set is the files that define the artifact and the manifests that
// declare it; from there impact ripples only downstream, along READS: a
// manifest reading an affected file is affected, and so are the files that
// manifest creates or edits. Other artifacts living in an affected file
// never widen the set, so siblings that merely share a file stay out.
func (e *Engine) AnalyzeImpact(name string) Impact {
	files := make(map[graph.NodeID]bool)
	manifests := make(map[graph.NodeID]bool)

	var frontier []graph.NodeID
	for _, id := range e.g.ArtifactsNamed(name) {
		for _, edge := range e.g.In(id, graph.EdgeDefines) {
			if !files[edge.From] {
				files[edge.From] = true
				frontier = append(frontier, edge.From)
			}
		}
		for _, edge := range e.g.In(id, graph.EdgeDeclares) {
			manifests[edge.From] = true
		}
	}

	for len(frontier) > 0 {
		var next []graph.NodeID
		for _, fid := range frontier {
			for _, edge := range e.g.In(fid, graph.EdgeReads) {
				reader := edge.From
				if manifests[reader] {
					continue
				}
				manifests[reader] = true
				for _, out := range e.g.Out(reader, graph.EdgeCreates, graph.EdgeEdits) {
					if !files[out.To] {
						files[out.To] = true
						next = append(next, out.To)
					}
				}
			}
		}
		frontier = next
	}

	var impact Impact
	for id := range files {
		if n, ok := e.g.Node(id); ok {
			impact.AffectedFiles = append(impact.AffectedFiles, n.Label)
		}
	}
	for id := range manifests {
		if n, ok := e.g.Node(id); ok {
			impact.AffectedManifests = append(impact.AffectedManifests, n.Label)
		}
	}
	sort.Strings(impact.AffectedFiles)
	sort.Strings(impact.AffectedManifests)
	return impact
}

// Lineage returns every manifest in the supersession history connected to
// the given one, ordered oldest to newest by sequence number. Histories are
// not required to be linear: a manifest may supersede several predecessors
// and be superseded by several successors, and the walk follows every
// branch. Manifests without a parseable sequence sort by ID at the end.
func (e *Engine) Lineage(manifestID string) []string {
	start := graph.ManifestNodeID(manifestID)
	if _, ok := e.g.Node(start); !ok {
		return nil
	}

	seen := map[graph.NodeID]bool{start: true}
	frontier := []graph.NodeID{start}
	for len(frontier) > 0 {
		var next []graph.NodeID
		for _, id := range frontier {
			for _, edge := range e.g.Out(id, graph.EdgeSupersedes) {
				if !seen[edge.To] {
					seen[edge.To] = true
					next = append(next, edge.To)
				}
			}
			for _, edge := range e.g.In(id, graph.EdgeSupersedes) {
				if !seen[edge.From] {
					seen[edge.From] = true
					next = append(next, edge.From)
				}
			}
		}
		frontier = next
	}

	var lineage []string
	for id := range seen {
		if n, ok := e.g.Node(id); ok {
			lineage = append(lineage, n.Label)
		}
	}
	sort.Slice(lineage, func(i, j int) bool {
		si, erri := manifest.ParseID(lineage[i])
		sj, errj := manifest.ParseID(lineage[j])
		switch {
		case erri == nil && errj == nil && si != sj:
			return si < sj
		case erri == nil && errj != nil:
			return true
		case erri != nil && errj == nil:
			return false
		}
		return lineage[i] < lineage[j]
	})
	return lineage
}
