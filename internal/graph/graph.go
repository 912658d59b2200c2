// Package graph builds and serves the typed knowledge graph over manifests,
// files, artifacts, and modules. The graph is built once per invocation
// from a consistent snapshot and is read-only afterwards; queries and
// coherence checks traverse it concurrently without locking.
package graph

import (
	"fmt"
	"path/filepath"
	"sort"
)

// NodeKind classifies graph nodes.
type NodeKind string

const (
	NodeManifest NodeKind = "manifest"
	NodeFile     NodeKind = "file"
	NodeArtifact NodeKind = "artifact"
	NodeModule   NodeKind = "module"
)

// EdgeKind classifies graph edges.
type EdgeKind string

const (
	EdgeSupersedes EdgeKind = "SUPERSEDES"
	EdgeCreates    EdgeKind = "CREATES"
	EdgeEdits      EdgeKind = "EDITS"
	EdgeReads      EdgeKind = "READS"
	EdgeDefines    EdgeKind = "DEFINES"
	EdgeDeclares   EdgeKind = "DECLARES"
	EdgeContains   EdgeKind = "CONTAINS"
	EdgeInherits   EdgeKind = "INHERITS"
	EdgeBelongsTo  EdgeKind = "BELONGS_TO"
)

// NodeID is a structural identifier derived from manifest ID, file path, or
// artifact triple, making rebuilds idempotent.
type NodeID string

// Node is one graph vertex.
type Node struct {
	ID    NodeID   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Label string   `json:"label"`
	File  string   `json:"file,omitempty"` // artifact nodes: defining/declared file
	Name  string   `json:"name,omitempty"` // artifact nodes: bare artifact name
}

// Edge is one typed, directed graph edge.
type Edge struct {
	From NodeID   `json:"from"`
	Kind EdgeKind `json:"kind"`
	To   NodeID   `json:"to"`
}

// Graph is a hash-indexed adjacency structure. All mutation happens inside
// Builder.Build; the exported surface is read-only.
type Graph struct {
	nodes  map[NodeID]*Node
	out    map[NodeID][]Edge
	in     map[NodeID][]Edge
	edges  []Edge
	seen   map[Edge]bool
	byName map[string][]NodeID // artifact name -> artifact node IDs
}

func newGraph() *Graph {
	return &Graph{
		nodes:  make(map[NodeID]*Node),
		out:    make(map[NodeID][]Edge),
		in:     make(map[NodeID][]Edge),
		seen:   make(map[Edge]bool),
		byName: make(map[string][]NodeID),
	}
}

func (g *Graph) addNode(n Node) *Node {
	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	stored := n
	g.nodes[n.ID] = &stored
	if n.Kind == NodeArtifact && n.Name != "" {
		g.byName[n.Name] = append(g.byName[n.Name], n.ID)
	}
	return &stored
}

func (g *Graph) addEdge(from NodeID, kind EdgeKind, to NodeID) {
	e := Edge{From: from, Kind: kind, To: to}
	if g.seen[e] {
		return
	}
	g.seen[e] = true
	g.edges = append(g.edges, e)
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes, sorted by ID for deterministic iteration.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodesByKind returns all nodes of one kind, sorted by ID.
func (g *Graph) NodesByKind(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Out returns outgoing edges from id, optionally filtered by edge kinds.
func (g *Graph) Out(id NodeID, kinds ...EdgeKind) []Edge {
	return filterEdges(g.out[id], kinds)
}

// In returns incoming edges to id, optionally filtered by edge kinds.
func (g *Graph) In(id NodeID, kinds ...EdgeKind) []Edge {
	return filterEdges(g.in[id], kinds)
}

// ArtifactsNamed returns the artifact node IDs carrying the given bare name.
func (g *Graph) ArtifactsNamed(name string) []NodeID {
	return g.byName[name]
}

// NodeCount and EdgeCount report graph size.
func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

func filterEdges(edges []Edge, kinds []EdgeKind) []Edge {
	if len(kinds) == 0 {
		return edges
	}
	var out []Edge
	for _, e := range edges {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Structural node ID constructors.

// ManifestNodeID derives the node ID for a manifest.
func ManifestNodeID(id string) NodeID {
	return NodeID("manifest:" + id)
}

// FileNodeID derives the node ID for a source file.
func FileNodeID(path string) NodeID {
	return NodeID("file:" + path)
}

// ArtifactNodeID derives the node ID for an artifact triple within a file.
func ArtifactNodeID(file, kind, owner, name string) NodeID {
	return NodeID(fmt.Sprintf("artifact:%s:%s:%s.%s", file, kind, owner, name))
}

// ModuleNodeID derives the node ID for a module.
func ModuleNodeID(name string) NodeID {
	return NodeID("module:" + name)
}

// ModuleOf maps a file path to its module by path convention: the top-level
// directory segment, or "root" for bare file names.
func ModuleOf(path string) string {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir == "." || dir == "" || dir == "/" {
		return "root"
	}
	for i := 0; i < len(dir); i++ {
		if dir[i] == '/' {
			return dir[:i]
		}
	}
	return dir
}
