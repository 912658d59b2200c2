package graph

import (
	"time"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

// Builder constructs a Graph in a single pass over manifests and extraction
// results. Node and edge insertion is O(1) amortized via the hash-indexed
// adjacency lists, so graphs over tens of thousands of manifests build in
// one sweep.
type Builder struct{}

// NewBuilder creates a graph builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build assembles the knowledge graph from every manifest and the artifacts
// extracted per file. The returned graph must not be mutated; all query and
// coherence work happens against this immutable snapshot.
func (b *Builder) Build(manifests []*manifest.Manifest, extracted map[string][]artifact.Declaration) *Graph {
	start := time.Now()
	g := newGraph()

	for _, m := range manifests {
		mid := ManifestNodeID(m.ID)
		g.addNode(Node{ID: mid, Kind: NodeManifest, Label: m.ID})

		for _, ref := range m.Supersedes {
			target := ManifestNodeID(ref)
			g.addNode(Node{ID: target, Kind: NodeManifest, Label: ref})
			g.addEdge(mid, EdgeSupersedes, target)
		}

		for _, path := range m.CreatableFiles {
			g.addEdge(mid, EdgeCreates, b.ensureFile(g, path))
		}
		for _, path := range m.EditableFiles {
			g.addEdge(mid, EdgeEdits, b.ensureFile(g, path))
		}
		for _, path := range m.ReadonlyFiles {
			g.addEdge(mid, EdgeReads, b.ensureFile(g, path))
		}

		for _, decl := range m.DeclaredArtifacts() {
			aid := b.ensureArtifact(g, m.TargetFile(), decl)
			g.addEdge(mid, EdgeDeclares, aid)
		}
	}

	for file, decls := range extracted {
		fid := b.ensureFile(g, file)
		for _, decl := range decls {
			aid := b.ensureArtifact(g, file, decl)
			g.addEdge(fid, EdgeDefines, aid)

			if decl.Owner != "" {
				ownerID := b.ensureArtifact(g, file, artifact.Declaration{
					Kind:       artifact.KindClass,
					Name:       decl.Owner,
					Visibility: artifact.VisibilityOf(decl.Owner),
					Loc:        artifact.Location{File: file},
				})
				g.addEdge(ownerID, EdgeContains, aid)
			}

			for _, base := range decl.Bases {
				baseID := b.ensureArtifact(g, file, artifact.Declaration{
					Kind:       artifact.KindClass,
					Name:       base,
					Visibility: artifact.VisibilityOf(base),
					Loc:        artifact.Location{File: file},
				})
				g.addEdge(aid, EdgeInherits, baseID)
			}
		}
	}

	logging.Graph("built graph: %d nodes, %d edges in %v",
		g.NodeCount(), g.EdgeCount(), time.Since(start))
	return g
}

// ensureFile adds the file node and its module derivation.
func (b *Builder) ensureFile(g *Graph, path string) NodeID {
	fid := FileNodeID(path)
	if _, ok := g.Node(fid); ok {
		return fid
	}
	g.addNode(Node{ID: fid, Kind: NodeFile, Label: path, File: path})

	module := ModuleOf(path)
	mid := ModuleNodeID(module)
	g.addNode(Node{ID: mid, Kind: NodeModule, Label: module})
	g.addEdge(fid, EdgeBelongsTo, mid)
	return fid
}

func (b *Builder) ensureArtifact(g *Graph, file string, decl artifact.Declaration) NodeID {
	aid := ArtifactNodeID(file, string(decl.Kind), decl.Owner, decl.Name)
	g.addNode(Node{
		ID:    aid,
		Kind:  NodeArtifact,
		Label: decl.Key().String(),
		File:  file,
		Name:  decl.Name,
	})
	return aid
}
