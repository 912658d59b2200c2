package graph

import (
	"testing"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

func testManifests() []*manifest.Manifest {
	return []*manifest.Manifest{
		{
			ID:             "task-001-create-auth",
			Seq:            1,
			CreatableFiles: []string{"src/auth.py"},
			ReadonlyFiles:  []string{"src/db.py"},
			Expected: manifest.ExpectedArtifacts{
				File: "src/auth.py",
				Contains: []artifact.Declaration{
					{Kind: artifact.KindClass, Name: "AuthService"},
					{Kind: artifact.KindFunction, Owner: "AuthService", Name: "login"},
				},
			},
		},
		{
			ID:            "task-002-harden-auth",
			Seq:           2,
			Supersedes:    []string{"task-001-create-auth"},
			EditableFiles: []string{"src/auth.py"},
			Expected: manifest.ExpectedArtifacts{
				File: "src/auth.py",
				Contains: []artifact.Declaration{
					{Kind: artifact.KindFunction, Owner: "AuthService", Name: "login"},
				},
			},
		},
	}
}

func testExtracted() map[string][]artifact.Declaration {
	return map[string][]artifact.Declaration{
		"src/auth.py": {
			{Kind: artifact.KindClass, Name: "AuthService", Bases: []string{"BaseService"}},
			{Kind: artifact.KindFunction, Owner: "AuthService", Name: "login"},
		},
	}
}

func TestBuild(t *testing.T) {
	g := NewBuilder().Build(testManifests(), testExtracted())

	// Manifest, file, artifact, and module nodes all exist.
	if _, ok := g.Node(ManifestNodeID("task-001-create-auth")); !ok {
		t.Error("manifest node missing")
	}
	if _, ok := g.Node(FileNodeID("src/auth.py")); !ok {
		t.Error("file node missing")
	}
	if _, ok := g.Node(ModuleNodeID("src")); !ok {
		t.Error("module node missing")
	}

	// SUPERSEDES from the newer manifest to the older.
	out := g.Out(ManifestNodeID("task-002-harden-auth"), EdgeSupersedes)
	if len(out) != 1 || out[0].To != ManifestNodeID("task-001-create-auth") {
		t.Errorf("supersedes edges = %v", out)
	}

	// CREATES / EDITS / READS file relationships.
	m1 := ManifestNodeID("task-001-create-auth")
	if edges := g.Out(m1, EdgeCreates); len(edges) != 1 {
		t.Errorf("creates edges = %v", edges)
	}
	if edges := g.Out(m1, EdgeReads); len(edges) != 1 || edges[0].To != FileNodeID("src/db.py") {
		t.Errorf("reads edges = %v", edges)
	}
	if edges := g.Out(ManifestNodeID("task-002-harden-auth"), EdgeEdits); len(edges) != 1 {
		t.Errorf("edits edges = %v", edges)
	}

	// Files belong to their top-level module.
	if edges := g.Out(FileNodeID("src/auth.py"), EdgeBelongsTo); len(edges) != 1 || edges[0].To != ModuleNodeID("src") {
		t.Errorf("belongs_to edges = %v", edges)
	}

	// DEFINES from file to each extracted artifact, CONTAINS from the class
	// to its method, INHERITS to the base class.
	loginID := ArtifactNodeID("src/auth.py", "function", "AuthService", "login")
	classID := ArtifactNodeID("src/auth.py", "class", "", "AuthService")
	if edges := g.In(loginID, EdgeDefines); len(edges) != 1 {
		t.Errorf("defines edges to login = %v", edges)
	}
	if edges := g.Out(classID, EdgeContains); len(edges) != 1 || edges[0].To != loginID {
		t.Errorf("contains edges = %v", edges)
	}
	if edges := g.Out(classID, EdgeInherits); len(edges) != 1 {
		t.Errorf("inherits edges = %v", edges)
	}

	// Both manifests declare login; edges are deduplicated per manifest but
	// one DECLARES edge per declaring manifest survives.
	if edges := g.In(loginID, EdgeDeclares); len(edges) != 2 {
		t.Errorf("declares edges to login = %v", edges)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	a := NewBuilder().Build(testManifests(), testExtracted())
	b := NewBuilder().Build(testManifests(), testExtracted())
	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		t.Errorf("rebuild differs: %d/%d nodes, %d/%d edges",
			a.NodeCount(), b.NodeCount(), a.EdgeCount(), b.EdgeCount())
	}
}

func TestArtifactsNamed(t *testing.T) {
	g := NewBuilder().Build(testManifests(), testExtracted())
	ids := g.ArtifactsNamed("login")
	if len(ids) != 1 {
		t.Fatalf("ArtifactsNamed(login) = %v", ids)
	}
	n, _ := g.Node(ids[0])
	if n.File != "src/auth.py" || n.Name != "login" {
		t.Errorf("artifact node = %+v", n)
	}
}

func TestModuleOf(t *testing.T) {
	tests := []struct{ path, want string }{
		{"src/auth.py", "src"},
		{"src/api/routes.py", "src"},
		{"main.py", "root"},
	}
	for _, tt := range tests {
		if got := ModuleOf(tt.path); got != tt.want {
			t.Errorf("ModuleOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
