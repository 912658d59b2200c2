package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mamertofabian/maid-runner-sub001/internal/graph"
	"github.com/mamertofabian/maid-runner-sub001/internal/report"
	"github.com/mamertofabian/maid-runner-sub001/internal/validate"
)

const authManifest = `{
  "goal": "Create the auth service",
  "taskType": "create",
  "creatableFiles": ["src/auth.py"],
  "expectedArtifacts": {
    "file": "src/auth.py",
    "contains": [
      {"type": "class", "name": "AuthService"},
      {"type": "method", "name": "login", "class": "AuthService",
       "args": ["username: str", "password: str"], "returns": "bool"},
      {"type": "function", "name": "create_service", "args": ["config"]}
    ]
  }
}`

const authSource = `
class AuthService:
    def login(self, username: str, password: str) -> bool:
        return True

    def _audit(self):
        pass


def create_service(config):
    return AuthService()
`

const authTests = `
def test_login():
    svc = create_service(None)
    assert svc.login("u", "p")
`

func setupWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	for _, dir := range []string{"manifests", "src", "tests"} {
		if err := os.MkdirAll(filepath.Join(ws, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	write := func(rel, content string) {
		if err := os.WriteFile(filepath.Join(ws, rel), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("manifests/task-001-create-auth.manifest.json", authManifest)
	write("src/auth.py", authSource)
	write("tests/test_auth.py", authTests)
	return ws
}

func newTestPipeline(t *testing.T, ws string, opts Options) *Pipeline {
	t.Helper()
	opts.Workspace = ws
	opts.ManifestDir = filepath.Join(ws, "manifests")
	p := New(opts)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestRunPassing(t *testing.T) {
	ws := setupWorkspace(t)
	p := newTestPipeline(t, ws, Options{})

	store, err := p.LoadStore()
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	rep, err := p.Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Valid {
		t.Errorf("conforming workspace should pass: %+v", rep.Issues)
	}
}

func TestRunDetectsDrift(t *testing.T) {
	ws := setupWorkspace(t)
	// The implementation drops create_service and adds an undeclared public
	// function; strict mode flags both.
	drifted := `
class AuthService:
    def login(self, username: str, password: str) -> bool:
        return True


def rogue_function():
    pass
`
	if err := os.WriteFile(filepath.Join(ws, "src/auth.py"), []byte(drifted), 0644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, ws, Options{})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	rep, err := p.Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Valid {
		t.Fatal("drifted workspace should fail")
	}

	types := make(map[string]int)
	for _, issue := range rep.Issues {
		types[issue.Type]++
	}
	if types["missing_artifact"] != 1 {
		t.Errorf("missing_artifact = %d, issues = %v", types["missing_artifact"], rep.Issues)
	}
	if types["extra_artifact"] != 1 {
		t.Errorf("extra_artifact = %d, issues = %v", types["extra_artifact"], rep.Issues)
	}
}

func TestMissingTargetFileReportsAllArtifacts(t *testing.T) {
	ws := setupWorkspace(t)
	if err := os.Remove(filepath.Join(ws, "src/auth.py")); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, ws, Options{})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	issues := p.ValidateFile(store, "src/auth.py")
	if len(issues) != 3 {
		t.Errorf("want every declared artifact missing, got %v", issues)
	}
	for _, issue := range issues {
		if issue.Type != "missing_artifact" {
			t.Errorf("issue type = %s", issue.Type)
		}
	}
}

func TestBehavioralPhase(t *testing.T) {
	ws := setupWorkspace(t)
	p := newTestPipeline(t, ws, Options{
		Phase:    validate.PhaseBehavioral,
		TestFile: "tests/test_auth.py",
	})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	issues := p.ValidateFile(store, "src/auth.py")
	// The test file calls login and create_service but never instantiates
	// AuthService directly.
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Type != "unused_artifact" {
		t.Errorf("issue type = %s", issues[0].Type)
	}
}

func TestChainErrorsSurfaceAsIssues(t *testing.T) {
	ws := setupWorkspace(t)
	dangling := `{
  "supersedes": ["task-099-ghost"],
  "editableFiles": ["src/auth.py"],
  "expectedArtifacts": {"file": "src/auth.py", "contains": []}
}`
	path := filepath.Join(ws, "manifests", "task-002-dangling.manifest.json")
	if err := os.WriteFile(path, []byte(dangling), 0644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, ws, Options{})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	issues := p.ValidateFile(store, "src/auth.py")
	if len(issues) != 1 || issues[0].Type != "dangling_reference" {
		t.Errorf("issues = %v", issues)
	}
	if issues[0].Severity != report.SeverityError {
		t.Errorf("severity = %s", issues[0].Severity)
	}
}

func TestParseErrorIsLocalizedToFile(t *testing.T) {
	ws := setupWorkspace(t)
	if err := os.WriteFile(filepath.Join(ws, "src/auth.py"), []byte("def broken(:\n"), 0644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, ws, Options{})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	issues := p.ValidateFile(store, "src/auth.py")
	if len(issues) != 1 || issues[0].Type != "parse_error" {
		t.Errorf("issues = %v", issues)
	}
}

func TestCachedResolution(t *testing.T) {
	ws := setupWorkspace(t)
	p := newTestPipeline(t, ws, Options{
		CachePath: filepath.Join(ws, ".maid", "cache.db"),
	})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}

	first, err := p.ExpectedFor(store, "src/auth.py")
	if err != nil {
		t.Fatalf("ExpectedFor: %v", err)
	}
	// Second resolution comes from the cache and must be equivalent.
	second, err := p.ExpectedFor(store, "src/auth.py")
	if err != nil {
		t.Fatalf("cached ExpectedFor: %v", err)
	}
	if len(first.Artifacts) != len(second.Artifacts) || first.File != second.File {
		t.Errorf("cached set differs: %+v vs %+v", first, second)
	}
}

func TestExtractWorkspaceCoversReadonlyDeps(t *testing.T) {
	ws := setupWorkspace(t)
	// lib/util.py is nobody's target, only a declared dependency. Its
	// definitions must still reach the graph so dependency checks can see
	// them.
	if err := os.MkdirAll(filepath.Join(ws, "lib"), 0755); err != nil {
		t.Fatal(err)
	}
	util := "def helper(value):\n    return value\n"
	if err := os.WriteFile(filepath.Join(ws, "lib/util.py"), []byte(util), 0644); err != nil {
		t.Fatal(err)
	}
	depManifest := `{
  "goal": "Wire the util helper into auth",
  "taskType": "edit",
  "editableFiles": ["src/auth.py"],
  "readonlyFiles": ["lib/util.py"],
  "expectedArtifacts": {"file": "src/auth.py", "contains": []}
}`
	path := filepath.Join(ws, "manifests", "task-002-wire-util.manifest.json")
	if err := os.WriteFile(path, []byte(depManifest), 0644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, ws, Options{})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	g, extracted := p.BuildGraph(store)
	if len(extracted["lib/util.py"]) == 0 {
		t.Fatal("readonly dependency file was not extracted")
	}
	defines := g.Out(graph.FileNodeID("lib/util.py"), graph.EdgeDefines)
	if len(defines) == 0 {
		t.Error("dependency file has no DEFINES edges in the graph")
	}
}

func TestBuildGraph(t *testing.T) {
	ws := setupWorkspace(t)
	p := newTestPipeline(t, ws, Options{})
	store, err := p.LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	g, extracted := p.BuildGraph(store)
	if g.NodeCount() == 0 || g.EdgeCount() == 0 {
		t.Fatalf("empty graph: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if len(extracted["src/auth.py"]) == 0 {
		t.Error("src/auth.py should have extracted declarations")
	}
}
