package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const jsonManifest = `{
  "version": "1.0",
  "goal": "Create the auth service",
  "taskType": "create",
  "creatableFiles": ["src/auth.py"],
  "readonlyFiles": ["src/db.py"],
  "expectedArtifacts": {
    "file": "src/auth.py",
    "contains": [
      {"type": "class", "name": "AuthService"},
      {"type": "method", "name": "login", "class": "AuthService",
       "args": ["username: str", "password: str"], "returns": "bool"},
      {"type": "function", "name": "create_service", "args": ["config"]},
      {"type": "attribute", "name": "timeout", "class": "AuthService"}
    ]
  },
  "validationCommand": ["pytest", "tests/test_auth.py"]
}`

const yamlManifest = `
version: "1.0"
goal: Harden the auth service
taskType: edit
supersedes:
  - task-001-create-auth.manifest.json
editableFiles:
  - src/auth.py
expectedArtifacts:
  file: src/auth.py
  contains:
    - type: method
      name: login
      class: AuthService
      args: ["username: str", "password: str", "mfa_token: str"]
      returns: bool
`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "task-001-create-auth.manifest.json", jsonManifest)
	writeFile(t, dir, "task-002-harden-auth.manifest.yaml", yamlManifest)
	writeFile(t, dir, "README.md", "not a manifest")

	s, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("loaded %d manifests, want 2", s.Len())
	}

	m, ok := s.Get("task-001-create-auth")
	if !ok {
		t.Fatal("task-001 not found")
	}
	if m.Seq != 1 || m.TaskType != TaskCreate {
		t.Errorf("manifest = seq %d type %s", m.Seq, m.TaskType)
	}
	if m.TargetFile() != "src/auth.py" {
		t.Errorf("target file = %q", m.TargetFile())
	}
	if !m.IsCreatable("src/auth.py") || m.IsEditable("src/auth.py") {
		t.Error("task-001 should declare src/auth.py creatable, not editable")
	}

	decls := m.DeclaredArtifacts()
	if len(decls) != 4 {
		t.Fatalf("got %d declared artifacts, want 4", len(decls))
	}
	login := decls[1]
	if login.Kind != artifact.KindFunction || login.Owner != "AuthService" {
		t.Errorf("method maps to owned function: %+v", login)
	}
	if len(login.Params) != 2 || login.Params[0].Type != "str" {
		t.Errorf("login params = %v", login.Params)
	}
	if login.Returns != "bool" {
		t.Errorf("login returns = %q", login.Returns)
	}

	// Supersedes references normalize away the file extension.
	m2, ok := s.Get("task-002-harden-auth")
	if !ok {
		t.Fatal("task-002 not found")
	}
	if len(m2.Supersedes) != 1 || m2.Supersedes[0] != "task-001-create-auth" {
		t.Errorf("supersedes = %v", m2.Supersedes)
	}

	// Lookup by target file, ascending sequence.
	byFile := s.ByFile("src/auth.py")
	if len(byFile) != 2 || byFile[0].Seq != 1 || byFile[1].Seq != 2 {
		t.Errorf("ByFile order wrong: %v", byFile)
	}
	if files := s.Files(); len(files) != 1 || files[0] != "src/auth.py" {
		t.Errorf("Files() = %v", files)
	}
}

func TestLoadDirDuplicateSeq(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "task-001-a.manifest.json", `{"expectedArtifacts":{"file":"a.py"}}`)
	writeFile(t, dir, "task-001-b.manifest.json", `{"expectedArtifacts":{"file":"b.py"}}`)
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("duplicate sequence numbers must fail the load")
	}
}

func TestParseIDErrors(t *testing.T) {
	if _, err := ParseID("manifest-without-prefix"); err == nil {
		t.Error("id without task-NNN prefix should fail")
	}
	seq, err := ParseID("task-042-do-things")
	if err != nil || seq != 42 {
		t.Errorf("ParseID = %d, %v", seq, err)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"task-001-a.manifest.json", "task-001-a"},
		{"task-001-a.manifest.yaml", "task-001-a"},
		{"task-001-a.manifest.yml", "task-001-a"},
		{"task-001-a", "task-001-a"},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseUnknownArtifactType(t *testing.T) {
	_, err := Parse("x", "task-001-x.manifest.json",
		[]byte(`{"expectedArtifacts":{"file":"a.py","contains":[{"type":"widget","name":"w"}]}}`))
	if err == nil {
		t.Fatal("unknown artifact type should fail")
	}
}

func TestParseMethodRequiresClass(t *testing.T) {
	_, err := Parse("x", "task-001-x.manifest.json",
		[]byte(`{"expectedArtifacts":{"file":"a.py","contains":[{"type":"method","name":"m"}]}}`))
	if err == nil {
		t.Fatal("method without class should fail")
	}
}
