package extract

import (
	"errors"
	"testing"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
)

const pythonSource = `
MAX_RETRIES = 3
_internal_flag = True


class AuthService(BaseService):
    timeout = 30

    def __init__(self, db):
        self.db = db
        self.attempts = 0

    def authenticate(self, username: str, password: str) -> bool:
        return self.db.check(username, password)

    def _hash(self, password: str) -> str:
        return password


def create_service(config) -> AuthService:
    return AuthService(config)
`

func findDecl(t *testing.T, decls []artifact.Declaration, kind artifact.Kind, owner, name string) artifact.Declaration {
	t.Helper()
	for _, d := range decls {
		if d.Kind == kind && d.Owner == owner && d.Name == name {
			return d
		}
	}
	t.Fatalf("declaration %s %s.%s not found in %v", kind, owner, name, decls)
	return artifact.Declaration{}
}

func TestPythonExtract(t *testing.T) {
	decls, err := NewPythonExtractor().Extract("auth.py", []byte(pythonSource))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	class := findDecl(t, decls, artifact.KindClass, "", "AuthService")
	if len(class.Bases) != 1 || class.Bases[0] != "BaseService" {
		t.Errorf("AuthService bases = %v, want [BaseService]", class.Bases)
	}

	auth := findDecl(t, decls, artifact.KindFunction, "AuthService", "authenticate")
	if len(auth.Params) != 2 {
		t.Fatalf("authenticate params = %v, want 2 (self dropped)", auth.Params)
	}
	if auth.Params[0] != (artifact.Param{Name: "username", Type: "str"}) {
		t.Errorf("first param = %+v", auth.Params[0])
	}
	if auth.Returns != "bool" {
		t.Errorf("authenticate returns = %q, want bool", auth.Returns)
	}

	init := findDecl(t, decls, artifact.KindFunction, "AuthService", "__init__")
	if init.Visibility != artifact.VisibilityPublic {
		t.Error("__init__ should be public")
	}

	hash := findDecl(t, decls, artifact.KindFunction, "AuthService", "_hash")
	if hash.Visibility != artifact.VisibilityPrivate {
		t.Error("_hash should be private")
	}

	// Class attributes: direct and self-assigned in __init__.
	findDecl(t, decls, artifact.KindAttribute, "AuthService", "timeout")
	findDecl(t, decls, artifact.KindAttribute, "AuthService", "db")
	findDecl(t, decls, artifact.KindAttribute, "AuthService", "attempts")

	// Module-level assignments are attribute declarations too.
	retries := findDecl(t, decls, artifact.KindAttribute, "", "MAX_RETRIES")
	if retries.Visibility != artifact.VisibilityPublic {
		t.Error("MAX_RETRIES should be public")
	}
	flag := findDecl(t, decls, artifact.KindAttribute, "", "_internal_flag")
	if flag.Visibility != artifact.VisibilityPrivate {
		t.Error("_internal_flag should be private")
	}

	fn := findDecl(t, decls, artifact.KindFunction, "", "create_service")
	if len(fn.Params) != 1 || fn.Params[0].Name != "config" {
		t.Errorf("create_service params = %v", fn.Params)
	}
}

func TestPythonExtractSyntaxError(t *testing.T) {
	_, err := NewPythonExtractor().Extract("bad.py", []byte("def broken(:\n    pass\n"))
	if err == nil {
		t.Fatal("want parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %T", err)
	}
	if pe.File != "bad.py" || pe.Line == 0 {
		t.Errorf("parse error position = %+v", pe)
	}
}

func TestPythonReferences(t *testing.T) {
	src := `
import auth

def test_authenticate():
    svc = AuthService(None)
    assert svc.authenticate("u", "p")
    create_service(None)
    create_service(None)
`
	refs, err := NewPythonExtractor().References("test_auth.py", []byte(src))
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if refs["AuthService"] == 0 {
		t.Error("instantiation of AuthService not counted")
	}
	if refs["authenticate"] != 1 {
		t.Errorf("authenticate refs = %d, want 1", refs["authenticate"])
	}
	if refs["create_service"] != 2 {
		t.Errorf("create_service refs = %d, want 2", refs["create_service"])
	}
	// Imports alone never count as references.
	if refs["auth"] != 0 {
		t.Errorf("import counted as reference: %d", refs["auth"])
	}
}
