package artifact

import (
	"encoding/json"
	"testing"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Kind: KindFunction, Name: "login"}, "function login"},
		{Key{Kind: KindFunction, Owner: "Auth", Name: "login"}, "function Auth.login"},
		{Key{Kind: KindClass, Name: "Auth"}, "class Auth"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Key.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestKeyTextRoundTrip(t *testing.T) {
	// Keys serve as JSON map keys in cache payloads.
	sources := map[Key]string{
		{Kind: KindFunction, Owner: "Auth", Name: "login"}: "task-001",
		{Kind: KindClass, Name: "Auth"}:                    "task-002",
	}
	data, err := json.Marshal(sources)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[Key]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != len(sources) {
		t.Fatalf("got %d entries, want %d", len(decoded), len(sources))
	}
	for k, v := range sources {
		if decoded[k] != v {
			t.Errorf("key %v = %q, want %q", k, decoded[k], v)
		}
	}
}

func TestSignature(t *testing.T) {
	fn := Declaration{
		Kind: KindFunction,
		Name: "authenticate",
		Params: []Param{
			{Name: "username", Type: "str"},
			{Name: "password", Type: "str"},
		},
		Returns: "bool",
	}
	want := "authenticate(username:str, password:str) -> bool"
	if got := fn.Signature(); got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}

	bare := Declaration{Kind: KindFunction, Name: "run", Params: []Param{{Name: "x"}}}
	if got := bare.Signature(); got != "run(x)" {
		t.Errorf("Signature() = %q, want %q", got, "run(x)")
	}

	attr := Declaration{Kind: KindAttribute, Name: "timeout"}
	if got := attr.Signature(); got != "timeout" {
		t.Errorf("attribute Signature() = %q, want %q", got, "timeout")
	}
}

func TestSameSignature(t *testing.T) {
	a := Declaration{Kind: KindFunction, Name: "f", Params: []Param{{Name: "x", Type: "int"}}, Returns: "str"}
	b := a
	if !a.SameSignature(b) {
		t.Error("identical declarations should match")
	}
	b.Returns = "int"
	if a.SameSignature(b) {
		t.Error("differing returns should not match")
	}
	b = a
	b.Params = []Param{{Name: "y", Type: "int"}}
	if a.SameSignature(b) {
		t.Error("differing param names should not match")
	}
}

func TestVisibilityOf(t *testing.T) {
	tests := []struct {
		name string
		want Visibility
	}{
		{"login", VisibilityPublic},
		{"_helper", VisibilityPrivate},
		{"__cache", VisibilityPrivate},
		{"__init__", VisibilityPublic},
		{"__repr__", VisibilityPublic},
	}
	for _, tt := range tests {
		if got := VisibilityOf(tt.name); got != tt.want {
			t.Errorf("VisibilityOf(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseParam(t *testing.T) {
	p := ParseParam("username: str")
	if p.Name != "username" || p.Type != "str" {
		t.Errorf("ParseParam = %+v", p)
	}
	p = ParseParam("count")
	if p.Name != "count" || p.Type != "" {
		t.Errorf("ParseParam bare = %+v", p)
	}
}
