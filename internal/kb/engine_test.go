package kb

import (
	"testing"
)

func graphFacts() []Fact {
	return []Fact{
		{Predicate: "node", Args: []interface{}{"file:src/auth.py", "file", "src/auth.py"}},
		{Predicate: "node", Args: []interface{}{"module:src", "module", "src"}},
		{Predicate: "edge", Args: []interface{}{"file:src/auth.py", "BELONGS_TO", "module:src"}},
		{Predicate: "edge", Args: []interface{}{"manifest:task-002", "SUPERSEDES", "manifest:task-001"}},
	}
}

func TestBaseSchemaViews(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Add(graphFacts()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	facts, err := e.Facts("belongs_to")
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("belongs_to facts = %v", facts)
	}
	if facts[0].Args[0] != "file:src/auth.py" || facts[0].Args[1] != "module:src" {
		t.Errorf("belongs_to args = %v", facts[0].Args)
	}

	facts, err = e.Facts("supersedes")
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 1 {
		t.Errorf("supersedes facts = %v", facts)
	}
}

func TestUserRulesDeriveViolations(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// A rule flagging every file that belongs to the src module.
	rules := `
Decl violation(Id) bound [/string].
violation(F) :- belongs_to(F, "module:src").
`
	if err := e.LoadSource(rules); err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if err := e.Add(graphFacts()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	facts, err := e.Facts("violation")
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 1 || facts[0].Args[0] != "file:src/auth.py" {
		t.Errorf("violation facts = %v", facts)
	}
}

func TestLoadSourceRollsBackOnBadRules(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.LoadSource("this is not datalog ("); err == nil {
		t.Fatal("malformed rules should fail")
	}
	// The engine still works after a rejected fragment.
	if err := e.Add(graphFacts()); err != nil {
		t.Fatalf("Add after failed load: %v", err)
	}
	if _, err := e.Facts("belongs_to"); err != nil {
		t.Fatalf("Facts after failed load: %v", err)
	}
}

func TestAddRejectsUndeclaredPredicate(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Add([]Fact{{Predicate: "mystery", Args: []interface{}{"x"}}}); err == nil {
		t.Error("undeclared predicate should be rejected")
	}
	if err := e.Add([]Fact{{Predicate: "edge", Args: []interface{}{"only-one-arg"}}}); err == nil {
		t.Error("arity mismatch should be rejected")
	}
}

func TestFactString(t *testing.T) {
	f := Fact{Predicate: "edge", Args: []interface{}{"a", "READS", "b"}}
	want := `edge("a", "READS", "b")`
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
