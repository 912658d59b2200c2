// Package kb wraps the Google Mangle datalog engine over knowledge-graph
// facts. It powers user-supplied architectural constraint rules and the
// datalog query escape hatch; the graph itself stays the source of truth.
package kb

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// Fact is one datalog fact.
type Fact struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
}

// String returns the Datalog rendering of the fact.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		switch v := a.(type) {
		case string:
			args[i] = fmt.Sprintf("%q", v)
		case int, int64:
			args[i] = fmt.Sprintf("%d", v)
		default:
			args[i] = fmt.Sprintf("%v", v)
		}
	}
	return fmt.Sprintf("%s(%s)", f.Predicate, strings.Join(args, ", "))
}

// baseSchema declares the extensional predicates the graph emits, plus a
// few convenience views over the edge relation for rule authors.
const baseSchema = `
Decl node(Id, Kind, Label) bound [/string, /string, /string].
Decl edge(From, Kind, To) bound [/string, /string, /string].

belongs_to(F, M) :- edge(F, "BELONGS_TO", M).
supersedes(A, B) :- edge(A, "SUPERSEDES", B).
declares(M, A) :- edge(M, "DECLARES", A).
defines(F, A) :- edge(F, "DEFINES", A).
reads(M, F) :- edge(M, "READS", F).
inherits(A, B) :- edge(A, "INHERITS", B).
contains(A, B) :- edge(A, "CONTAINS", B).
`

// Engine evaluates datalog rules over graph facts. Facts and rules are
// loaded up front; evaluation runs once and queries read derived facts.
type Engine struct {
	mu             sync.RWMutex
	baseStore      factstore.FactStoreWithRemove
	store          factstore.ConcurrentFactStore
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
	fragments      []parse.SourceUnit
	evaluated      bool
}

// NewEngine creates an engine with the base graph schema loaded.
func NewEngine() (*Engine, error) {
	base := factstore.NewSimpleInMemoryStore()
	e := &Engine{
		baseStore:      base,
		store:          factstore.NewConcurrentFactStore(base),
		predicateIndex: make(map[string]ast.PredicateSym),
	}
	if err := e.LoadSource(baseSchema); err != nil {
		return nil, fmt.Errorf("load base schema: %w", err)
	}
	return e, nil
}

// LoadSource parses and analyzes additional datalog source (user rules).
func (e *Engine) LoadSource(src string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(src)))
	if err != nil {
		return fmt.Errorf("parse rules: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.fragments = append(e.fragments, unit)
	if err := e.rebuildLocked(); err != nil {
		e.fragments = e.fragments[:len(e.fragments)-1]
		return fmt.Errorf("analyze rules: %w", err)
	}
	e.evaluated = false
	return nil
}

func (e *Engine) rebuildLocked() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range e.fragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: decls}, nil)
	if err != nil {
		return err
	}

	e.programInfo = programInfo
	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
	}
	return nil
}

// Add inserts facts into the store. Arguments are encoded as datalog
// strings or numbers.
func (e *Engine) Add(facts []Fact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, f := range facts {
		sym, ok := e.predicateIndex[f.Predicate]
		if !ok {
			return fmt.Errorf("predicate %s is not declared", f.Predicate)
		}
		if sym.Arity != len(f.Args) {
			return fmt.Errorf("predicate %s expects %d args, got %d",
				f.Predicate, sym.Arity, len(f.Args))
		}
		args := make([]ast.BaseTerm, len(f.Args))
		for i, a := range f.Args {
			switch v := a.(type) {
			case string:
				args[i] = ast.String(v)
			case int:
				args[i] = ast.Number(int64(v))
			case int64:
				args[i] = ast.Number(v)
			default:
				args[i] = ast.String(fmt.Sprintf("%v", v))
			}
		}
		e.store.Add(ast.Atom{Predicate: sym, Args: args})
	}
	e.evaluated = false
	return nil
}

// Eval runs the loaded program to fixpoint over the current facts.
func (e *Engine) Eval() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.programInfo == nil {
		return fmt.Errorf("no rules loaded")
	}
	if e.evaluated {
		return nil
	}
	if _, err := mengine.EvalProgramWithStats(e.programInfo, e.store); err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	e.evaluated = true
	logging.KBDebug("evaluated program, %d facts", e.store.EstimateFactCount())
	return nil
}

// Facts returns all stored and derived facts for a predicate, evaluating
// first if needed.
func (e *Engine) Facts(predicate string) ([]Fact, error) {
	if err := e.Eval(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	sym, ok := e.predicateIndex[predicate]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", predicate)
	}

	var results []Fact
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]interface{}, len(atom.Args))
		for i, arg := range atom.Args {
			args[i] = baseTermValue(arg)
		}
		results = append(results, Fact{Predicate: predicate, Args: args})
		return nil
	})
	return results, err
}

func baseTermValue(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return term.String()
	}
	if s, err := c.StringValue(); err == nil {
		return s
	}
	if n, err := c.NumberValue(); err == nil {
		return n
	}
	return c.String()
}
