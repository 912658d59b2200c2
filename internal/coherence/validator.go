// Package coherence runs architectural checks over the built knowledge
// graph and extraction results. Each check is independent and
// side-effect-free; checks run in parallel against the same immutable
// graph snapshot.
package coherence

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/chain"
	"github.com/mamertofabian/maid-runner-sub001/internal/graph"
	"github.com/mamertofabian/maid-runner-sub001/internal/kb"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

// Severity tags an issue as blocking or advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueType names the check that produced an issue.
type IssueType string

const (
	IssueDuplicate      IssueType = "duplicate"
	IssueSignature      IssueType = "signature_conflict"
	IssueModuleBoundary IssueType = "module_boundary"
	IssueNaming         IssueType = "naming"
	IssueDependency     IssueType = "dependency_availability"
	IssuePattern        IssueType = "pattern_consistency"
	IssueArchConstraint IssueType = "architectural_constraint"
)

// Issue is one coherence finding, always carrying a human-actionable
// suggestion where one is derivable.
type Issue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Location   string    `json:"location"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// Validator holds the immutable inputs shared by all checks.
type Validator struct {
	cfg       *Config
	store     *manifest.Store
	g         *graph.Graph
	extracted map[string][]artifact.Declaration
}

// NewValidator creates a validator over a frozen graph, the manifest store,
// and the per-file extraction results.
func NewValidator(cfg *Config, store *manifest.Store, g *graph.Graph, extracted map[string][]artifact.Declaration) *Validator {
	return &Validator{cfg: cfg, store: store, g: g, extracted: extracted}
}

type check struct {
	name string
	run  func(context.Context) []Issue
}

// Run executes all seven checks concurrently and returns the combined
// issues in deterministic order.
func (v *Validator) Run(ctx context.Context) ([]Issue, error) {
	checks := []check{
		{"duplicates", v.checkDuplicates},
		{"signatures", v.checkSignatureConflicts},
		{"module-boundary", v.checkModuleBoundaries},
		{"naming", v.checkNaming},
		{"dependency-availability", v.checkDependencyAvailability},
		{"pattern-consistency", v.checkPatternConsistency},
		{"architectural-constraints", v.checkArchitecturalConstraints},
	}

	var mu sync.Mutex
	var all []Issue
	eg, ctx := errgroup.WithContext(ctx)
	for _, c := range checks {
		eg.Go(func() error {
			issues := c.run(ctx)
			mu.Lock()
			all = append(all, issues...)
			mu.Unlock()
			logging.CoherenceDebug("check %s: %d issues", c.name, len(issues))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Type != all[j].Type {
			return all[i].Type < all[j].Type
		}
		return all[i].Message < all[j].Message
	})
	return all, nil
}

// checkDuplicates flags artifacts declared by more than one active,
// non-mutually-superseding manifest, even when the declarations agree.
func (v *Validator) checkDuplicates(ctx context.Context) []Issue {
	// Redeclaration-intolerant policy so identical doubles surface too.
	resolver := chain.NewResolver(chain.Policy{AllowIdenticalRedeclaration: false})
	var issues []Issue
	for _, file := range v.store.Files() {
		resolved, err := resolver.Resolve(v.store.ByFile(file))
		if err != nil {
			continue // chain errors are reported by resolution, not here
		}
		for _, conflict := range resolver.Conflicts(resolved) {
			if conflict.Kind != chain.ConflictDuplicate {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueDuplicate,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("%s declared by both %s and %s",
					conflict.Key, conflict.FirstID, conflict.SecondID),
				Location: file,
				Suggestion: fmt.Sprintf("have %s supersede %s, or drop one declaration",
					conflict.SecondID, conflict.FirstID),
			})
		}
	}
	return issues
}

// checkSignatureConflicts flags same-name artifacts with differing
// signatures across manifests for the same file.
func (v *Validator) checkSignatureConflicts(ctx context.Context) []Issue {
	resolver := chain.NewResolver(chain.DefaultPolicy())
	var issues []Issue
	for _, file := range v.store.Files() {
		resolved, err := resolver.Resolve(v.store.ByFile(file))
		if err != nil {
			continue
		}
		for _, conflict := range resolver.Conflicts(resolved) {
			if conflict.Kind != chain.ConflictSignature {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueSignature,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s declared as %q by %s but %q by %s",
					conflict.Key, conflict.FirstSig, conflict.FirstID,
					conflict.SecondSig, conflict.SecondID),
				Location:   file,
				Suggestion: "supersede the stale manifest so one signature wins",
			})
		}
	}
	return issues
}

// checkModuleBoundaries flags artifacts declared for one file but actually
// extracted from another.
func (v *Validator) checkModuleBoundaries(ctx context.Context) []Issue {
	definedIn := make(map[artifact.Key][]string)
	for file, decls := range v.extracted {
		for _, d := range decls {
			definedIn[d.Key()] = append(definedIn[d.Key()], file)
		}
	}

	var issues []Issue
	for _, m := range v.store.All() {
		target := m.TargetFile()
		if _, extractedTarget := v.extracted[target]; !extractedTarget {
			continue // target not extracted this run; existence is validation's job
		}
		for _, decl := range m.DeclaredArtifacts() {
			files := definedIn[decl.Key()]
			if len(files) == 0 || contains(files, target) {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueModuleBoundary,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s is declared for %s but defined in %s",
					decl.Key(), target, files[0]),
				Location:   files[0],
				Suggestion: fmt.Sprintf("move %s to %s or update manifest %s", decl.Name, target, m.ID),
			})
		}
	}
	return issues
}

// checkNaming applies the configured per-kind naming conventions to public
// extracted artifacts.
func (v *Validator) checkNaming(ctx context.Context) []Issue {
	var issues []Issue
	for file, decls := range v.extracted {
		for _, d := range decls {
			if d.IsPrivate() {
				continue
			}
			re, ok := v.cfg.naming[string(d.Kind)]
			if !ok || re.MatchString(d.Name) {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueNaming,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("%s %q does not match convention %s",
					d.Kind, d.Name, re.String()),
				Location:   fmt.Sprintf("%s:%d", file, d.Loc.Line),
				Suggestion: fmt.Sprintf("rename %s to match %s", d.Name, re.String()),
			})
		}
	}
	return issues
}

// checkDependencyAvailability flags readonly dependencies whose artifacts
// are never defined anywhere in the graph.
func (v *Validator) checkDependencyAvailability(ctx context.Context) []Issue {
	var issues []Issue
	for _, m := range v.store.All() {
		for _, dep := range m.ReadonlyFiles {
			fid := graph.FileNodeID(dep)
			if _, ok := v.g.Node(fid); !ok {
				continue
			}
			if len(v.g.Out(fid, graph.EdgeDefines)) > 0 {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueDependency,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("manifest %s reads %s, which defines no artifacts",
					m.ID, dep),
				Location:   dep,
				Suggestion: "check the dependency path, or drop it from readonlyFiles",
			})
		}
	}
	return issues
}

// checkPatternConsistency compares artifacts against the prevailing shape
// of their category: when most functions in a file annotate their return
// type, the unannotated stragglers get flagged.
func (v *Validator) checkPatternConsistency(ctx context.Context) []Issue {
	if !v.cfg.patternConsistency() {
		return nil
	}

	var issues []Issue
	for file, decls := range v.extracted {
		var funcs []artifact.Declaration
		annotated := 0
		for _, d := range decls {
			if d.Kind != artifact.KindFunction || d.IsPrivate() {
				continue
			}
			funcs = append(funcs, d)
			if d.Returns != "" {
				annotated++
			}
		}
		if len(funcs) < 4 || annotated*5 < len(funcs)*4 {
			continue // no dominant pattern to hold stragglers to
		}
		for _, d := range funcs {
			if d.Returns != "" {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssuePattern,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("function %q lacks a return annotation while %d of %d peers declare one",
					d.Name, annotated, len(funcs)),
				Location:   fmt.Sprintf("%s:%d", file, d.Loc.Line),
				Suggestion: fmt.Sprintf("annotate the return type of %s", d.Name),
			})
		}
	}
	return issues
}

// checkArchitecturalConstraints evaluates user-supplied module dependency
// rules against BELONGS_TO/READS edges, plus any datalog rules file whose
// derived violation/1 facts become errors.
func (v *Validator) checkArchitecturalConstraints(ctx context.Context) []Issue {
	var issues []Issue

	for _, c := range v.cfg.Constraints {
		issues = append(issues, v.evalConstraint(c)...)
	}

	if v.cfg.RulesFile != "" {
		issues = append(issues, v.evalDatalogRules()...)
	}
	return issues
}

func (v *Validator) evalConstraint(c Constraint) []Issue {
	var issues []Issue
	for _, m := range v.store.All() {
		fromModule := graph.ModuleOf(m.TargetFile())
		if fromModule != c.From {
			continue
		}
		for _, dep := range m.ReadonlyFiles {
			if graph.ModuleOf(dep) != c.To {
				continue
			}
			issues = append(issues, Issue{
				Type:     IssueArchConstraint,
				Severity: SeverityError,
				Message: fmt.Sprintf("module %s must not depend on module %s: manifest %s reads %s",
					c.From, c.To, m.ID, dep),
				Location:   m.TargetFile(),
				Suggestion: fmt.Sprintf("invert the dependency or move the shared code out of %s", c.To),
			})
		}
	}
	return issues
}

func (v *Validator) evalDatalogRules() []Issue {
	rules, err := os.ReadFile(v.cfg.RulesFile)
	if err != nil {
		return []Issue{{
			Type:     IssueArchConstraint,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("cannot read rules file %s: %v", v.cfg.RulesFile, err),
			Location: v.cfg.RulesFile,
		}}
	}

	engine, err := kb.NewEngine()
	if err == nil {
		err = engine.LoadSource(string(rules))
	}
	if err == nil {
		err = engine.Add(v.g.Facts())
	}
	if err != nil {
		return []Issue{{
			Type:     IssueArchConstraint,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("rules file %s: %v", v.cfg.RulesFile, err),
			Location: v.cfg.RulesFile,
		}}
	}

	violations, err := engine.Facts("violation")
	if err != nil {
		return []Issue{{
			Type:     IssueArchConstraint,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("rules file %s must derive violation/1: %v", v.cfg.RulesFile, err),
			Location: v.cfg.RulesFile,
		}}
	}

	var issues []Issue
	for _, f := range violations {
		subject := ""
		if len(f.Args) > 0 {
			subject = fmt.Sprintf("%v", f.Args[0])
		}
		issues = append(issues, Issue{
			Type:       IssueArchConstraint,
			Severity:   SeverityError,
			Message:    fmt.Sprintf("architectural rule violated by %s", subject),
			Location:   subject,
			Suggestion: fmt.Sprintf("see %s for the violated rule", v.cfg.RulesFile),
		})
	}
	return issues
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
