// Package validate compares a resolved expected artifact set against
// artifacts extracted from source, under strict or permissive comparison
// and behavioral or implementation phase rules.
package validate

import (
	"fmt"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/chain"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// Mode selects the comparison policy. Strict applies to newly created files
// (set equality); Permissive applies to edited files (superset).
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModePermissive Mode = "permissive"
)

// Phase selects what is being checked: that implementation code defines the
// artifacts, or that test code uses them.
type Phase string

const (
	PhaseImplementation Phase = "implementation"
	PhaseBehavioral     Phase = "behavioral"
)

// IssueKind is the validation error taxonomy.
type IssueKind string

const (
	IssueMissing           IssueKind = "missing_artifact"
	IssueExtra             IssueKind = "extra_artifact"
	IssueSignatureMismatch IssueKind = "signature_mismatch"
	IssueUnusedArtifact    IssueKind = "unused_artifact"
)

// Issue is one validation finding with full expected-vs-actual detail.
type Issue struct {
	Kind       IssueKind         `json:"type"`
	Message    string            `json:"message"`
	Loc        artifact.Location `json:"location"`
	Expected   string            `json:"expected,omitempty"`
	Found      string            `json:"found,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// Result collects every finding for one file. The full set is always
// reported; validation never stops at the first problem.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether validation passed.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Input carries the extracted view of the file under validation. Actual is
// used by the implementation phase; Refs (call/instantiation counts from a
// test file) by the behavioral phase.
type Input struct {
	Actual []artifact.Declaration
	Refs   map[string]int
}

// Engine is stateless; one instance may validate many files concurrently.
type Engine struct{}

// NewEngine creates a validation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Validate compares expected against the extracted input.
func (e *Engine) Validate(expected *chain.ExpectedSet, in Input, mode Mode, phase Phase) *Result {
	res := &Result{}
	if phase == PhaseBehavioral {
		e.validateBehavioral(expected, in.Refs, res)
	} else {
		e.validateImplementation(expected, in.Actual, mode, res)
	}
	logging.ValidateDebug("%s: mode=%s phase=%s errors=%d warnings=%d",
		expected.File, mode, phase, len(res.Errors), len(res.Warnings))
	return res
}

// validateImplementation checks structural existence and signatures.
func (e *Engine) validateImplementation(expected *chain.ExpectedSet, actual []artifact.Declaration, mode Mode, res *Result) {
	actualByKey := make(map[artifact.Key]artifact.Declaration, len(actual))
	for _, d := range actual {
		actualByKey[d.Key()] = d
	}
	expectedKeys := make(map[artifact.Key]bool, len(expected.Artifacts))

	for _, want := range expected.Artifacts {
		key := want.Key()
		expectedKeys[key] = true

		if want.Kind == artifact.KindParameter {
			e.checkParameter(expected, want, actualByKey, res)
			continue
		}

		got, ok := actualByKey[key]
		if !ok {
			res.Errors = append(res.Errors, Issue{
				Kind:     IssueMissing,
				Message:  fmt.Sprintf("declared %s not found in %s", key, expected.File),
				Loc:      artifact.Location{File: expected.File},
				Expected: want.Signature(),
				Suggestion: fmt.Sprintf("implement %s as declared by manifest %s",
					key, expected.Sources[key]),
			})
			continue
		}

		if want.Kind == artifact.KindFunction && !signatureMatches(want, got) {
			res.Errors = append(res.Errors, Issue{
				Kind: IssueSignatureMismatch,
				Message: fmt.Sprintf("%s signature differs: expected %q, found %q",
					key, want.Signature(), got.Signature()),
				Loc:        got.Loc,
				Expected:   want.Signature(),
				Found:      got.Signature(),
				Suggestion: fmt.Sprintf("align the signature with manifest %s", expected.Sources[key]),
			})
		}
	}

	if mode != ModeStrict {
		return
	}

	// Strict mode: any undeclared public artifact is an error, preventing
	// undeclared code from passing validation. Private artifacts are never
	// flagged as extra.
	for _, got := range actual {
		if got.IsPrivate() || expectedKeys[got.Key()] {
			continue
		}
		res.Errors = append(res.Errors, Issue{
			Kind:       IssueExtra,
			Message:    fmt.Sprintf("undeclared %s found in %s", got.Key(), got.Loc.File),
			Loc:        got.Loc,
			Found:      got.Signature(),
			Suggestion: "declare the artifact in a manifest or remove it",
		})
	}
}

// checkParameter validates a standalone parameter declaration against the
// owning function's parameter list.
func (e *Engine) checkParameter(expected *chain.ExpectedSet, want artifact.Declaration, actualByKey map[artifact.Key]artifact.Declaration, res *Result) {
	ownerKey := artifact.Key{Kind: artifact.KindFunction, Name: want.Owner}
	fn, ok := actualByKey[ownerKey]
	if !ok {
		// Owner may itself be a method of some class; search by name.
		for k, d := range actualByKey {
			if k.Kind == artifact.KindFunction && k.Name == want.Owner {
				fn, ok = d, true
				break
			}
		}
	}
	if !ok {
		res.Errors = append(res.Errors, Issue{
			Kind:     IssueMissing,
			Message:  fmt.Sprintf("parameter %s declared for unknown function %s", want.Name, want.Owner),
			Loc:      artifact.Location{File: expected.File},
			Expected: want.Name,
		})
		return
	}
	for _, p := range fn.Params {
		if p.Name == want.Name {
			return
		}
	}
	res.Errors = append(res.Errors, Issue{
		Kind:     IssueMissing,
		Message:  fmt.Sprintf("function %s missing declared parameter %s", want.Owner, want.Name),
		Loc:      fn.Loc,
		Expected: want.Name,
		Found:    fn.Signature(),
	})
}

// validateBehavioral checks that each expected artifact is exercised by the
// test file: referenced in a call or instantiation expression. An import
// alone is insufficient.
func (e *Engine) validateBehavioral(expected *chain.ExpectedSet, refs map[string]int, res *Result) {
	for _, want := range expected.Artifacts {
		switch want.Kind {
		case artifact.KindAttribute, artifact.KindParameter:
			// Attributes and parameters are not callable; behavioral
			// coverage is judged through the functions that use them.
			continue
		}
		if refs[want.Name] > 0 {
			continue
		}
		res.Errors = append(res.Errors, Issue{
			Kind:     IssueUnusedArtifact,
			Message:  fmt.Sprintf("%s is declared but never called or instantiated by the tests", want.Key()),
			Loc:      artifact.Location{File: expected.File},
			Expected: want.Signature(),
			Suggestion: fmt.Sprintf("add a test that invokes %s, not just imports it",
				want.Name),
		})
	}
}

// signatureMatches compares parameter names, parameter types, and return
// type. Types are compared only where the manifest declares one, so an
// untyped manifest argument matches any annotation in code.
func signatureMatches(want, got artifact.Declaration) bool {
	if len(want.Params) != len(got.Params) {
		return false
	}
	for i := range want.Params {
		if want.Params[i].Name != got.Params[i].Name {
			return false
		}
		if want.Params[i].Type != "" && want.Params[i].Type != got.Params[i].Type {
			return false
		}
	}
	if want.Returns != "" && want.Returns != got.Returns {
		return false
	}
	return true
}

// ModeFor derives the comparison mode from how the manifests classify the
// file: creatable files validate strictly, editable files permissively.
func ModeFor(creatable, editable bool) Mode {
	if creatable && !editable {
		return ModeStrict
	}
	return ModePermissive
}
