// Package pipeline wires the stages together: load manifests, resolve
// chains, extract artifacts, validate, and build the knowledge graph. The
// CLI commands are thin wrappers over this package.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/cache"
	"github.com/mamertofabian/maid-runner-sub001/internal/chain"
	"github.com/mamertofabian/maid-runner-sub001/internal/extract"
	"github.com/mamertofabian/maid-runner-sub001/internal/graph"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
	"github.com/mamertofabian/maid-runner-sub001/internal/report"
	"github.com/mamertofabian/maid-runner-sub001/internal/validate"
)

// Options configure one pipeline run.
type Options struct {
	// Workspace is the project root; target file paths in manifests are
	// relative to it.
	Workspace string

	// ManifestDir holds the *.manifest.{json,yaml,yml} files.
	ManifestDir string

	// Mode forces strict or permissive comparison. Empty means auto:
	// derive per file from creatableFiles versus editableFiles.
	Mode validate.Mode

	// Phase selects implementation or behavioral validation.
	Phase validate.Phase

	// TestFile overrides the source of behavioral references. When empty
	// the behavioral phase reads the target file itself.
	TestFile string

	// CachePath enables the sqlite resolved-chain cache when non-empty.
	CachePath string
}

// Pipeline holds the long-lived collaborators for one workspace.
type Pipeline struct {
	opts     Options
	factory  *extract.Factory
	resolver *chain.Resolver
	engine   *validate.Engine
	chains   *cache.Chains

	// Tree-sitter parsers are not safe for concurrent reuse, so parallel
	// extraction draws factories from a pool instead of sharing one.
	factories sync.Pool
}

// New creates a pipeline. When opts.CachePath is set the chain cache is
// opened eagerly; a cache that fails to open degrades to uncached
// resolution rather than failing the run.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		opts:     opts,
		factory:  extract.DefaultFactory(),
		resolver: chain.NewResolver(chain.DefaultPolicy()),
		engine:   validate.NewEngine(),
	}
	p.factories.New = func() interface{} { return extract.DefaultFactory() }
	if opts.CachePath != "" {
		chains, err := cache.Open(opts.CachePath)
		if err != nil {
			logging.Cache("cache disabled: %v", err)
		} else {
			p.chains = chains
		}
	}
	return p
}

// Close releases the cache, if open.
func (p *Pipeline) Close() error {
	if p.chains != nil {
		return p.chains.Close()
	}
	return nil
}

// LoadStore loads the manifest directory.
func (p *Pipeline) LoadStore() (*manifest.Store, error) {
	return manifest.LoadDir(p.opts.ManifestDir)
}

// ExpectedFor resolves and merges the chain for one target file, consulting
// the cache when enabled.
func (p *Pipeline) ExpectedFor(store *manifest.Store, file string) (*chain.ExpectedSet, error) {
	manifests := store.ByFile(file)
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no manifests target %s", file)
	}

	var key string
	if p.chains != nil {
		key = cache.Key(manifests)
		if set, ok := p.chains.Get(file, key); ok {
			return set, nil
		}
	}

	set, err := p.resolver.ResolveAndMerge(manifests)
	if err != nil {
		return nil, err
	}
	if p.chains != nil {
		if err := p.chains.Put(file, key, set); err != nil {
			logging.Cache("cache write for %s: %v", file, err)
		}
	}
	return set, nil
}

// ValidateFile validates one target file end to end and returns its issues.
// Chain errors (cycles, dangling references, conflicts) surface as report
// issues, not as a failed run.
func (p *Pipeline) ValidateFile(store *manifest.Store, file string) []report.Issue {
	set, err := p.ExpectedFor(store, file)
	if err != nil {
		return chainIssues(file, err)
	}

	mode := p.opts.Mode
	if mode == "" {
		creatable, editable := classify(store, file)
		mode = validate.ModeFor(creatable, editable)
	}
	phase := p.opts.Phase
	if phase == "" {
		phase = validate.PhaseImplementation
	}

	in, issues := p.extractInput(file, phase)
	if issues != nil {
		return issues
	}

	res := p.engine.Validate(set, in, mode, phase)
	return resultIssues(res)
}

// extractInput reads and extracts the file the active phase needs. A missing
// target file is not an extraction error; validation reports each declared
// artifact as missing instead.
func (p *Pipeline) extractInput(file string, phase validate.Phase) (validate.Input, []report.Issue) {
	source := file
	if phase == validate.PhaseBehavioral && p.opts.TestFile != "" {
		source = p.opts.TestFile
	}
	path := filepath.Join(p.opts.Workspace, source)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && phase == validate.PhaseImplementation {
			return validate.Input{}, nil
		}
		return validate.Input{}, []report.Issue{{
			Type:     "read_error",
			Severity: report.SeverityError,
			Location: source,
			Message:  err.Error(),
		}}
	}

	factory := p.factories.Get().(*extract.Factory)
	defer p.factories.Put(factory)

	if phase == validate.PhaseBehavioral {
		refs, err := factory.References(source, content)
		if err != nil {
			return validate.Input{}, parseIssues(source, err)
		}
		return validate.Input{Refs: refs}, nil
	}

	actual, err := factory.Extract(source, content)
	if err != nil {
		return validate.Input{}, parseIssues(source, err)
	}
	return validate.Input{Actual: actual}, nil
}

// Run validates every target file in the store and assembles one report.
// Files are validated in parallel; a failure in one file never suppresses
// findings from the others.
func (p *Pipeline) Run(ctx context.Context, store *manifest.Store) (*report.Report, error) {
	rep := report.New()
	files := store.Files()

	var mu sync.Mutex
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for _, file := range files {
		eg.Go(func() error {
			issues := p.ValidateFile(store, file)
			mu.Lock()
			rep.Add(issues...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	rep.Sort()
	return rep, nil
}

// ExtractWorkspace extracts declarations from every file the manifests
// mention, keyed by manifest-relative path. That covers readonly
// dependencies as well as target files: dependency files must contribute
// their definitions to the graph even though nothing validates them.
// Missing and unparseable files are skipped; graph construction works from
// whatever extraction yields.
func (p *Pipeline) ExtractWorkspace(store *manifest.Store) map[string][]artifact.Declaration {
	files := make(map[string]bool)
	for _, file := range store.Files() {
		files[file] = true
	}
	for _, m := range store.All() {
		for _, dep := range m.ReadonlyFiles {
			files[dep] = true
		}
	}

	extracted := make(map[string][]artifact.Declaration)
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(8)

	for file := range files {
		if !p.factory.Supports(file) {
			continue
		}
		eg.Go(func() error {
			content, err := os.ReadFile(filepath.Join(p.opts.Workspace, file))
			if err != nil {
				return nil
			}
			factory := p.factories.Get().(*extract.Factory)
			defer p.factories.Put(factory)
			decls, err := factory.Extract(file, content)
			if err != nil {
				logging.Extract("skip %s: %v", file, err)
				return nil
			}
			mu.Lock()
			extracted[file] = decls
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return extracted
}

// BuildGraph extracts the workspace and builds the knowledge graph.
func (p *Pipeline) BuildGraph(store *manifest.Store) (*graph.Graph, map[string][]artifact.Declaration) {
	extracted := p.ExtractWorkspace(store)
	g := graph.NewBuilder().Build(store.All(), extracted)
	return g, extracted
}

// classify reports whether any manifest lists the file as creatable or
// editable.
func classify(store *manifest.Store, file string) (creatable, editable bool) {
	for _, m := range store.ByFile(file) {
		if m.IsCreatable(file) {
			creatable = true
		}
		if m.IsEditable(file) {
			editable = true
		}
	}
	return creatable, editable
}

// chainIssues translates resolution and merge failures into report issues.
func chainIssues(file string, err error) []report.Issue {
	var out []report.Issue
	for _, e := range flatten(err) {
		issue := report.Issue{Severity: report.SeverityError, Location: file, Message: e.Error()}
		var cyc *chain.CycleError
		var dangling *chain.DanglingRefError
		var conflict *chain.ConflictError
		switch {
		case errors.As(e, &cyc):
			issue.Type = "supersession_cycle"
		case errors.As(e, &dangling):
			issue.Type = "dangling_reference"
		case errors.As(e, &conflict):
			issue.Type = string(conflict.Kind)
		default:
			issue.Type = "chain_error"
		}
		out = append(out, issue)
	}
	return out
}

// parseIssues translates extraction failures, keeping position detail for
// syntax errors.
func parseIssues(file string, err error) []report.Issue {
	issue := report.Issue{
		Type:     "parse_error",
		Severity: report.SeverityError,
		Location: file,
		Message:  err.Error(),
	}
	var pe *extract.ParseError
	if errors.As(err, &pe) {
		issue.Location = fmt.Sprintf("%s:%d:%d", pe.File, pe.Line, pe.Col)
		issue.Message = pe.Message
	}
	return []report.Issue{issue}
}

// resultIssues maps validation findings onto the unified report shape.
func resultIssues(res *validate.Result) []report.Issue {
	var out []report.Issue
	add := func(issues []validate.Issue, sev report.Severity) {
		for _, issue := range issues {
			loc := issue.Loc.File
			if issue.Loc.Line > 0 {
				loc = fmt.Sprintf("%s:%d", issue.Loc.File, issue.Loc.Line)
			}
			out = append(out, report.Issue{
				Type:       string(issue.Kind),
				Severity:   sev,
				Message:    issue.Message,
				Location:   loc,
				Expected:   issue.Expected,
				Found:      issue.Found,
				Suggestion: issue.Suggestion,
			})
		}
	}
	add(res.Errors, report.SeverityError)
	add(res.Warnings, report.SeverityWarning)
	sort.Slice(out, func(i, j int) bool { return out[i].Message < out[j].Message })
	return out
}

// flatten unwraps joined errors into their leaves.
func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
