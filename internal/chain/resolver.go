// Package chain resolves the directed history of manifests for one file
// into a canonical, conflict-free expected artifact set. Supersession is
// loaded once up front and resolved with pure in-memory graph algorithms;
// cycle detection is a closed-form graph property, not repeated file walks.
package chain

import (
	"sort"

	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

// Chain is the resolved per-file view of manifest history: the active
// manifests in ascending sequence order, and everything they superseded.
type Chain struct {
	File       string
	Active     []*manifest.Manifest
	Superseded map[string]*manifest.Manifest
}

// Policy controls the tie-break for two non-superseding manifests declaring
// the same artifact. The defensible default treats textually identical
// declarations as harmless redeclaration; differing signatures always
// conflict.
type Policy struct {
	AllowIdenticalRedeclaration bool
}

// DefaultPolicy allows identical redeclarations.
func DefaultPolicy() Policy {
	return Policy{AllowIdenticalRedeclaration: true}
}

// Resolver resolves manifest sets into chains and merged expectations.
// Resolver values are stateless and safe for concurrent use across files.
type Resolver struct {
	policy Policy
}

// NewResolver creates a Resolver with the given policy.
func NewResolver(policy Policy) *Resolver {
	return &Resolver{policy: policy}
}

// DFS colors for cycle detection.
type color uint8

const (
	white color = iota // unvisited
	gray               // on the current DFS stack
	black              // fully explored
)

// Resolve builds the supersession graph over the given manifests (all for
// one file), rejects cycles and dangling references, and splits the set
// into active and superseded manifests.
func (r *Resolver) Resolve(manifests []*manifest.Manifest) (*Chain, error) {
	if len(manifests) == 0 {
		return &Chain{Superseded: map[string]*manifest.Manifest{}}, nil
	}

	byID := make(map[string]*manifest.Manifest, len(manifests))
	for _, m := range manifests {
		byID[m.ID] = m
	}

	// Dangling references are detected before traversal so the error names
	// the offending manifest rather than surfacing as a missing node.
	for _, m := range manifests {
		for _, ref := range m.Supersedes {
			if _, ok := byID[ref]; !ok {
				return nil, &DanglingRefError{From: m.ID, Ref: ref}
			}
		}
	}

	// Three-color DFS over supersedes edges: a back-edge to a gray node is
	// a cycle.
	colors := make(map[string]color, len(manifests))
	var stack []string
	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		colors[id] = gray
		stack = append(stack, id)
		for _, ref := range byID[id].Supersedes {
			switch colors[ref] {
			case gray:
				// Slice the stack from the first occurrence of ref to
				// report the cycle path.
				start := 0
				for i, s := range stack {
					if s == ref {
						start = i
						break
					}
				}
				path := append(append([]string{}, stack[start:]...), ref)
				return &CycleError{Path: path}
			case white:
				if cerr := visit(ref); cerr != nil {
					return cerr
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[id] = black
		return nil
	}

	ids := make([]string, 0, len(manifests))
	for _, m := range manifests {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if colors[id] == white {
			if cerr := visit(id); cerr != nil {
				return nil, cerr
			}
		}
	}

	// Every manifest appearing in some other manifest's supersedes set is
	// superseded; the remainder is active.
	superseded := make(map[string]*manifest.Manifest)
	for _, m := range manifests {
		for _, ref := range m.Supersedes {
			superseded[ref] = byID[ref]
		}
	}

	chain := &Chain{Superseded: superseded}
	for _, m := range manifests {
		if _, gone := superseded[m.ID]; !gone {
			chain.Active = append(chain.Active, m)
		}
		if chain.File == "" {
			chain.File = m.TargetFile()
		}
	}
	sort.Slice(chain.Active, func(i, j int) bool {
		return chain.Active[i].Seq < chain.Active[j].Seq
	})

	logging.ChainDebug("resolved %s: %d active, %d superseded",
		chain.File, len(chain.Active), len(chain.Superseded))
	return chain, nil
}
