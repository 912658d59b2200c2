package chain

import (
	"errors"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

// ExpectedSet is the merged, deduplicated expectation for one file: the
// union of declared artifacts across active manifests, with the manifest
// each declaration came from.
type ExpectedSet struct {
	File      string
	Artifacts []artifact.Declaration
	Sources   map[artifact.Key]string // triple -> declaring manifest ID
}

// Merge folds a chain's active manifests, in sequence-number order, into
// one ExpectedSet. Overrides happen only through supersession, which
// Resolve has already applied by excluding superseded manifests; any
// remaining duplicate triple is a same-generation conflict unless the two
// declarations are structurally identical and policy permits redeclaration.
// All conflicts are collected and returned together, never just the first.
func (r *Resolver) Merge(chain *Chain) (*ExpectedSet, error) {
	set := &ExpectedSet{
		File:    chain.File,
		Sources: make(map[artifact.Key]string),
	}
	declared := make(map[artifact.Key]artifact.Declaration)
	var conflicts []error

	for _, m := range chain.Active {
		for _, decl := range m.DeclaredArtifacts() {
			key := decl.Key()
			prev, dup := declared[key]
			if !dup {
				declared[key] = decl
				set.Sources[key] = m.ID
				set.Artifacts = append(set.Artifacts, decl)
				continue
			}

			if prev.SameSignature(decl) {
				if r.policy.AllowIdenticalRedeclaration {
					continue // harmless redeclaration, first wins
				}
				conflicts = append(conflicts, &ConflictError{
					Kind:      ConflictDuplicate,
					Key:       key,
					FirstID:   set.Sources[key],
					SecondID:  m.ID,
					FirstSig:  prev.Signature(),
					SecondSig: decl.Signature(),
				})
				continue
			}

			conflicts = append(conflicts, &ConflictError{
				Kind:      ConflictSignature,
				Key:       key,
				FirstID:   set.Sources[key],
				SecondID:  m.ID,
				FirstSig:  prev.Signature(),
				SecondSig: decl.Signature(),
			})
		}
	}

	if len(conflicts) > 0 {
		return nil, errors.Join(conflicts...)
	}

	logging.ChainDebug("merged %s: %d expected artifacts from %d active manifests",
		set.File, len(set.Artifacts), len(chain.Active))
	return set, nil
}

// ResolveAndMerge is the common path: resolve the chain, then merge it.
func (r *Resolver) ResolveAndMerge(manifests []*manifest.Manifest) (*ExpectedSet, error) {
	chain, err := r.Resolve(manifests)
	if err != nil {
		return nil, err
	}
	return r.Merge(chain)
}

// Conflicts runs the same-generation conflict detection of Merge without
// failing the merge, returning every ConflictError found. The coherence
// validator's duplicate and signature checks reuse this.
func (r *Resolver) Conflicts(chain *Chain) []*ConflictError {
	declared := make(map[artifact.Key]artifact.Declaration)
	sources := make(map[artifact.Key]string)
	var out []*ConflictError

	for _, m := range chain.Active {
		for _, decl := range m.DeclaredArtifacts() {
			key := decl.Key()
			prev, dup := declared[key]
			if !dup {
				declared[key] = decl
				sources[key] = m.ID
				continue
			}
			kind := ConflictSignature
			if prev.SameSignature(decl) {
				if r.policy.AllowIdenticalRedeclaration {
					continue
				}
				kind = ConflictDuplicate
			}
			out = append(out, &ConflictError{
				Kind:      kind,
				Key:       key,
				FirstID:   sources[key],
				SecondID:  m.ID,
				FirstSig:  prev.Signature(),
				SecondSig: decl.Signature(),
			})
		}
	}
	return out
}
