package chain

import (
	"fmt"
	"strings"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
)

// CycleError reports a supersession cycle. The path lists the manifest IDs
// along the cycle, ending where it began.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("supersession cycle: %s", strings.Join(e.Path, " -> "))
}

// DanglingRefError reports a supersedes reference to a manifest that is not
// present in the loaded set.
type DanglingRefError struct {
	From string // manifest holding the reference
	Ref  string // missing target
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("manifest %s supersedes unknown manifest %s", e.From, e.Ref)
}

// ConflictKind distinguishes the two same-generation conflict shapes.
type ConflictKind string

const (
	// ConflictDuplicate: the same artifact declared by two active,
	// non-mutually-superseding manifests (and redeclaration is disallowed
	// or the declarations are not identical in kind).
	ConflictDuplicate ConflictKind = "duplicate"
	// ConflictSignature: same artifact, differing signatures.
	ConflictSignature ConflictKind = "signature_conflict"
)

// ConflictError reports an ambiguous double declaration. Both declaration
// sites are always named; ambiguity is never resolved by last-write-wins.
type ConflictError struct {
	Kind      ConflictKind
	Key       artifact.Key
	FirstID   string // earlier manifest (lower sequence number)
	SecondID  string
	FirstSig  string
	SecondSig string
}

func (e *ConflictError) Error() string {
	if e.Kind == ConflictSignature {
		return fmt.Sprintf("%s declared by %s as %q and by %s as %q with no supersedes relationship",
			e.Key, e.FirstID, e.FirstSig, e.SecondID, e.SecondSig)
	}
	return fmt.Sprintf("%s declared by both %s and %s with no supersedes relationship",
		e.Key, e.FirstID, e.SecondID)
}
