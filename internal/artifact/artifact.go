// Package artifact defines the normalized code artifact model shared by
// extraction, chain resolution, validation, and graph construction.
package artifact

import (
	"fmt"
	"strings"
)

// Kind classifies a declared or extracted artifact.
type Kind string

const (
	KindClass     Kind = "class"
	KindFunction  Kind = "function"
	KindAttribute Kind = "attribute"
	KindParameter Kind = "parameter"
)

// Visibility is derived from naming convention, not declared separately.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Param is one ordered function parameter with an optional declared type.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Location pins an artifact to a source position.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
}

// Declaration represents one code artifact: a class, function/method,
// attribute, or parameter. Instances are produced fresh by each extraction
// or manifest parse and are never mutated afterwards.
type Declaration struct {
	Kind       Kind       `json:"kind"`
	Name       string     `json:"name"`
	Owner      string     `json:"owner,omitempty"` // containing class, empty for module scope
	Params     []Param    `json:"params,omitempty"`
	Returns    string     `json:"returns,omitempty"`
	Visibility Visibility `json:"visibility"`
	Bases      []string   `json:"bases,omitempty"` // parent classes, classes only
	Loc        Location   `json:"loc"`
}

// Key identifies an artifact by its (kind, owner, name) triple. Two
// declarations with the same Key describe the same artifact.
type Key struct {
	Kind  Kind
	Owner string
	Name  string
}

// Key returns the identity triple of the declaration.
func (d Declaration) Key() Key {
	return Key{Kind: d.Kind, Owner: d.Owner, Name: d.Name}
}

// String renders the key for error messages, e.g. "function Foo.bar".
func (k Key) String() string {
	if k.Owner != "" {
		return fmt.Sprintf("%s %s.%s", k.Kind, k.Owner, k.Name)
	}
	return fmt.Sprintf("%s %s", k.Kind, k.Name)
}

// MarshalText encodes the key as "kind|owner|name" so it can serve as a
// JSON map key (cache entries serialize Source maps keyed by triple).
func (k Key) MarshalText() ([]byte, error) {
	return []byte(string(k.Kind) + "|" + k.Owner + "|" + k.Name), nil
}

// UnmarshalText decodes the "kind|owner|name" form.
func (k *Key) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), "|", 3)
	if len(parts) != 3 {
		return fmt.Errorf("malformed artifact key %q", text)
	}
	k.Kind = Kind(parts[0])
	k.Owner = parts[1]
	k.Name = parts[2]
	return nil
}

// Signature renders the structural signature used in mismatch diffs,
// e.g. "authenticate(username:str, password:str) -> bool".
func (d Declaration) Signature() string {
	if d.Kind != KindFunction {
		return d.Name
	}
	parts := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		if p.Type != "" {
			parts = append(parts, p.Name+":"+p.Type)
		} else {
			parts = append(parts, p.Name)
		}
	}
	sig := d.Name + "(" + strings.Join(parts, ", ") + ")"
	if d.Returns != "" {
		sig += " -> " + d.Returns
	}
	return sig
}

// SameSignature reports whether two declarations agree on parameters and
// return type. Used to distinguish harmless redeclarations from conflicts.
func (d Declaration) SameSignature(other Declaration) bool {
	if d.Returns != other.Returns {
		return false
	}
	if len(d.Params) != len(other.Params) {
		return false
	}
	for i := range d.Params {
		if d.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// IsPrivate reports whether the declaration is private by naming convention.
func (d Declaration) IsPrivate() bool {
	return d.Visibility == VisibilityPrivate
}

// VisibilityOf derives visibility from a leading underscore. Dunder names
// (e.g. __init__) are treated as public API surface of their class.
func VisibilityOf(name string) Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return VisibilityPublic // dunder methods are part of the class contract
	}
	if strings.HasPrefix(name, "_") {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// ParseParam splits a manifest "name:type" argument entry into a Param.
// A bare name (no colon) yields an untyped parameter.
func ParseParam(arg string) Param {
	if idx := strings.Index(arg, ":"); idx >= 0 {
		return Param{
			Name: strings.TrimSpace(arg[:idx]),
			Type: strings.TrimSpace(arg[idx+1:]),
		}
	}
	return Param{Name: strings.TrimSpace(arg)}
}
