// Package manifest loads and indexes the declarative task manifests that
// describe what each source file is supposed to contain.
package manifest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
)

// TaskType classifies the unit of work a manifest describes.
type TaskType string

const (
	TaskCreate   TaskType = "create"
	TaskEdit     TaskType = "edit"
	TaskRefactor TaskType = "refactor"
	TaskSnapshot TaskType = "snapshot"
)

// ExpectedArtifacts names the target file and the artifacts it must contain.
type ExpectedArtifacts struct {
	File     string                 `json:"file"`
	Contains []artifact.Declaration `json:"contains"`
}

// Manifest is one immutable unit of declared work. Identity is the
// (file name, sequence number) pair; sequence numbers are monotonically
// increasing and globally unique across a manifest directory.
type Manifest struct {
	ID                string   // e.g. "task-003-add-login"
	Seq               int      // parsed from the task-NNN prefix
	Path              string   // manifest file path on disk
	Goal              string
	TaskType          TaskType
	Supersedes        []string // IDs of manifests this one replaces
	CreatableFiles    []string
	EditableFiles     []string
	ReadonlyFiles     []string
	Expected          ExpectedArtifacts
	ValidationCommand []string
}

// record is the on-disk manifest shape. Structural schema conformance is an
// external collaborator's job; parsing here only maps fields and normalizes
// artifact entries, but still defends against dangling/cyclic supersedes
// downstream.
type record struct {
	Version           string        `json:"version" yaml:"version"`
	Goal              string        `json:"goal" yaml:"goal"`
	TaskType          string        `json:"taskType" yaml:"taskType"`
	Supersedes        []string      `json:"supersedes" yaml:"supersedes"`
	CreatableFiles    []string      `json:"creatableFiles" yaml:"creatableFiles"`
	EditableFiles     []string      `json:"editableFiles" yaml:"editableFiles"`
	ReadonlyFiles     []string      `json:"readonlyFiles" yaml:"readonlyFiles"`
	ExpectedArtifacts artifactsRec  `json:"expectedArtifacts" yaml:"expectedArtifacts"`
	ValidationCommand []string      `json:"validationCommand" yaml:"validationCommand"`
}

type artifactsRec struct {
	File     string        `json:"file" yaml:"file"`
	Contains []artifactRec `json:"contains" yaml:"contains"`
}

type artifactRec struct {
	Type    string   `json:"type" yaml:"type"`
	Name    string   `json:"name" yaml:"name"`
	Class   string   `json:"class,omitempty" yaml:"class,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Returns string   `json:"returns,omitempty" yaml:"returns,omitempty"`
}

var seqPattern = regexp.MustCompile(`^task-(\d+)`)

// ParseID extracts the sequence number from a manifest ID or file name.
func ParseID(id string) (int, error) {
	m := seqPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, fmt.Errorf("manifest id %q does not start with task-NNN", id)
	}
	return strconv.Atoi(m[1])
}

// NormalizeID strips manifest file extensions so supersedes references and
// file names compare equal ("task-001.manifest.json" -> "task-001").
func NormalizeID(id string) string {
	id = strings.TrimSuffix(id, ".json")
	id = strings.TrimSuffix(id, ".yaml")
	id = strings.TrimSuffix(id, ".yml")
	id = strings.TrimSuffix(id, ".manifest")
	return id
}

// Parse decodes a manifest record. Format is chosen by the file extension:
// JSON for .json, YAML for .yaml/.yml.
func Parse(path, name string, data []byte) (*Manifest, error) {
	var rec record
	var err error
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		err = yaml.Unmarshal(data, &rec)
	} else {
		err = json.Unmarshal(data, &rec)
	}
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", name, err)
	}

	id := NormalizeID(name)
	seq, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		ID:                id,
		Seq:               seq,
		Path:              path,
		Goal:              rec.Goal,
		TaskType:          TaskType(strings.ToLower(rec.TaskType)),
		CreatableFiles:    rec.CreatableFiles,
		EditableFiles:     rec.EditableFiles,
		ReadonlyFiles:     rec.ReadonlyFiles,
		ValidationCommand: rec.ValidationCommand,
	}
	for _, s := range rec.Supersedes {
		m.Supersedes = append(m.Supersedes, NormalizeID(s))
	}

	m.Expected.File = rec.ExpectedArtifacts.File
	for _, a := range rec.ExpectedArtifacts.Contains {
		decl, err := a.toDeclaration(rec.ExpectedArtifacts.File)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", id, err)
		}
		m.Expected.Contains = append(m.Expected.Contains, decl)
	}
	return m, nil
}

func (a artifactRec) toDeclaration(file string) (artifact.Declaration, error) {
	var kind artifact.Kind
	owner := a.Class
	switch strings.ToLower(a.Type) {
	case "class":
		kind = artifact.KindClass
	case "function":
		kind = artifact.KindFunction
	case "method":
		// Methods are functions with an owning class.
		kind = artifact.KindFunction
		if owner == "" {
			return artifact.Declaration{}, fmt.Errorf("method %q missing class", a.Name)
		}
	case "attribute":
		kind = artifact.KindAttribute
	case "parameter":
		kind = artifact.KindParameter
	default:
		return artifact.Declaration{}, fmt.Errorf("unknown artifact type %q for %q", a.Type, a.Name)
	}

	decl := artifact.Declaration{
		Kind:       kind,
		Name:       a.Name,
		Owner:      owner,
		Returns:    a.Returns,
		Visibility: artifact.VisibilityOf(a.Name),
		Loc:        artifact.Location{File: file},
	}
	for _, arg := range a.Args {
		decl.Params = append(decl.Params, artifact.ParseParam(arg))
	}
	return decl, nil
}

// DeclaredArtifacts returns the artifacts this manifest expects in its
// target file.
func (m *Manifest) DeclaredArtifacts() []artifact.Declaration {
	return m.Expected.Contains
}

// TargetFile returns the file this manifest's expectations apply to.
func (m *Manifest) TargetFile() string {
	return m.Expected.File
}

// IsCreatable reports whether the manifest declares path as newly created.
func (m *Manifest) IsCreatable(path string) bool {
	return containsPath(m.CreatableFiles, path)
}

// IsEditable reports whether the manifest declares path as edited.
func (m *Manifest) IsEditable(path string) bool {
	return containsPath(m.EditableFiles, path)
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
