package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// Store holds all manifests loaded from a directory, indexed by ID and by
// target file. Loading happens once up front; resolution and graph
// construction then run as pure in-memory computations.
type Store struct {
	dir    string
	byID   map[string]*Manifest
	byFile map[string][]*Manifest
	order  []*Manifest // ascending sequence number
}

// LoadDir reads every *.manifest.json / *.manifest.yaml under dir
// (non-recursive) into a Store. A duplicate sequence number is a load
// error: sequence numbers are globally unique by construction.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest dir: %w", err)
	}

	s := &Store{
		dir:    dir,
		byID:   make(map[string]*Manifest),
		byFile: make(map[string][]*Manifest),
	}
	seqSeen := make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() || !isManifestFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		m, err := Parse(path, entry.Name(), data)
		if err != nil {
			return nil, err
		}
		if prev, dup := seqSeen[m.Seq]; dup {
			return nil, fmt.Errorf("duplicate sequence number %d: %s and %s", m.Seq, prev, m.ID)
		}
		seqSeen[m.Seq] = m.ID

		s.byID[m.ID] = m
		if m.Expected.File != "" {
			s.byFile[m.Expected.File] = append(s.byFile[m.Expected.File], m)
		}
		s.order = append(s.order, m)
	}

	sort.Slice(s.order, func(i, j int) bool { return s.order[i].Seq < s.order[j].Seq })
	for _, ms := range s.byFile {
		sort.Slice(ms, func(i, j int) bool { return ms[i].Seq < ms[j].Seq })
	}

	logging.Manifest("loaded %d manifests from %s (%d target files)",
		len(s.order), dir, len(s.byFile))
	return s, nil
}

func isManifestFile(name string) bool {
	return strings.HasSuffix(name, ".manifest.json") ||
		strings.HasSuffix(name, ".manifest.yaml") ||
		strings.HasSuffix(name, ".manifest.yml")
}

// Dir returns the directory this store was loaded from.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the manifest with the given (normalized) ID.
func (s *Store) Get(id string) (*Manifest, bool) {
	m, ok := s.byID[NormalizeID(id)]
	return m, ok
}

// ByFile returns all manifests whose expectations target path, ascending by
// sequence number.
func (s *Store) ByFile(path string) []*Manifest {
	return s.byFile[path]
}

// Files returns every target file with at least one manifest, sorted.
func (s *Store) Files() []string {
	files := make([]string, 0, len(s.byFile))
	for f := range s.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// All returns every manifest ascending by sequence number.
func (s *Store) All() []*Manifest {
	return s.order
}

// Len returns the number of loaded manifests.
func (s *Store) Len() int {
	return len(s.order)
}
