// Package extract turns source files into normalized artifact declarations.
// One Extractor per supported language, selected by file extension, so the
// rest of the engine stays language-agnostic.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// Extractor defines the contract for language-specific artifact extraction.
// Implementations perform a single-pass AST walk and return a fresh slice of
// declarations; they hold no mutable state across calls beyond the parser
// itself, so distinct files may be extracted concurrently with distinct
// Extractor instances.
type Extractor interface {
	// Extract parses source content into artifact declarations.
	// The path is used for locations and error messages only.
	Extract(path string, content []byte) ([]artifact.Declaration, error)

	// References counts call and instantiation expressions per referenced
	// name. Import-only mentions are not references. Used by behavioral
	// validation to check that tests actually exercise declared artifacts.
	References(path string, content []byte) (map[string]int, error)

	// SupportedExtensions returns the extensions this extractor handles,
	// leading dot included. The first entry is the canonical extension.
	SupportedExtensions() []string

	// Language returns a short lowercase language identifier ("py", "ts").
	Language() string
}

// ParseError reports a malformed source file. It is localized to one file
// and recoverable: callers decide whether it is fatal for their phase.
type ParseError struct {
	File    string
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Factory routes extraction requests to the registered Extractor for a
// file's extension.
type Factory struct {
	mu         sync.RWMutex
	extractors map[string]Extractor // normalized extension -> extractor
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{extractors: make(map[string]Extractor)}
}

// DefaultFactory returns a Factory with all built-in extractors registered.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register(NewPythonExtractor())
	f.Register(NewTypeScriptExtractor())
	logging.ExtractDebug("DefaultFactory: registered extensions %v", f.SupportedExtensions())
	return f
}

// Register adds an extractor for its supported extensions, replacing any
// previous registration.
func (f *Factory) Register(e Extractor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ext := range e.SupportedExtensions() {
		f.extractors[normalizeExtension(ext)] = e
	}
}

// ForFile returns the extractor for a path, or nil if the extension is
// unsupported.
func (f *Factory) ForFile(path string) Extractor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.extractors[normalizeExtension(filepath.Ext(path))]
}

// Supports reports whether a path has a registered extractor.
func (f *Factory) Supports(path string) bool {
	return f.ForFile(path) != nil
}

// Extract dispatches to the extractor matching the file extension.
func (f *Factory) Extract(path string, content []byte) ([]artifact.Declaration, error) {
	e := f.ForFile(path)
	if e == nil {
		return nil, fmt.Errorf("no extractor registered for extension %q", filepath.Ext(path))
	}
	return e.Extract(path, content)
}

// References dispatches reference counting to the matching extractor.
func (f *Factory) References(path string, content []byte) (map[string]int, error) {
	e := f.ForFile(path)
	if e == nil {
		return nil, fmt.Errorf("no extractor registered for extension %q", filepath.Ext(path))
	}
	return e.References(path, content)
}

// SupportedExtensions returns all registered extensions.
func (f *Factory) SupportedExtensions() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	exts := make([]string, 0, len(f.extractors))
	for ext := range f.extractors {
		exts = append(exts, ext)
	}
	return exts
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
