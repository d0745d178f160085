// Package extract turns source files into model.Document values.
package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/fiscalia/internal/model"
)

// Extractor reads one kind of fiscal document file
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// Extensions returns the lowercase file extensions handled, with dot
	Extensions() []string

	// Extract parses the file at path
	Extract(path string) (*model.Document, error)
}

// Registry maps file extensions to extractors
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry with the built-in XML and JSON extractors
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(NewXMLExtractor())
	r.Register(NewJSONExtractor())
	return r
}

// Register adds an extractor for each of its extensions, replacing any
// extractor previously registered for the same extension
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Find returns the extractor for path's extension
func (r *Registry) Find(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Supports reports whether path has a registered extension
func (r *Registry) Supports(path string) bool {
	_, ok := r.Find(path)
	return ok
}

// Extensions returns the registered extensions, sorted
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches path to the matching extractor.
// Unregistered extensions wrap model.ErrUnsupportedFormat.
func (r *Registry) Extract(path string) (*model.Document, error) {
	e, ok := r.Find(path)
	if !ok {
		return nil, &model.ExtractionError{
			Source: path,
			Err:    fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, filepath.Ext(path)),
		}
	}
	return e.Extract(path)
}
