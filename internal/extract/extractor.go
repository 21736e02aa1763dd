package extract

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/loupe-dev/loupe/internal/entity"
)

// File is everything an extractor reports for one source file: raw entities
// (pre-identity), import targets, and exported symbol names. Extractors must
// be deterministic for identical input bytes.
type File struct {
	Path     string
	Language string
	Entities []entity.Raw
	Imports  []string
	Exports  []string
}

// Extractor is one language backend.
type Extractor interface {
	// Language returns the language name (e.g. "go", "typescript")
	Language() string

	// Extensions returns file extensions this extractor handles
	Extensions() []string

	// Extract pulls entities, imports, and exports from source code
	Extract(path string, content []byte) (*File, error)
}

// Registry maps file extensions to language backends.
type Registry struct {
	extractors map[string]Extractor
	extToLang  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		extToLang:  make(map[string]string),
	}
}

// NewDefaultRegistry creates a registry with all bundled language backends.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoExtractor())
	r.Register(NewTypeScriptExtractor())
	r.Register(NewPythonExtractor())
	return r
}

func (r *Registry) Register(e Extractor) {
	lang := e.Language()
	r.extractors[lang] = e
	for _, ext := range e.Extensions() {
		r.extToLang[ext] = lang
	}
}

// ForFile returns the backend handling a file, by extension.
func (r *Registry) ForFile(path string) (Extractor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	e, ok := r.extractors[lang]
	return e, ok
}

// Extensions returns all supported file extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// normalize dedupes and sorts string lists so extractor output is stable
// regardless of traversal details.
func normalize(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func (f *File) finish() {
	f.Imports = normalize(f.Imports)
	f.Exports = normalize(f.Exports)
}
