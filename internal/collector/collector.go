// Package collector extracts per-file call graph fragments from C and C++
// sources with tree-sitter.
package collector

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Function is one function seen in a translation unit.
type Function struct {
	Name          string
	HasBody       bool
	Calls         []string
	NumStatements int
	Line          int
}

// Unit is everything collected from one source file.
type Unit struct {
	Path      string
	Language  string
	Functions []Function
}

// Frontend collects the functions of one language.
type Frontend interface {
	// Language returns the language name (e.g., "c", "cpp")
	Language() string

	// Extensions returns file extensions this frontend handles
	Extensions() []string

	Collect(ctx context.Context, filename string, content []byte) (*Unit, error)
}

// Registry holds the frontends by language and extension.
type Registry struct {
	frontends map[string]Frontend
	extToLang map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		frontends: make(map[string]Frontend),
		extToLang: make(map[string]string),
	}
}

// NewDefaultRegistry knows C and C++.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewCFrontend())
	r.Register(NewCPPFrontend())
	return r
}

func (r *Registry) Register(f Frontend) {
	lang := f.Language()
	r.frontends[lang] = f
	for _, ext := range f.Extensions() {
		r.extToLang[ext] = lang
	}
}

// ForFile returns the frontend for a file extension, ignoring case.
func (r *Registry) ForFile(filename string) (Frontend, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	f, ok := r.frontends[lang]
	return f, ok
}

func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// CollectFile reads and collects path. Unsupported files yield nil.
func (r *Registry) CollectFile(ctx context.Context, path string) (*Unit, error) {
	f, ok := r.ForFile(path)
	if !ok {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	unit, err := f.Collect(ctx, path, content)
	if err != nil {
		return nil, err
	}
	unit.Path = path
	return unit, nil
}
