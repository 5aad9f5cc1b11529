package astfile

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/errors"
)

// Loader decodes documents from a view root and resolves the documents they
// reference. Decoded trees are cached, so a layout shared by many templates
// is read once. A Loader is safe for concurrent use.
type Loader struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*ast.Template
	deps  map[string][]string
}

// NewLoader creates a loader reading from fsys, usually os.DirFS of the
// view root.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{
		fsys:  fsys,
		cache: make(map[string]*ast.Template),
		deps:  make(map[string][]string),
	}
}

// Load decodes the document at name, a slash separated path relative to the
// view root, together with every document it references.
func (l *Loader) Load(name string) (*ast.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(name, nil)
}

func (l *Loader) load(name string, stack []string) (*ast.Template, error) {
	clean, err := CleanPath(name)
	if err != nil {
		return nil, err
	}

	for _, open := range stack {
		if open == clean {
			return nil, errors.NewDocumentError(errors.ErrCodeDocumentCycle,
				fmt.Sprintf("document cycle: %s -> %s", strings.Join(stack, " -> "), clean), nil).
				WithFile(clean)
		}
	}

	if t, ok := l.cache[clean]; ok {
		return t, nil
	}

	data, err := fs.ReadFile(l.fsys, clean)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot read AST document %s", clean), err).WithFile(clean)
	}

	stack = append(stack, clean)
	var refs []string
	resolver := ResolverFunc(func(ref string) (ast.Node, error) {
		t, err := l.load(ref, stack)
		if err != nil {
			return nil, err
		}
		if c, err := CleanPath(ref); err == nil {
			refs = append(refs, c)
		}
		return t, nil
	})

	t, err := Decode(bytes.NewReader(data), clean, resolver)
	if err != nil {
		return nil, err
	}

	l.cache[clean] = t
	l.deps[clean] = uniqueSorted(refs)
	return t, nil
}

// Dependencies returns the documents name referenced directly, sorted. The
// document must have been loaded.
func (l *Loader) Dependencies(name string) []string {
	clean, err := CleanPath(name)
	if err != nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.deps[clean]...)
}

// Dependents returns every loaded document that references name, directly
// or through other documents, sorted.
func (l *Loader) Dependents(name string) []string {
	clean, err := CleanPath(name)
	if err != nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seen := map[string]bool{clean: true}
	queue := []string{clean}
	var out []string
	for len(queue) > 0 {
		target := queue[0]
		queue = queue[1:]
		for doc, refs := range l.deps {
			if seen[doc] {
				continue
			}
			for _, r := range refs {
				if r == target {
					seen[doc] = true
					out = append(out, doc)
					queue = append(queue, doc)
					break
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// Forget drops name and every document depending on it from the cache so
// the next Load reads them again.
func (l *Loader) Forget(name string) {
	stale := append(l.Dependents(name), name)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range stale {
		if clean, err := CleanPath(s); err == nil {
			delete(l.cache, clean)
			delete(l.deps, clean)
		}
	}
}

// CleanPath normalizes a document path relative to the view root and
// rejects paths that leave it.
func CleanPath(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./"))
	if !fs.ValidPath(clean) || clean == "." {
		return "", errors.NewDocumentError(errors.ErrCodeInvalidDocument,
			fmt.Sprintf("invalid document path %q: must be relative to the view root", name), nil)
	}
	return clean, nil
}

func uniqueSorted(s []string) []string {
	sort.Strings(s)
	var out []string
	for _, v := range s {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}

// aliasFromPath derives a component alias from a document path, so
// components/user_card.yaml becomes UserCard.
func aliasFromPath(p string) string {
	base := path.Base(p)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	caser := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}) {
		sb.WriteString(caser.String(part))
	}
	return sb.String()
}
