// Package scanner discovers AST documents below a view root.
//
// The scanner walks the root for files with the configured extension,
// decodes each document on its own (referenced layouts and components are
// recorded, not loaded) and registers what it learns: whether the document
// is a layout, which layout it extends, which sections it declares or
// renders and which components it imports. A CRC32 checksum of the content
// drives change detection, so rescanning an unchanged tree registers
// nothing new.
package scanner

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/astfile"
	"github.com/conneroisu/tmplc/internal/codegen"
	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/registry"
	"github.com/conneroisu/tmplc/internal/types"
)

// DefaultExtension is used when Options.Extension is empty.
const DefaultExtension = ".yaml"

// Options tune which files are scanned.
type Options struct {
	// Extension selects documents by suffix, including the dot.
	Extension string
	// Exclude holds filepath.Match patterns tested against both the base
	// name and the path relative to the root.
	Exclude []string
	// Workers bounds concurrent decoding. Zero or less means unbounded.
	Workers int
}

// TemplateScanner discovers and analyzes AST documents.
type TemplateScanner struct {
	// registry receives discovered templates and broadcasts change events
	registry *registry.TemplateRegistry
	root     string
	fsys     fs.FS
	opts     Options
}

// NewTemplateScanner creates a scanner for the documents below root.
func NewTemplateScanner(reg *registry.TemplateRegistry, root string, opts Options) *TemplateScanner {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	return &TemplateScanner{
		registry: reg,
		root:     root,
		fsys:     os.DirFS(root),
		opts:     opts,
	}
}

// GetRegistry returns the template registry
func (s *TemplateScanner) GetRegistry() *registry.TemplateRegistry {
	return s.registry
}

// Root returns the view root.
func (s *TemplateScanner) Root() string {
	return s.root
}

// FS returns the file system rooted at the view root.
func (s *TemplateScanner) FS() fs.FS {
	return s.fsys
}

// Matches reports whether name, relative to the root, is a document the
// scanner would pick up.
func (s *TemplateScanner) Matches(name string) bool {
	name = filepath.ToSlash(name)
	if !strings.HasSuffix(name, s.opts.Extension) {
		return false
	}
	base := path.Base(name)
	for _, pattern := range s.opts.Exclude {
		if ok, _ := path.Match(pattern, base); ok {
			return false
		}
		if ok, _ := path.Match(pattern, name); ok {
			return false
		}
	}
	return true
}

// ScanDirectory scans the whole view root. Documents that fail to decode
// are reported in the returned error while the rest are still registered.
// Registered templates whose files disappeared are removed.
func (s *TemplateScanner) ScanDirectory(ctx context.Context) error {
	var files []string
	err := fs.WalkDir(s.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if s.Matches(name) {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot walk view root %s", s.root))
	}

	found := make(map[string]bool, len(files))
	for _, f := range files {
		found[f] = true
	}
	for _, name := range s.registry.Names() {
		if !found[name] {
			s.registry.Remove(name)
		}
	}

	return s.scanFiles(ctx, files)
}

func (s *TemplateScanner) scanFiles(ctx context.Context, files []string) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.opts.Workers > 0 {
		g.SetLimit(s.opts.Workers)
	}

	errs := make([]error, len(files))
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs[i] = s.ScanFile(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return errors.CombineErrors(errs...)
}

// ScanFile scans a single document, named relative to the root. A
// document that no longer exists is removed from the registry.
func (s *TemplateScanner) ScanFile(name string) error {
	clean, err := astfile.CleanPath(name)
	if err != nil {
		return err
	}

	data, err := fs.ReadFile(s.fsys, clean)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			s.registry.Remove(clean)
		}
		return errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot read AST document %s", clean), err).WithFile(clean)
	}

	info, err := fs.Stat(s.fsys, clean)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot stat AST document %s", clean), err).WithFile(clean)
	}

	template, err := Analyze(clean, data)
	if err != nil {
		return err
	}
	template.FilePath = filepath.Join(s.root, filepath.FromSlash(clean))
	template.LastMod = info.ModTime()

	s.registry.Register(template)
	return nil
}

// Analyze decodes one document without loading the documents it references
// and summarizes it.
func Analyze(name string, data []byte) (*types.TemplateInfo, error) {
	var refs []string
	resolver := astfile.ResolverFunc(func(ref string) (ast.Node, error) {
		clean, err := astfile.CleanPath(ref)
		if err != nil {
			return nil, err
		}
		refs = append(refs, clean)
		return &ast.Template{}, nil
	})

	root, err := astfile.Decode(bytes.NewReader(data), name, resolver)
	if err != nil {
		return nil, err
	}

	template := &types.TemplateInfo{
		Name:     name,
		TypeName: codegen.TypeName(name),
		Hash:     fmt.Sprintf("%08x", crc32.ChecksumIEEE(data)),
	}

	var sections, renders, uses []string
	ast.Inspect(root, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.RenderBody:
			template.IsLayout = true
		case *ast.Extends:
			if template.Extends == "" {
				template.Extends, _ = astfile.CleanPath(n.Path)
			}
		case *ast.SectionDirective:
			sections = append(sections, n.Name)
		case *ast.SectionBlock:
			sections = append(sections, n.Name)
		case *ast.Render:
			renders = append(renders, n.Name)
		case *ast.Use:
			if clean, err := astfile.CleanPath(n.Path); err == nil {
				uses = append(uses, clean)
			}
		}
		return true
	})

	template.Sections = uniqueSorted(sections)
	template.Renders = uniqueSorted(renders)
	template.Uses = uniqueSorted(uses)
	template.Dependencies = uniqueSorted(refs)
	return template, nil
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
