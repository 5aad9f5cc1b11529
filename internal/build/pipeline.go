// Package build turns the AST documents of a view root into Go source.
//
// A Pipeline scans the root, loads each template together with the layout
// and component documents it references, compiles it and writes the
// generated file. Templates are built concurrently; a failure in one is
// recorded as a diagnostic and does not stop the others. Layout documents,
// those rendering a body, are only compiled as part of the templates they
// wrap.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/tmplc/internal/astfile"
	"github.com/conneroisu/tmplc/internal/codegen"
	"github.com/conneroisu/tmplc/internal/compiler"
	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/logging"
	"github.com/conneroisu/tmplc/internal/registry"
	"github.com/conneroisu/tmplc/internal/scanner"
	"github.com/conneroisu/tmplc/internal/types"
)

// DefaultCacheSize bounds the generated source kept between runs.
const DefaultCacheSize = 32 << 20

// Options configure a Pipeline.
type Options struct {
	// Root is the view root holding the AST documents.
	Root string
	// Extension selects documents, including the dot.
	Extension string
	// Exclude holds base name patterns of documents to ignore.
	Exclude []string
	// OutputDir receives generated files. Empty writes next to each
	// document.
	OutputDir string
	// Package is the package clause of generated files.
	Package string
	// Suffix replaces the document extension in output file names.
	Suffix string
	// Layout is a document, relative to Root, wrapped around every page
	// that does not extend a layout itself.
	Layout string
	// Workers bounds concurrent builds. Zero or less means one per CPU.
	Workers int
	// MaxDepth is the compiler nesting limit. Zero keeps the default.
	MaxDepth int
	// DryRun compiles without writing files.
	DryRun bool
	// Logger receives progress. Nil discards.
	Logger logging.Logger
}

// BuildResult represents the result of building one template
type BuildResult struct {
	Template   *types.TemplateInfo
	OutputPath string
	Output     []byte
	Error      error
	Duration   time.Duration
	CacheHit   bool
	// Written is set when the output file was created or changed.
	Written bool
	// Skipped is set for layouts, which produce no file of their own.
	Skipped bool
}

// BuildCallback is called when a build completes
type BuildCallback func(result BuildResult)

// Report summarizes one run.
type Report struct {
	Results     []BuildResult
	Diagnostics []errors.Diagnostic
	Duration    time.Duration
}

// Failed reports whether any template failed.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Error != nil {
			return true
		}
	}
	for _, d := range r.Diagnostics {
		if d.Severity >= errors.ErrorSeverityError {
			return true
		}
	}
	return false
}

// Pipeline manages the build process for templates
type Pipeline struct {
	opts     Options
	registry *registry.TemplateRegistry
	scanner  *scanner.TemplateScanner
	loader   *astfile.Loader
	cache    *BuildCache
	metrics  *BuildMetrics
	logger   logging.Logger

	mu        sync.Mutex
	callbacks []BuildCallback
}

// NewPipeline creates a pipeline for the documents below opts.Root.
func NewPipeline(opts Options) *Pipeline {
	if opts.Package == "" {
		opts.Package = "views"
	}
	if opts.Suffix == "" {
		opts.Suffix = "_tmpl.go"
	}
	if opts.Extension == "" {
		opts.Extension = scanner.DefaultExtension
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	reg := registry.NewTemplateRegistry()
	sc := scanner.NewTemplateScanner(reg, opts.Root, scanner.Options{
		Extension: opts.Extension,
		Exclude:   opts.Exclude,
		Workers:   opts.Workers,
	})

	return &Pipeline{
		opts:     opts,
		registry: reg,
		scanner:  sc,
		loader:   astfile.NewLoader(sc.FS()),
		cache:    NewBuildCache(DefaultCacheSize, 0),
		metrics:  NewBuildMetrics(),
		logger:   logger.WithComponent("build"),
	}
}

// Registry returns the registry the pipeline scans into.
func (p *Pipeline) Registry() *registry.TemplateRegistry {
	return p.registry
}

// Scanner returns the scanner of the view root.
func (p *Pipeline) Scanner() *scanner.TemplateScanner {
	return p.scanner
}

// Metrics returns a snapshot of the accumulated build metrics.
func (p *Pipeline) Metrics() MetricsSnapshot {
	return p.metrics.GetSnapshot()
}

// AddCallback registers a function called after every template build.
func (p *Pipeline) AddCallback(callback BuildCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, callback)
}

// Run scans the view root and builds every template, or only targets when
// given. Targets are document paths relative to the root.
func (p *Pipeline) Run(ctx context.Context, targets ...string) (*Report, error) {
	perf := logging.StartOperation(p.logger, "build")
	start := time.Now()
	collector := errors.NewDiagnosticCollector()

	names, err := p.scan(ctx, targets, collector)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	results, err := p.buildAll(ctx, names)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	for _, res := range results {
		if res.Error != nil {
			collector.Add(errors.DiagnosticFrom(res.Template.Name, res.Template.FilePath, res.Error))
		}
	}

	report := &Report{
		Results:     results,
		Diagnostics: collector.Diagnostics(),
		Duration:    time.Since(start),
	}
	perf.End(ctx, "templates", len(results), "diagnostics", len(report.Diagnostics))
	return report, nil
}

// scan refreshes the registry and returns the names to build, sorted.
// Documents that cannot be decoded become diagnostics.
func (p *Pipeline) scan(ctx context.Context, targets []string, collector *errors.DiagnosticCollector) ([]string, error) {
	if len(targets) == 0 {
		if _, err := os.Stat(p.opts.Root); err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "cannot open view root "+p.opts.Root)
		}
		if err := p.scanner.ScanDirectory(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			addScanErrors(collector, err)
		}
		return p.registry.Names(), nil
	}

	var names []string
	for _, target := range targets {
		name, err := p.relative(target)
		if err != nil {
			collector.AddError(err)
			continue
		}
		if err := p.scanner.ScanFile(name); err != nil {
			collector.Add(errors.DiagnosticFrom(name, filepath.Join(p.opts.Root, filepath.FromSlash(name)), err))
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// addScanErrors splits a combined scan error into one diagnostic per file.
func addScanErrors(collector *errors.DiagnosticCollector, err error) {
	ctx := errors.GetErrorContext(err)
	if messages, ok := ctx["errors"].([]string); ok && ctx["error_count"] != nil {
		for _, msg := range messages {
			collector.Add(errors.Diagnostic{
				Code:      errors.ErrCodeInvalidDocument,
				Message:   msg,
				Severity:  errors.ErrorSeverityError,
				Timestamp: time.Now(),
			})
		}
		return
	}
	collector.Add(errors.DiagnosticFrom("", "", err))
}

// relative turns a target given on the command line into a document path
// relative to the root. Paths that already are relative to the root are
// accepted as is.
func (p *Pipeline) relative(target string) (string, error) {
	candidate := target
	if filepath.IsAbs(target) || strings.HasPrefix(filepath.Clean(target), filepath.Clean(p.opts.Root)+string(filepath.Separator)) {
		rootAbs, err := filepath.Abs(p.opts.Root)
		if err != nil {
			return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "cannot resolve view root")
		}
		targetAbs, err := filepath.Abs(target)
		if err != nil {
			return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "cannot resolve "+target)
		}
		rel, err := filepath.Rel(rootAbs, targetAbs)
		if err != nil {
			return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "cannot resolve "+target)
		}
		candidate = rel
	}
	return astfile.CleanPath(filepath.ToSlash(candidate))
}

func (p *Pipeline) buildAll(ctx context.Context, names []string) ([]BuildResult, error) {
	components := p.componentSet()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	clashes := p.collisions(p.registry.Names())

	results := make([]BuildResult, len(names))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, ok := p.registry.Get(name)
			switch {
			case !ok:
				results[i] = BuildResult{
					Template: &types.TemplateInfo{Name: name},
					Error: errors.NewIOError(errors.ErrCodeFileNotFound,
						"template is not registered", nil).WithFile(name),
				}
				return nil
			case clashes[name] != nil:
				results[i] = BuildResult{
					Template:   info,
					OutputPath: p.OutputPath(name),
					Error:      clashes[name],
				}
			default:
				results[i] = p.buildOne(gctx, info, components[name])
			}
			p.record(results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) workers() int {
	if p.opts.Workers > 0 {
		return p.opts.Workers
	}
	return runtime.NumCPU()
}

func (p *Pipeline) record(result BuildResult) {
	p.metrics.RecordBuild(result)

	p.mu.Lock()
	callbacks := append([]BuildCallback(nil), p.callbacks...)
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(result)
	}
}

// componentSet names every document imported by a use directive.
func (p *Pipeline) componentSet() map[string]bool {
	set := make(map[string]bool)
	for _, t := range p.registry.GetAll() {
		for _, u := range t.Uses {
			set[u] = true
		}
	}
	return set
}

// buildOne compiles a single template and writes its output.
func (p *Pipeline) buildOne(ctx context.Context, info *types.TemplateInfo, isComponent bool) BuildResult {
	start := time.Now()
	result := BuildResult{Template: info}
	if info.IsLayout {
		result.Skipped = true
		return result
	}

	logger := p.logger.With("template", info.Name)
	result.OutputPath = p.OutputPath(info.Name)

	layout := ""
	if p.opts.Layout != "" && info.Extends == "" && !isComponent {
		layout = p.opts.Layout
	}

	key := p.fingerprint(info, layout)
	if cached, ok := p.cache.Get(key); ok {
		result.CacheHit = true
		result.Output = cached
	} else {
		src, err := p.generate(info, layout, logger)
		if err != nil {
			result.Error = errors.EnhanceError(err, info.Name, info.FilePath)
			result.Duration = time.Since(start)
			logger.Debug(ctx, "Template failed", "error", err.Error())
			return result
		}
		p.cache.Set(key, src)
		result.Output = src
	}

	if !p.opts.DryRun {
		written, err := writeIfChanged(result.OutputPath, result.Output)
		if err != nil {
			result.Error = errors.EnhanceError(err, info.Name, info.FilePath)
		}
		result.Written = written
	}

	result.Duration = time.Since(start)
	logger.Debug(ctx, "Template built",
		"output", result.OutputPath,
		"cache_hit", result.CacheHit,
		"written", result.Written,
	)
	return result
}

func (p *Pipeline) generate(info *types.TemplateInfo, layout string, logger logging.Logger) ([]byte, error) {
	tree, err := p.loader.Load(info.Name)
	if err != nil {
		return nil, err
	}

	opts := []compiler.Option{
		compiler.WithFile(info.FilePath),
		compiler.WithLogger(logger),
	}
	if p.opts.MaxDepth > 0 {
		opts = append(opts, compiler.WithMaxDepth(p.opts.MaxDepth))
	}
	if layout != "" {
		layoutTree, err := p.loader.Load(layout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, compiler.WithDefaultLayout(layout, layoutTree))
	}

	prog, err := compiler.Compile(tree, opts...)
	if err != nil {
		return nil, err
	}

	return codegen.Source(prog, codegen.Options{
		Package:  p.opts.Package,
		TypeName: info.TypeName,
		Source:   info.Name,
	})
}

// fingerprint hashes everything the generated source depends on: the
// document, every document it reaches and the generation options.
func (p *Pipeline) fingerprint(info *types.TemplateInfo, layout string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%s\x00", p.opts.Package, info.TypeName,
		layout, p.opts.MaxDepth, info.Name)

	seen := map[string]bool{}
	queue := []string{info.Name}
	if layout != "" {
		queue = append(queue, layout)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		dep, ok := p.registry.Get(name)
		if !ok {
			// Unscanned dependencies are read by the loader; key on the
			// loader's view instead.
			fmt.Fprintf(h, "%s=?%s\x00", name, strings.Join(p.loader.Dependencies(name), ","))
			continue
		}
		fmt.Fprintf(h, "%s=%s\x00", name, dep.Hash)
		queue = append(queue, dep.Dependencies...)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// OutputPath returns where the generated file for name is written.
func (p *Pipeline) OutputPath(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if p.opts.OutputDir == "" {
		return filepath.Join(p.opts.Root, filepath.FromSlash(stem)+p.opts.Suffix)
	}
	return filepath.Join(p.opts.OutputDir, strings.ReplaceAll(stem, "/", "_")+p.opts.Suffix)
}

// collisions finds templates whose generated type would clash with another
// template's in the same output directory. The first name in sorted order
// keeps the type.
func (p *Pipeline) collisions(names []string) map[string]error {
	owners := make(map[string]string)
	clashes := make(map[string]error)
	for _, name := range names {
		info, ok := p.registry.Get(name)
		if !ok || info.IsLayout {
			continue
		}
		key := filepath.Dir(p.OutputPath(name)) + "\x00" + info.TypeName
		if owner, taken := owners[key]; taken {
			clashes[name] = errors.NewConfigError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("type %s is also generated for %s; rename one of the documents",
					info.TypeName, owner)).
				WithTemplate(name).
				WithFile(info.FilePath)
			continue
		}
		owners[key] = name
	}
	return clashes
}

// Invalidate drops cached state for name and returns it together with every
// registered template depending on it, sorted. Use it before rebuilding
// after a change.
func (p *Pipeline) Invalidate(name string) []string {
	clean, err := astfile.CleanPath(name)
	if err != nil {
		return nil
	}

	affected := []string{clean}
	for _, dep := range p.registry.GetDependents(clean) {
		affected = append(affected, dep.Name)
	}
	if p.opts.Layout == clean {
		for _, t := range p.registry.GetAll() {
			if t.Extends == "" && !t.IsLayout {
				affected = append(affected, t.Name)
			}
		}
	}

	p.loader.Forget(clean)
	for _, a := range affected {
		p.loader.Forget(a)
	}

	sort.Strings(affected)
	out := affected[:0]
	for _, a := range affected {
		if len(out) == 0 || out[len(out)-1] != a {
			out = append(out, a)
		}
	}
	return out
}

// Remove deletes the generated file of a document that no longer exists
// and forgets it.
func (p *Pipeline) Remove(name string) error {
	clean, err := astfile.CleanPath(name)
	if err != nil {
		return err
	}
	p.loader.Forget(clean)
	p.registry.Remove(clean)

	if p.opts.DryRun {
		return nil
	}
	out := p.OutputPath(clean)
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot remove "+out)
	}
	return nil
}

// writeIfChanged writes data to name unless the file already holds it.
func writeIfChanged(name string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(name); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return false, errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot create output directory")
	}

	tmp := name + ".tmp" + strconv.Itoa(os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot write "+name)
	}
	if err := os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return false, errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot write "+name)
	}
	return true, nil
}
