package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/testutils"
)

func newPipeline(t *testing.T, files map[string]string, opts Options) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	testutils.WriteFiles(t, root, files)
	opts.Root = root
	return NewPipeline(opts), root
}

func resultByName(t *testing.T, report *Report, name string) BuildResult {
	t.Helper()
	for _, res := range report.Results {
		if res.Template != nil && res.Template.Name == name {
			return res
		}
	}
	t.Fatalf("no result for %s", name)
	return BuildResult{}
}

func TestPipelineRun(t *testing.T) {
	p, root := newPipeline(t, testutils.SiteFiles(), Options{Workers: 2})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.False(t, report.Failed())
	assert.Empty(t, report.Diagnostics)

	layout := resultByName(t, report, "layouts/base.yaml")
	assert.True(t, layout.Skipped)
	assert.NoFileExists(t, filepath.Join(root, "layouts", "base_tmpl.go"))

	home := resultByName(t, report, "pages/home.yaml")
	require.NoError(t, home.Error)
	assert.True(t, home.Written)
	assert.False(t, home.CacheHit)
	assert.Equal(t, filepath.Join(root, "pages", "home_tmpl.go"), home.OutputPath)

	src, err := os.ReadFile(home.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, home.Output, src)
	assert.Contains(t, string(src), "// Code generated by tmplc. DO NOT EDIT.")
	assert.Contains(t, string(src), "package views")
	assert.Contains(t, string(src), "func (t *Home) Render(w io.Writer) error")
	assert.Contains(t, string(src), "<html><title>")
	assert.Contains(t, string(src), "<div class=card>")

	card := resultByName(t, report, "components/card.yaml")
	require.NoError(t, card.Error)
	assert.FileExists(t, filepath.Join(root, "components", "card_tmpl.go"))

	snap := p.Metrics()
	assert.Equal(t, int64(2), snap.TotalBuilds)
	assert.Equal(t, int64(2), snap.SuccessfulBuilds)
	assert.Equal(t, int64(1), snap.SkippedBuilds)
	assert.Equal(t, int64(2), snap.FilesWritten)
}

func TestPipelineSecondRunUsesCache(t *testing.T) {
	p, _ := newPipeline(t, testutils.SiteFiles(), Options{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	for _, res := range report.Results {
		if res.Skipped {
			continue
		}
		assert.True(t, res.CacheHit, res.Template.Name)
		assert.False(t, res.Written, "%s must not be rewritten", res.Template.Name)
	}
}

func TestPipelineRebuildsDependents(t *testing.T) {
	p, root := newPipeline(t, testutils.SiteFiles(), Options{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	testutils.WriteFiles(t, root, map[string]string{
		"components/card.yaml": `
- kind: text
  text: "<section>"
- kind: child_content
- kind: text
  text: "</section>"
`,
	})

	affected := p.Invalidate("components/card.yaml")
	assert.Equal(t, []string{"components/card.yaml", "pages/home.yaml"}, affected)

	report, err := p.Run(context.Background(), affected...)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	home := resultByName(t, report, "pages/home.yaml")
	require.NoError(t, home.Error)
	assert.False(t, home.CacheHit)
	assert.True(t, home.Written)
	assert.Contains(t, string(home.Output), "<section>")
	assert.NotContains(t, string(home.Output), "<div class=card>")
}

func TestPipelineInvalidateLayout(t *testing.T) {
	files := testutils.SiteFiles()
	files["pages/about.yaml"] = testutils.AboutDoc
	p, _ := newPipeline(t, files, Options{Layout: "layouts/base.yaml"})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	affected := p.Invalidate("layouts/base.yaml")
	assert.Equal(t, []string{
		"components/card.yaml",
		"layouts/base.yaml",
		"pages/about.yaml",
		"pages/home.yaml",
	}, affected)
}

func TestPipelineDefaultLayout(t *testing.T) {
	files := testutils.SiteFiles()
	files["pages/about.yaml"] = testutils.AboutDoc
	p, _ := newPipeline(t, files, Options{Layout: "layouts/base.yaml", DryRun: true})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Failed())

	about := resultByName(t, report, "pages/about.yaml")
	assert.Contains(t, string(about.Output), `const AboutLayout = "layouts/base.yaml"`)
	assert.Contains(t, string(about.Output), "<p>about</p>")

	// Components are rendered inside a page, never wrapped themselves.
	card := resultByName(t, report, "components/card.yaml")
	assert.Contains(t, string(card.Output), `const CardLayout = ""`)
}

func TestPipelineDryRun(t *testing.T) {
	p, root := newPipeline(t, testutils.SiteFiles(), Options{DryRun: true})

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	home := resultByName(t, report, "pages/home.yaml")
	require.NoError(t, home.Error)
	assert.NotEmpty(t, home.Output)
	assert.False(t, home.Written)
	assert.NoFileExists(t, filepath.Join(root, "pages", "home_tmpl.go"))
}

func TestPipelineOutputDir(t *testing.T) {
	out := t.TempDir()
	p, _ := newPipeline(t, testutils.SiteFiles(), Options{OutputDir: out, Package: "site", Suffix: ".gen.go"})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Failed())

	src, err := os.ReadFile(filepath.Join(out, "pages_home.gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package site")
	assert.FileExists(t, filepath.Join(out, "components_card.gen.go"))
}

func TestPipelineTypeCollision(t *testing.T) {
	out := t.TempDir()
	p, _ := newPipeline(t, map[string]string{
		"a/home.yaml": testutils.AboutDoc,
		"b/home.yaml": testutils.AboutDoc,
	}, Options{OutputDir: out})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed())

	assert.NoError(t, resultByName(t, report, "a/home.yaml").Error)
	clash := resultByName(t, report, "b/home.yaml")
	require.Error(t, clash.Error)
	assert.Contains(t, clash.Error.Error(), "a/home.yaml")
	assert.NoFileExists(t, filepath.Join(out, "b_home_tmpl.go"))
}

func TestPipelineCompileFailure(t *testing.T) {
	files := testutils.SiteFiles()
	files["pages/broken.yaml"] = testutils.BrokenDoc
	p, root := newPipeline(t, files, Options{})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed())

	broken := resultByName(t, report, "pages/broken.yaml")
	require.Error(t, broken.Error)
	assert.True(t, errors.IsCompileError(broken.Error))
	assert.NoFileExists(t, filepath.Join(root, "pages", "broken_tmpl.go"))

	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "pages/broken.yaml", report.Diagnostics[0].Template)
	assert.Equal(t, errors.ErrCodeMalformedFragment, report.Diagnostics[0].Code)

	// The rest of the site still builds.
	assert.NoError(t, resultByName(t, report, "pages/home.yaml").Error)
	assert.FileExists(t, filepath.Join(root, "pages", "home_tmpl.go"))
}

func TestPipelineInvalidDocument(t *testing.T) {
	files := testutils.SiteFiles()
	files["pages/bad.yaml"] = "- kind: nonsense\n"
	p, _ := newPipeline(t, files, Options{})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Len(t, report.Results, 3)
	require.NotEmpty(t, report.Diagnostics)
	assert.Contains(t, report.Diagnostics[0].Message, "nonsense")
}

func TestPipelineMissingRoot(t *testing.T) {
	p := NewPipeline(Options{Root: filepath.Join(t.TempDir(), "missing")})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeIO, errors.TypeOf(err))
}

func TestPipelineCanceledContext(t *testing.T) {
	p, _ := newPipeline(t, testutils.SiteFiles(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineTargets(t *testing.T) {
	p, root := newPipeline(t, testutils.SiteFiles(), Options{})

	report, err := p.Run(context.Background(),
		filepath.Join(root, "pages", "home.yaml"),
		"components/card.yaml",
		"../outside.yaml",
		"pages/missing.yaml",
	)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "components/card.yaml", report.Results[0].Template.Name)
	assert.Equal(t, "pages/home.yaml", report.Results[1].Template.Name)
	assert.Len(t, report.Diagnostics, 2)
}

func TestPipelineRemove(t *testing.T) {
	p, root := newPipeline(t, testutils.SiteFiles(), Options{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	out := filepath.Join(root, "pages", "home_tmpl.go")
	require.FileExists(t, out)

	require.NoError(t, p.Remove("pages/home.yaml"))
	assert.NoFileExists(t, out)
	_, ok := p.Registry().Get("pages/home.yaml")
	assert.False(t, ok)

	// Removing twice is fine.
	assert.NoError(t, p.Remove("pages/home.yaml"))
}

func TestPipelineCallbacks(t *testing.T) {
	p, _ := newPipeline(t, testutils.SiteFiles(), Options{DryRun: true})

	var (
		mu    sync.Mutex
		names []string
	)
	p.AddCallback(func(result BuildResult) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, result.Template.Name)
	})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"components/card.yaml",
		"layouts/base.yaml",
		"pages/home.yaml",
	}, names)
}

func TestOutputPath(t *testing.T) {
	p := NewPipeline(Options{Root: "views"})
	assert.Equal(t, filepath.Join("views", "pages", "home_tmpl.go"), p.OutputPath("pages/home.yaml"))

	p = NewPipeline(Options{Root: "views", OutputDir: "gen", Suffix: ".go"})
	assert.Equal(t, filepath.Join("gen", "pages_admin_home.go"), p.OutputPath("pages/admin/home.yaml"))
}

func TestWriteIfChanged(t *testing.T) {
	name := filepath.Join(t.TempDir(), "nested", "out.go")

	written, err := writeIfChanged(name, []byte("a"))
	require.NoError(t, err)
	assert.True(t, written)

	written, err = writeIfChanged(name, []byte("a"))
	require.NoError(t, err)
	assert.False(t, written)

	written, err = writeIfChanged(name, []byte("b"))
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	testutils.AssertFilePermissions(t, name, 0o644)
}
