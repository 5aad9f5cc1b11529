// Package testutils holds fixtures shared by the tests of the build
// pipeline and the command line.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tmplc/internal/config"
)

// Fixture documents of a small site: a layout, a component and a page
// that uses both.
const (
	LayoutDoc = `
- kind: text
  text: "<html><title>"
- kind: render
  name: title
- kind: text
  text: "</title><body>"
- kind: render_body
- kind: text
  text: "</body></html>"
`
	CardDoc = `
- kind: text
  text: "<div class=card>"
- kind: child_content
- kind: text
  text: "</div>"
`
	HomeDoc = `
- kind: extends
  path: layouts/base.yaml
- kind: use
  path: components/card.yaml
- kind: section
  name: title
  text: Home
- kind: component
  name: Card
  body:
    - kind: expr
      code: t.Name
`
	AboutDoc = `
- kind: text
  text: "<p>about</p>"
`
	// BrokenDoc decodes but fails to compile.
	BrokenDoc = `
- kind: expr
  code: "f(x"
`
)

// SiteFiles returns the fixture site keyed by path relative to the view
// root. Callers may add to the map.
func SiteFiles() map[string]string {
	return map[string]string{
		"layouts/base.yaml":    LayoutDoc,
		"components/card.yaml": CardDoc,
		"pages/home.yaml":      HomeDoc,
	}
}

// WriteFiles writes files below root, creating directories as needed.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// CreateTempProject creates a project directory whose views/ folder holds
// the fixture site plus extra, which is keyed relative to the project.
func CreateTempProject(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	files := make(map[string]string, len(extra)+3)
	for name, content := range SiteFiles() {
		files["views/"+name] = content
	}
	for name, content := range extra {
		files[name] = content
	}
	WriteFiles(t, dir, files)
	return dir
}

// CreateTestConfig returns a configuration rooted at projectDir/views with
// a single worker so builds are deterministic.
func CreateTestConfig(projectDir string) *config.Config {
	return &config.Config{
		Views: config.ViewsConfig{
			Root:      filepath.Join(projectDir, "views"),
			Extension: ".yaml",
			Exclude:   []string{"*_test.yaml"},
		},
		Generate: config.GenerateConfig{
			Package:  "views",
			Suffix:   "_tmpl.go",
			Workers:  1,
			MaxDepth: 256,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

// AssertFilePermissions checks the permission bits of path.
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0o777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0o777), expectedMode)
}

// WaitForFileChange waits for a file to be modified after originalModTime.
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}

// WaitForFile waits for filePath to exist.
func WaitForFile(t *testing.T, filePath string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if _, err := os.Stat(filePath); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s did not appear within %v", filePath, timeout)
}
