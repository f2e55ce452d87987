package assets_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/alnah/go-bundle2pdf/internal/assets"
)

// writeFile creates dir/rel with content, creating parents.
func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// ---------------------------------------------------------------------------
// TestValidateAssetName - Name validation
// ---------------------------------------------------------------------------

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "default", wantErr: false},
		{name: "dashes", input: "corporate-blue", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
		{name: "backslash", input: `a\b`, wantErr: true},
		{name: "parent", input: "..", wantErr: true},
		{name: "extension", input: "default.css", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := assets.ValidateAssetName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAssetName(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, assets.ErrInvalidAssetName) {
				t.Errorf("error = %v, want ErrInvalidAssetName", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestEmbeddedLoader - Built-in assets
// ---------------------------------------------------------------------------

func TestEmbeddedLoader_DefaultAssets(t *testing.T) {
	t.Parallel()

	l := assets.NewEmbeddedLoader()

	css, err := l.LoadStyle(assets.DefaultName)
	if err != nil {
		t.Fatalf("LoadStyle() error = %v", err)
	}
	for _, sel := range []string{".b2p-break", ".b2p-cover", ".b2p-toc", "@page :first"} {
		if !strings.Contains(css, sel) {
			t.Errorf("default style missing %q", sel)
		}
	}

	ts, err := l.LoadTemplateSet(assets.DefaultName)
	if err != nil {
		t.Fatalf("LoadTemplateSet() error = %v", err)
	}
	if !strings.Contains(ts.Cover, "{{.Title}}") {
		t.Errorf("cover template does not render the title:\n%s", ts.Cover)
	}
	if !strings.Contains(ts.Footer, "pageNumber") {
		t.Errorf("footer template has no page number placeholder:\n%s", ts.Footer)
	}
	if ts.Header == "" {
		t.Error("header template is empty")
	}
}

func TestEmbeddedLoader_NotFound(t *testing.T) {
	t.Parallel()

	l := assets.NewEmbeddedLoader()
	if _, err := l.LoadStyle("nope"); !errors.Is(err, assets.ErrStyleNotFound) {
		t.Errorf("LoadStyle(nope) error = %v, want ErrStyleNotFound", err)
	}
	if _, err := l.LoadTemplateSet("nope"); !errors.Is(err, assets.ErrTemplateSetNotFound) {
		t.Errorf("LoadTemplateSet(nope) error = %v, want ErrTemplateSetNotFound", err)
	}
	if _, err := l.LoadStyle("../x"); !errors.Is(err, assets.ErrInvalidAssetName) {
		t.Errorf("LoadStyle(../x) error = %v, want ErrInvalidAssetName", err)
	}
}

// ---------------------------------------------------------------------------
// TestFilesystemLoader - Custom directory
// ---------------------------------------------------------------------------

func TestNewFilesystemLoader_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	writeFile(t, dir, "plain.txt", "x")

	tests := []struct {
		name string
		path string
	}{
		{name: "empty", path: ""},
		{name: "missing", path: filepath.Join(dir, "missing")},
		{name: "file", path: file},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := assets.NewFilesystemLoader(tt.path)
			if !errors.Is(err, assets.ErrInvalidBasePath) {
				t.Errorf("NewFilesystemLoader(%q) error = %v, want ErrInvalidBasePath", tt.path, err)
			}
		})
	}
}

func TestFilesystemLoader_IncompleteSet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "templates/brand/cover.html", "<h1>{{.Title}}</h1>")

	l, err := assets.NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.LoadTemplateSet("brand")
	if !errors.Is(err, assets.ErrIncompleteTemplateSet) {
		t.Fatalf("error = %v, want ErrIncompleteTemplateSet", err)
	}
	if !strings.Contains(err.Error(), assets.HeaderFile) || !strings.Contains(err.Error(), assets.FooterFile) {
		t.Errorf("error %q should list the missing files", err)
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	writeFile(t, outside, "secret.css", "body{}")
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.css"), filepath.Join(dir, "styles", "leak.css")); err != nil {
		t.Fatal(err)
	}

	l, err := assets.NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.LoadStyle("leak"); !errors.Is(err, assets.ErrPathTraversal) {
		t.Errorf("LoadStyle(leak) error = %v, want ErrPathTraversal", err)
	}
}

// ---------------------------------------------------------------------------
// TestResolver - Custom-first fallback
// ---------------------------------------------------------------------------

func TestResolver_Fallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "styles/default.css", "/* custom */")
	writeFile(t, dir, "templates/brand/cover.html", "cover")
	writeFile(t, dir, "templates/brand/header.html", "header")
	writeFile(t, dir, "templates/brand/footer.html", "footer")

	r, err := assets.NewResolver(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasCustomLoader() {
		t.Fatal("HasCustomLoader() = false")
	}

	css, err := r.LoadStyle(assets.DefaultName)
	if err != nil || css != "/* custom */" {
		t.Errorf("LoadStyle(default) = %q, %v; want custom override", css, err)
	}

	ts, err := r.LoadTemplateSet("brand")
	if err != nil || ts.Cover != "cover" {
		t.Errorf("LoadTemplateSet(brand) = %+v, %v", ts, err)
	}

	ts, err = r.LoadTemplateSet(assets.DefaultName)
	if err != nil {
		t.Fatalf("LoadTemplateSet(default) error = %v", err)
	}
	if !strings.Contains(ts.Cover, "b2p-cover") {
		t.Error("default template set should fall back to the embedded copy")
	}
}

func TestResolver_EmbeddedOnly(t *testing.T) {
	t.Parallel()

	r, err := assets.NewResolver("")
	if err != nil {
		t.Fatal(err)
	}
	if r.HasCustomLoader() {
		t.Error("HasCustomLoader() = true without a base path")
	}
	if _, err := r.LoadStyle(assets.DefaultName); err != nil {
		t.Errorf("LoadStyle() error = %v", err)
	}
	if _, err := assets.NewResolver(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, assets.ErrInvalidBasePath) {
		t.Errorf("NewResolver(missing) error = %v, want ErrInvalidBasePath", err)
	}
}
