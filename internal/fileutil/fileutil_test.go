package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-bundle2pdf/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{name: "html", extension: "html", wantErr: nil},
		{name: "empty extension", extension: "", wantErr: fileutil.ErrExtensionEmpty},
		{name: "forward slash", extension: "../etc/passwd", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "backslash", extension: "..\\windows", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "null byte", extension: "html\x00exe", wantErr: fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWorkspace - Scoped temp directories
// ---------------------------------------------------------------------------

func TestWorkspace_CloseRemovesEverything(t *testing.T) {
	t.Parallel()

	ws, err := fileutil.NewWorkspace("ws-test-")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	p, err := ws.Join("nested/dir/file.txt")
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Errorf("workspace dir still exists after Close: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := ws.Join("late.txt"); !errors.Is(err, fileutil.ErrWorkspaceClosed) {
		t.Errorf("Join after Close error = %v, want ErrWorkspaceClosed", err)
	}
}

func TestWorkspace_JoinRejectsEscapes(t *testing.T) {
	t.Parallel()

	ws, err := fileutil.NewWorkspace("")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{name: "plain file", rel: "doc.md", wantErr: false},
		{name: "nested", rel: "images/a.png", wantErr: false},
		{name: "dot segments inside", rel: "images/../doc.md", wantErr: false},
		{name: "parent escape", rel: "../outside.png", wantErr: true},
		{name: "deep escape", rel: "a/../../outside.png", wantErr: true},
		{name: "root itself", rel: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := ws.Join(tt.rel)
			if tt.wantErr {
				if !errors.Is(err, fileutil.ErrOutsideWorkspace) {
					t.Errorf("Join(%q) error = %v, want ErrOutsideWorkspace", tt.rel, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Join(%q) error = %v", tt.rel, err)
			}
			if !strings.HasPrefix(p, ws.Dir()) {
				t.Errorf("Join(%q) = %q, not under %q", tt.rel, p, ws.Dir())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteTempFile - Temporary file creation
// ---------------------------------------------------------------------------

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, cleanup, err := fileutil.WriteTempFile(dir, "<html></html>", "html")
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("file created in %q, want %q", filepath.Dir(path), dir)
	}
	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path %q missing .html suffix", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<html></html>" {
		t.Errorf("content = %q", got)
	}

	cleanup()
	if fileutil.FileExists(path) {
		t.Error("file still exists after cleanup")
	}
}

func TestWriteTempFile_InvalidExtension(t *testing.T) {
	t.Parallel()

	_, _, err := fileutil.WriteTempFile(t.TempDir(), "x", "")
	if !errors.Is(err, fileutil.ErrExtensionEmpty) {
		t.Errorf("error = %v, want ErrExtensionEmpty", err)
	}
}

// ---------------------------------------------------------------------------
// TestPathHelpers
// ---------------------------------------------------------------------------

func TestIsPathUnderDir(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "tmp", "ws")
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "a.png"), true},
		{root, true},
		{filepath.Join(root, "..", "ws-evil", "a.png"), false},
		{root + "evil", false},
		{filepath.Join(root, "..", "x"), false},
	}

	for _, tt := range tests {
		if got := fileutil.IsPathUnderDir(tt.path, root); got != tt.want {
			t.Errorf("IsPathUnderDir(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"https://example.com/a.png": true,
		"HTTP://example.com":        true,
		"data:image/png;base64,xx":  true,
		"//cdn.example.com/a.png":   true,
		"images/a.png":              false,
		"./a.png":                   false,
	}
	for in, want := range tests {
		if got := fileutil.IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPathToFileURL(t *testing.T) {
	t.Parallel()

	got := fileutil.PathToFileURL("/tmp/ws/images/my logo.png")
	want := "file:///tmp/ws/images/my%20logo.png"
	if got != want {
		t.Errorf("PathToFileURL() = %q, want %q", got, want)
	}
}
