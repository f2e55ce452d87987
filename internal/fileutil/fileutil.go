// Package fileutil provides scoped workspaces and path helpers.
package fileutil

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrOutsideWorkspace       = errors.New("path escapes workspace root")
	ErrWorkspaceClosed        = errors.New("workspace already closed")
)

// Workspace is a temporary directory owned by a single conversion.
// Close removes the directory and everything under it; it is safe to call
// more than once.
type Workspace struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

// NewWorkspace creates a fresh directory under the system temp dir.
func NewWorkspace(prefix string) (*Workspace, error) {
	if prefix == "" {
		prefix = "bundle2pdf-"
	}
	dir, err := os.MkdirTemp("", prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	// Resolve symlinks (macOS /var -> /private/var) so containment checks
	// compare real paths.
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		dir = real
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the absolute workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Join resolves a slash-separated relative path inside the workspace.
// Returns ErrOutsideWorkspace if the result would leave the root.
func (w *Workspace) Join(rel string) (string, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return "", ErrWorkspaceClosed
	}

	p := filepath.Join(w.dir, filepath.FromSlash(rel))
	if !IsPathUnderDir(p, w.dir) || p == w.dir {
		return "", fmt.Errorf("%w: %q", ErrOutsideWorkspace, rel)
	}
	return p, nil
}

// Close removes the workspace directory.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.dir, err)
	}
	return nil
}

// WriteTempFile writes content to a new file with the given extension inside dir.
// An empty dir means the system temp dir. Returns the path and a cleanup function.
func WriteTempFile(dir, content, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp(dir, "bundle2pdf-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}
	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string contains a path separator.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like a remote or inline URL.
func IsURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "//")
}

// IsPathUnderDir reports whether absPath is dir itself or lies beneath it.
func IsPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// PathToFileURL converts an absolute path to a file:// URL.
func PathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
