package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemLoader loads assets from a directory on disk.
type FilesystemLoader struct {
	basePath string
}

// NewFilesystemLoader checks that basePath is a readable directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if real, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = real
	}

	info, err := os.Stat(absPath)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: directory does not exist: %s", ErrInvalidBasePath, absPath)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return nil, fmt.Errorf("%w: cannot read directory: %v", ErrInvalidBasePath, err)
	}
	return &FilesystemLoader{basePath: absPath}, nil
}

// LoadStyle reads {basePath}/styles/{name}.css.
func (f *FilesystemLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	content, ok, err := f.read(filepath.Join("styles", name+".css"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssetRead, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return content, nil
}

// LoadTemplateSet reads {basePath}/templates/{name}/.
func (f *FilesystemLoader) LoadTemplateSet(name string) (*TemplateSet, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}
	return templateFiles(name, func(file string) (string, bool, error) {
		return f.read(filepath.Join("templates", name, file))
	})
}

// read returns the file at rel under basePath, or ok=false if it does not
// exist. Symlinks are resolved before checking containment.
func (f *FilesystemLoader) read(rel string) (string, bool, error) {
	p := filepath.Join(f.basePath, rel)
	if real, err := filepath.EvalSymlinks(p); err == nil {
		p = real
	}
	if !strings.HasPrefix(p, f.basePath+string(filepath.Separator)) {
		return "", false, fmt.Errorf("%w: %s escapes base directory", ErrPathTraversal, rel)
	}
	content, err := os.ReadFile(p) // #nosec G304 -- containment checked above
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(content), true, nil
}

var _ Loader = (*FilesystemLoader)(nil)
