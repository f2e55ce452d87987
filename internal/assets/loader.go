package assets

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for asset operations.
var (
	ErrStyleNotFound         = errors.New("style not found")
	ErrTemplateSetNotFound   = errors.New("template set not found")
	ErrIncompleteTemplateSet = errors.New("template set missing required template")
	ErrInvalidAssetName      = errors.New("invalid asset name")
	ErrInvalidBasePath       = errors.New("invalid base path")
	ErrAssetRead             = errors.New("failed to read asset")
	ErrPathTraversal         = errors.New("path traversal detected")
)

// DefaultName names the built-in style and template set.
const DefaultName = "default"

// Template file names inside a template set directory.
const (
	CoverFile  = "cover.html"
	HeaderFile = "header.html"
	FooterFile = "footer.html"
)

// TemplateSet holds the raw html/template sources used for branding.
type TemplateSet struct {
	Name   string
	Cover  string
	Header string
	Footer string
}

// Loader loads styles and template sets by name.
type Loader interface {
	LoadStyle(name string) (string, error)
	LoadTemplateSet(name string) (*TemplateSet, error)
}

// ValidateAssetName rejects names that are empty or contain path
// separators or dots.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// templateFiles reads the three set members with read, reporting which
// ones are missing.
func templateFiles(name string, read func(file string) (string, bool, error)) (*TemplateSet, error) {
	ts := &TemplateSet{Name: name}
	targets := []struct {
		file string
		dst  *string
	}{
		{CoverFile, &ts.Cover},
		{HeaderFile, &ts.Header},
		{FooterFile, &ts.Footer},
	}
	var missing []string
	for _, t := range targets {
		content, ok, err := read(t.file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrAssetRead, name, t.file, err)
		}
		if !ok {
			missing = append(missing, t.file)
			continue
		}
		*t.dst = content
	}
	switch len(missing) {
	case 0:
		return ts, nil
	case len(targets):
		return nil, fmt.Errorf("%w: %q", ErrTemplateSetNotFound, name)
	}
	return nil, fmt.Errorf("%w: %q missing %s", ErrIncompleteTemplateSet, name, strings.Join(missing, ", "))
}
