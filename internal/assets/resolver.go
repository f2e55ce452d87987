package assets

import "errors"

// Resolver tries a custom directory first and falls back to the embedded
// assets when the custom directory lacks the requested asset.
type Resolver struct {
	custom   Loader // nil without a custom directory
	embedded Loader
}

// NewResolver creates a Resolver. An empty basePath uses embedded assets
// only; a non-empty one must be a readable directory.
func NewResolver(basePath string) (*Resolver, error) {
	r := &Resolver{embedded: NewEmbeddedLoader()}
	if basePath != "" {
		fsl, err := NewFilesystemLoader(basePath)
		if err != nil {
			return nil, err
		}
		r.custom = fsl
	}
	return r, nil
}

// LoadStyle loads a stylesheet by name.
func (r *Resolver) LoadStyle(name string) (string, error) {
	if r.custom != nil {
		css, err := r.custom.LoadStyle(name)
		if !errors.Is(err, ErrStyleNotFound) {
			return css, err
		}
	}
	return r.embedded.LoadStyle(name)
}

// LoadTemplateSet loads a template set by name. Only a set missing
// entirely falls back; an incomplete custom set is an error.
func (r *Resolver) LoadTemplateSet(name string) (*TemplateSet, error) {
	if r.custom != nil {
		ts, err := r.custom.LoadTemplateSet(name)
		if !errors.Is(err, ErrTemplateSetNotFound) {
			return ts, err
		}
	}
	return r.embedded.LoadTemplateSet(name)
}

// HasCustomLoader reports whether a custom directory is configured.
func (r *Resolver) HasCustomLoader() bool {
	return r.custom != nil
}

var _ Loader = (*Resolver)(nil)
