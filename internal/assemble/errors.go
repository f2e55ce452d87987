package assemble

import (
	"errors"
	"fmt"
)

// Sentinel errors for content assembly.
var (
	ErrInvalidMarkdown = errors.New("invalid markdown")
	ErrImageNotFound   = errors.New("image not found in archive")
)

// ConstructError names the markdown construct that could not be assembled.
type ConstructError struct {
	Construct string
	Line      int
}

func (e *ConstructError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: %s at line %d", ErrInvalidMarkdown, e.Construct, e.Line)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidMarkdown, e.Construct)
}

func (e *ConstructError) Unwrap() error { return ErrInvalidMarkdown }

// Details exposes the construct and line for structured reporting.
func (e *ConstructError) Details() map[string]any {
	d := map[string]any{"construct": e.Construct}
	if e.Line > 0 {
		d["line"] = e.Line
	}
	return d
}

// ImageError reports an image reference with no matching archive asset.
// Ref is the reference exactly as written in the document.
type ImageError struct {
	Ref  string
	Line int
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%v: %q", ErrImageNotFound, e.Ref)
}

func (e *ImageError) Unwrap() error { return ErrImageNotFound }

// Details exposes the missing path.
func (e *ImageError) Details() map[string]any {
	d := map[string]any{"path": e.Ref}
	if e.Line > 0 {
		d["line"] = e.Line
	}
	return d
}
