package branding

import (
	"errors"
	"fmt"
)

// ErrTemplate reports branding that cannot be rendered.
var ErrTemplate = errors.New("branding template error")

// TemplateError names the template or field that failed.
type TemplateError struct {
	Template string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrTemplate, e.Template, e.Reason)
}

func (e *TemplateError) Unwrap() error { return ErrTemplate }

// Details exposes the failing template for structured reporting.
func (e *TemplateError) Details() map[string]any {
	return map[string]any{"template": e.Template, "reason": e.Reason}
}
