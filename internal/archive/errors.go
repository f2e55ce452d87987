package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive validation.
var (
	ErrInvalidFileFormat     = errors.New("not a valid ZIP archive")
	ErrFileTooLarge          = errors.New("archive exceeds size limits")
	ErrPathTraversal         = errors.New("archive entry escapes extraction root")
	ErrNoMarkdownFound       = errors.New("no markdown file found in archive")
	ErrMultipleMarkdownFiles = errors.New("archive contains more than one markdown file")
	ErrExtract               = errors.New("failed to extract archive entry")
)

// EntryError ties a validation failure to the archive entries involved.
type EntryError struct {
	Err     error
	Path    string
	Paths   []string
	Limit   int64
	Actual  int64
	Message string
}

func (e *EntryError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	case len(e.Paths) > 0:
		return fmt.Sprintf("%v: %q", e.Err, e.Paths)
	case e.Path != "":
		return fmt.Sprintf("%v: %q", e.Err, e.Path)
	}
	return e.Err.Error()
}

func (e *EntryError) Unwrap() error { return e.Err }

// Details exposes the implicated paths and limits for structured reporting.
func (e *EntryError) Details() map[string]any {
	d := map[string]any{}
	if e.Path != "" {
		d["path"] = e.Path
	}
	if len(e.Paths) > 0 {
		d["files"] = e.Paths
	}
	if e.Limit > 0 {
		d["limit"] = e.Limit
		d["actual"] = e.Actual
	}
	return d
}
