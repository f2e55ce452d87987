package bundle2pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alnah/go-bundle2pdf/internal/archive"
	"github.com/alnah/go-bundle2pdf/internal/assemble"
	"github.com/alnah/go-bundle2pdf/internal/branding"
	"github.com/alnah/go-bundle2pdf/internal/htmlout"
	"github.com/alnah/go-bundle2pdf/internal/pdfpost"
)

// Code classifies a conversion failure.
type Code string

// Error codes.
const (
	CodeInvalidFileFormat     Code = "INVALID_FILE_FORMAT"
	CodeFileTooLarge          Code = "FILE_TOO_LARGE"
	CodePathTraversal         Code = "PATH_TRAVERSAL"
	CodeNoMarkdownFound       Code = "NO_MARKDOWN_FOUND"
	CodeMultipleMarkdownFiles Code = "MULTIPLE_MARKDOWN_FILES"
	CodeInvalidMarkdown       Code = "INVALID_MARKDOWN"
	CodeImageNotFound         Code = "IMAGE_NOT_FOUND"
	CodeTemplateError         Code = "TEMPLATE_ERROR"
	CodePDFGenerationFailed   Code = "PDF_GENERATION_FAILED"
	CodeInternalError         Code = "INTERNAL_ERROR"
	CodeInvalidPageFormat     Code = "INVALID_PAGE_FORMAT"
)

// Sentinel errors for library operations.
var (
	ErrInvalidPageFormat = errors.New("unsupported page format")
	ErrPDFGeneration     = errors.New("PDF generation failed")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrPageCreate        = errors.New("failed to create browser page")
	ErrPageLoad          = errors.New("failed to load page")
	ErrInternal          = errors.New("internal error")
	ErrInvalidAssetPath  = errors.New("invalid asset path")
)

// Error is the structured failure returned by Convert.
type Error struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"requestId"`

	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// detailer is implemented by internal errors that carry structured context.
type detailer interface {
	Details() map[string]any
}

var codeBySentinel = []struct {
	sentinel error
	code     Code
}{
	{ErrInvalidPageFormat, CodeInvalidPageFormat},
	{archive.ErrInvalidFileFormat, CodeInvalidFileFormat},
	{archive.ErrFileTooLarge, CodeFileTooLarge},
	{archive.ErrPathTraversal, CodePathTraversal},
	{archive.ErrNoMarkdownFound, CodeNoMarkdownFound},
	{archive.ErrMultipleMarkdownFiles, CodeMultipleMarkdownFiles},
	{assemble.ErrInvalidMarkdown, CodeInvalidMarkdown},
	{assemble.ErrImageNotFound, CodeImageNotFound},
	{branding.ErrTemplate, CodeTemplateError},
	{ErrPDFGeneration, CodePDFGenerationFailed},
	{ErrBrowserConnect, CodePDFGenerationFailed},
	{ErrPageCreate, CodePDFGenerationFailed},
	{ErrPageLoad, CodePDFGenerationFailed},
	{htmlout.ErrBuild, CodePDFGenerationFailed},
	{pdfpost.ErrPostProcess, CodePDFGenerationFailed},
}

// classify wraps err into an *Error. Unknown errors become INTERNAL_ERROR
// with a generic message; their text stays in the logs.
func classify(err error, requestID string) *Error {
	var already *Error
	if errors.As(err, &already) {
		return already
	}

	e := &Error{
		Code:      CodeInternalError,
		Message:   "an internal error occurred",
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		err:       err,
	}

	for _, m := range codeBySentinel {
		if errors.Is(err, m.sentinel) {
			e.Code = m.code
			e.Message = err.Error()
			break
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		e.Code = CodeInternalError
		e.Message = "conversion canceled"
		e.Details = map[string]any{"cause": "canceled"}
		return e
	case errors.Is(err, context.DeadlineExceeded):
		if e.Code == CodeInternalError {
			e.Message = "conversion timed out"
		}
		e.Details = map[string]any{"cause": "timeout"}
		return e
	}

	var d detailer
	if errors.As(err, &d) {
		e.Details = d.Details()
	}
	return e
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
