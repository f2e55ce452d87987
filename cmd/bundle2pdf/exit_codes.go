package main

import (
	"context"
	"errors"
	"os"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
	"github.com/alnah/go-bundle2pdf/internal/assets"
	"github.com/alnah/go-bundle2pdf/internal/config"
	"github.com/alnah/go-bundle2pdf/internal/hints"
	"github.com/alnah/go-bundle2pdf/internal/logging"
)

// Exit codes follow Unix conventions: 0 success, 1 general, 2 usage, and
// custom codes below 126.
const (
	ExitSuccess  = 0   // every archive converted
	ExitGeneral  = 1   // unexpected error
	ExitUsage    = 2   // invalid flags, config, or assets
	ExitIO       = 3   // unreadable input or unwritable output
	ExitBrowser  = 4   // Chrome failed to render
	ExitInput    = 5   // the archive or its markdown was rejected
	ExitCanceled = 130 // interrupted
)

var exitByCode = map[bundle2pdf.Code]int{
	bundle2pdf.CodeInvalidFileFormat:     ExitInput,
	bundle2pdf.CodeFileTooLarge:          ExitInput,
	bundle2pdf.CodePathTraversal:         ExitInput,
	bundle2pdf.CodeNoMarkdownFound:       ExitInput,
	bundle2pdf.CodeMultipleMarkdownFiles: ExitInput,
	bundle2pdf.CodeInvalidMarkdown:       ExitInput,
	bundle2pdf.CodeImageNotFound:         ExitInput,
	bundle2pdf.CodeTemplateError:         ExitInput,
	bundle2pdf.CodeInvalidPageFormat:     ExitUsage,
	bundle2pdf.CodePDFGenerationFailed:   ExitBrowser,
}

// exitCodeFor maps an error to the process exit code. Callers must wrap
// with %w so errors.Is and errors.As see the cause.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}

	var e *bundle2pdf.Error
	if errors.As(err, &e) {
		if code, ok := exitByCode[e.Code]; ok {
			return code
		}
		return ExitGeneral
	}

	switch {
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, os.ErrPermission),
		errors.Is(err, ErrReadArchive),
		errors.Is(err, ErrWritePDF),
		errors.Is(err, ErrWriteReport),
		errors.Is(err, ErrNoInput):
		return ExitIO
	case errors.Is(err, errUsage),
		errors.Is(err, ErrInvalidWorkerCount),
		errors.Is(err, ErrInvalidTimeout),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, config.ErrEmptyConfigName),
		errors.Is(err, config.ErrConfigParse),
		errors.Is(err, config.ErrFieldTooLong),
		errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, logging.ErrInvalidLevel),
		errors.Is(err, assets.ErrStyleNotFound),
		errors.Is(err, assets.ErrTemplateSetNotFound),
		errors.Is(err, assets.ErrIncompleteTemplateSet),
		errors.Is(err, bundle2pdf.ErrInvalidAssetPath):
		return ExitUsage
	}
	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var e *bundle2pdf.Error
	if errors.As(err, &e) {
		switch {
		case e.Details["cause"] == "timeout":
			return hints.ForTimeout()
		case errors.Is(err, bundle2pdf.ErrBrowserConnect):
			return hints.ForBrowserConnect()
		}
		return hints.ForCode(string(e.Code))
	}
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, assets.ErrStyleNotFound):
		return hints.ForStyleNotFound([]string{assets.DefaultName})
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutputDirectory()
	}
	return ""
}
