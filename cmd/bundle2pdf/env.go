package main

import (
	"io"
	"os"
	"time"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	// Renderer replaces headless Chrome when set. Shared by every pooled
	// converter, so it must be safe for concurrent use.
	Renderer bundle2pdf.Renderer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
	}
}
