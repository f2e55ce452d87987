package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
)

// echoRenderer returns the planned pages as if Chrome had matched them.
type echoRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (r *echoRenderer) Render(_ context.Context, job *bundle2pdf.RenderJob) (*bundle2pdf.RenderOutput, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &bundle2pdf.RenderOutput{
		PDF:          []byte("%PDF-1.7 test"),
		Pages:        job.Assignment.TotalPages,
		HeadingPages: job.Assignment.HeadingPages,
	}, nil
}

func (r *echoRenderer) Close() error { return nil }

// testEnv builds an Environment with captured output and a fixed set of
// environment variables.
func testEnv(r bundle2pdf.Renderer, vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:    func() time.Time { return time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC) },
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(k string) string { return vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		Renderer: r,
	}
	return env, &stdout, &stderr
}

// writeZip writes an archive of name/content pairs to dir/name.
func writeZip(t *testing.T, dir, name string, files ...string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i+1 < len(files); i += 2 {
		w, err := zw.Create(files[i])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
