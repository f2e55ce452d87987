package bundle2pdf

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
)

// zipOf builds an archive from name -> content pairs, in order.
func zipOf(t *testing.T, files ...string) []byte {
	t.Helper()
	if len(files)%2 != 0 {
		t.Fatal("zipOf needs name/content pairs")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < len(files); i += 2 {
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
	return buf.Bytes()
}

// pngOf encodes a blank w x h PNG.
func pngOf(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

// fakeRenderer echoes the plan back as the rendered result unless told
// otherwise.
type fakeRenderer struct {
	mu      sync.Mutex
	jobs    []*RenderJob
	closed  int
	err     error
	panics  bool
	shift   int            // pages added to the planned total
	moved   map[string]int // heading id -> rendered page override
	blockOn chan struct{}
}

func (f *fakeRenderer) Render(ctx context.Context, job *RenderJob) (*RenderOutput, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()

	if f.blockOn != nil {
		select {
		case <-f.blockOn:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panics {
		panic("renderer exploded")
	}
	if f.err != nil {
		return nil, f.err
	}

	pages := make(map[string]int, len(job.Assignment.HeadingPages))
	for id, p := range job.Assignment.HeadingPages {
		pages[id] = p
	}
	for id, p := range f.moved {
		pages[id] = p
	}
	return &RenderOutput{
		PDF:          []byte("%PDF-1.7 fake"),
		Pages:        job.Assignment.TotalPages + f.shift,
		HeadingPages: pages,
	}, nil
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRenderer) lastJob(t *testing.T) *RenderJob {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		t.Fatal("renderer was never called")
	}
	return f.jobs[len(f.jobs)-1]
}

func newTestConverter(t *testing.T, r Renderer, opts ...Option) *Converter {
	t.Helper()
	c, err := NewConverter(append([]Option{WithRenderer(r)}, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
