package main

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		outDir  string
		baseDir string
		want    string
	}{
		{name: "next to input", input: "/in/doc.zip", want: "/in/doc.pdf"},
		{name: "explicit pdf", input: "/in/doc.zip", outDir: "/out/final.pdf", want: "/out/final.pdf"},
		{name: "output dir", input: "/in/doc.zip", outDir: "/out", want: "/out/doc.pdf"},
		{name: "mirrors tree", input: "/in/a/b/doc.zip", outDir: "/out", baseDir: "/in", want: "/out/a/b/doc.pdf"},
		{name: "uppercase ext", input: "/in/DOC.ZIP", want: "/in/DOC.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := resolveOutputPath(filepath.FromSlash(tt.input), filepath.FromSlash(tt.outDir), filepath.FromSlash(tt.baseDir))
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("resolveOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiscoverFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeZip(t, dir, "one.zip", "a.md", "# A")
	writeZip(t, dir, "sub/two.zip", "b.md", "# B")
	writeZip(t, dir, "notes.txt")

	files, err := discoverFiles(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d archives, want 2: %+v", len(files), files)
	}

	single, err := discoverFiles(filepath.Join(dir, "one.zip"), "")
	if err != nil || len(single) != 1 || single[0].OutputPath != filepath.Join(dir, "one.pdf") {
		t.Errorf("single file = %+v, %v", single, err)
	}

	if _, err := discoverFiles(filepath.Join(dir, "notes.txt"), ""); !errors.Is(err, errUsage) {
		t.Errorf("non-zip input error = %v, want usage error", err)
	}
	if _, err := discoverFiles(filepath.Join(dir, "absent.zip"), ""); !errors.Is(err, ErrReadArchive) {
		t.Errorf("missing input error = %v, want ErrReadArchive", err)
	}
}

func TestValidateWorkers(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 8} {
		if err := validateWorkers(n); err != nil {
			t.Errorf("validateWorkers(%d) = %v", n, err)
		}
	}
	for _, n := range []int{-1, 9} {
		if err := validateWorkers(n); !errors.Is(err, ErrInvalidWorkerCount) {
			t.Errorf("validateWorkers(%d) = %v, want ErrInvalidWorkerCount", n, err)
		}
	}
}
