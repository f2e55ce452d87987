package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
)

// FileToConvert pairs an archive with its PDF destination.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// discoverFiles lists the archives under inputPath. A file input must be a
// .zip; a directory is walked for .zip files.
func discoverFiles(inputPath, outputDir string) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadArchive, err)
	}

	if !info.IsDir() {
		if !isZip(inputPath) {
			return nil, fmt.Errorf("%w: %q is not a .zip file", errUsage, inputPath)
		}
		return []FileToConvert{{InputPath: inputPath, OutputPath: resolveOutputPath(inputPath, outputDir, "")}}, nil
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !isZip(path) {
			return nil
		}
		files = append(files, FileToConvert{InputPath: path, OutputPath: resolveOutputPath(path, outputDir, inputPath)})
		return nil
	})
	return files, err
}

// resolveOutputPath places the PDF next to the archive, under outputDir
// mirroring the input tree, or at outputDir itself when it names a .pdf.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".pdf"

	switch {
	case outputDir == "":
		return filepath.Join(filepath.Dir(inputPath), base)
	case strings.EqualFold(filepath.Ext(outputDir), ".pdf") && baseInputDir == "":
		return outputDir
	case baseInputDir != "":
		if rel, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			return filepath.Join(outputDir, filepath.Dir(rel), base)
		}
	}
	return filepath.Join(outputDir, base)
}

func isZip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// validateWorkers checks that the worker count is within pool bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > bundle2pdf.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, bundle2pdf.MaxPoolSize)
	}
	return nil
}
