// Package archive validates a bundled ZIP and extracts it into a workspace.
//
// Validation runs in two phases. The first inspects only the central
// directory: signature, sizes, entry names, and the markdown file count. No
// byte is written until it passes. The second streams entries to disk while
// counting actual bytes, so archives with lying headers still hit the limit.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/alnah/go-bundle2pdf/internal/fileutil"
)

// Limits bounds what an archive may contain.
type Limits struct {
	MaxCompressedBytes int64
	MaxExtractedBytes  int64
	MaxEntries         int
}

// Asset is an extracted image the markdown may reference.
type Asset struct {
	Path      string // slash-separated, relative to the content root
	AbsPath   string
	Size      int64
	MediaType string
}

// Source is the validated content of an archive.
type Source struct {
	Markdown     string
	MarkdownPath string
	Root         string // absolute directory the markdown paths resolve against
	Assets       map[string]Asset
}

// Asset looks up a referenced path.
func (s *Source) Asset(ref string) (Asset, bool) {
	a, ok := s.Assets[ref]
	return a, ok
}

var markdownExts = []string{".md", ".markdown"}

var imageExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
}

var zipSignatures = [][]byte{
	[]byte("PK\x03\x04"),
	[]byte("PK\x05\x06"), // empty archive
}

// Extractor validates and unpacks archives.
type Extractor struct {
	limits Limits
	logger *zap.Logger
}

// NewExtractor creates an Extractor enforcing limits.
func NewExtractor(limits Limits, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{limits: limits, logger: logger}
}

// entry is a file that passed name validation.
type entry struct {
	file *zip.File
	rel  string // relative to the content root
	name string // cleaned archive path
}

// Extract validates data and writes its files under ws. On error, ws may
// hold partial output; the caller owns ws and removes it.
func (e *Extractor) Extract(ctx context.Context, data []byte, ws *fileutil.Workspace) (*Source, error) {
	if int64(len(data)) > e.limits.MaxCompressedBytes {
		return nil, &EntryError{
			Err:     ErrFileTooLarge,
			Limit:   e.limits.MaxCompressedBytes,
			Actual:  int64(len(data)),
			Message: fmt.Sprintf("archive is %d bytes, limit %d", len(data), e.limits.MaxCompressedBytes),
		}
	}
	if !hasZipSignature(data) {
		return nil, &EntryError{Err: ErrInvalidFileFormat, Message: "missing ZIP signature"}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		err = nil // names are checked entry by entry below
	}
	if err != nil {
		return nil, &EntryError{Err: ErrInvalidFileFormat, Message: err.Error()}
	}

	entries, err := e.plan(zr)
	if err != nil {
		return nil, err
	}
	mdEntry, err := findMarkdown(entries)
	if err != nil {
		return nil, err
	}

	contentRoot := ws.Dir()
	if prefix := strings.TrimSuffix(mdEntry.name, mdEntry.rel); prefix != "" {
		contentRoot = filepath.Join(ws.Dir(), filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
	}

	src := &Source{
		MarkdownPath: mdEntry.rel,
		Root:         contentRoot,
		Assets:       make(map[string]Asset),
	}

	var written int64
	for _, en := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst, err := ws.Join(en.name)
		if err != nil {
			return nil, &EntryError{Err: ErrPathTraversal, Path: en.file.Name}
		}
		n, err := e.writeEntry(en.file, dst, e.limits.MaxExtractedBytes-written)
		written += n
		if err != nil {
			return nil, err
		}
		e.register(src, en, dst, n)
	}

	raw, err := os.ReadFile(filepath.Join(contentRoot, filepath.FromSlash(mdEntry.rel))) // #nosec G304 -- path validated inside workspace
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrExtract, mdEntry.rel, err)
	}
	src.Markdown = e.decodeText(raw, mdEntry.rel)

	e.logger.Debug("archive extracted",
		zap.String("markdown", mdEntry.rel),
		zap.Int("assets", len(src.Assets)),
		zap.Int64("bytes", written))
	return src, nil
}

// plan validates every entry name and the declared sizes before any write.
func (e *Extractor) plan(zr *zip.Reader) ([]entry, error) {
	if len(zr.File) > e.limits.MaxEntries {
		return nil, &EntryError{
			Err:     ErrFileTooLarge,
			Limit:   int64(e.limits.MaxEntries),
			Actual:  int64(len(zr.File)),
			Message: fmt.Sprintf("%d entries, limit %d", len(zr.File), e.limits.MaxEntries),
		}
	}

	var declared uint64
	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		name, ok := cleanEntryName(f.Name)
		if !ok {
			return nil, &EntryError{Err: ErrPathTraversal, Path: f.Name}
		}
		if f.FileInfo().IsDir() || name == "." {
			continue
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			e.logger.Warn("skipping symlink entry", zap.String("entry", f.Name))
			continue
		}
		if isMetadata(name) {
			continue
		}
		declared += f.UncompressedSize64
		entries = append(entries, entry{file: f, name: name})
	}

	if declared > uint64(e.limits.MaxExtractedBytes) {
		return nil, &EntryError{
			Err:     ErrFileTooLarge,
			Limit:   e.limits.MaxExtractedBytes,
			Actual:  int64(min(declared, uint64(1<<62))),
			Message: fmt.Sprintf("declared extracted size %d exceeds limit %d", declared, e.limits.MaxExtractedBytes),
		}
	}

	prefix := commonTopDir(entries)
	for i := range entries {
		entries[i].rel = strings.TrimPrefix(entries[i].name, prefix)
	}
	return entries, nil
}

// findMarkdown picks the single markdown file at the content root. Nested
// markdown files are not candidates.
func findMarkdown(entries []entry) (entry, error) {
	var found []entry
	for _, en := range entries {
		if strings.Contains(en.rel, "/") {
			continue
		}
		if slices.Contains(markdownExts, strings.ToLower(path.Ext(en.rel))) {
			found = append(found, en)
		}
	}
	switch len(found) {
	case 0:
		return entry{}, &EntryError{Err: ErrNoMarkdownFound}
	case 1:
		return found[0], nil
	}
	names := make([]string, len(found))
	for i, en := range found {
		names[i] = en.name
	}
	slices.Sort(names)
	return entry{}, &EntryError{Err: ErrMultipleMarkdownFiles, Paths: names}
}

// writeEntry streams one entry to dst, failing once more than budget bytes
// come out of it.
func (e *Extractor) writeEntry(f *zip.File, dst string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExtract, err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, &EntryError{Err: ErrInvalidFileFormat, Path: f.Name, Message: err.Error()}
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600) // #nosec G304 -- dst checked by Workspace.Join
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExtract, err)
	}
	n, copyErr := io.Copy(out, io.LimitReader(rc, budget+1))
	closeErr := out.Close()

	if n > budget {
		return n, &EntryError{
			Err:     ErrFileTooLarge,
			Path:    f.Name,
			Limit:   e.limits.MaxExtractedBytes,
			Actual:  e.limits.MaxExtractedBytes - budget + n,
			Message: "extracted size exceeds limit",
		}
	}
	if copyErr != nil {
		return n, &EntryError{Err: ErrInvalidFileFormat, Path: f.Name, Message: copyErr.Error()}
	}
	if closeErr != nil {
		return n, fmt.Errorf("%w: %v", ErrExtract, closeErr)
	}
	return n, nil
}

// register records image entries as assets after checking their content.
func (e *Extractor) register(src *Source, en entry, abs string, size int64) {
	ext := strings.ToLower(path.Ext(en.rel))
	media, ok := imageExts[ext]
	if !ok {
		return
	}
	if ext != ".svg" {
		sniffed, err := sniff(abs)
		if err != nil || !strings.HasPrefix(sniffed, "image/") {
			e.logger.Warn("skipping non-image file",
				zap.String("file", en.rel),
				zap.String("detected", sniffed))
			return
		}
		media = sniffed
	}
	src.Assets[en.rel] = Asset{Path: en.rel, AbsPath: abs, Size: size, MediaType: media}
}

// decodeText returns raw as a string, reinterpreting it as ISO-8859-1 when
// it is not valid UTF-8.
func (e *Extractor) decodeText(raw []byte, name string) string {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	e.logger.Warn("markdown is not UTF-8, decoded as latin-1", zap.String("file", name))
	return string(decoded)
}

func sniff(p string) (string, error) {
	f, err := os.Open(p) // #nosec G304 -- path inside workspace
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

func hasZipSignature(data []byte) bool {
	for _, sig := range zipSignatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// cleanEntryName normalizes an entry name to a slash-separated relative
// path. It reports false for names that are absolute or climb out of the
// root.
func cleanEntryName(name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(n, "/") || (len(n) >= 2 && n[1] == ':') {
		return "", false
	}
	n = path.Clean(n)
	if n == ".." || strings.HasPrefix(n, "../") {
		return "", false
	}
	return n, true
}

func isMetadata(name string) bool {
	base := path.Base(name)
	return strings.HasPrefix(name, "__MACOSX/") || base == ".DS_Store" || base == "Thumbs.db"
}

// commonTopDir returns "dir/" when every entry lives under the same top-level
// directory, as produced by zipping a folder; otherwise "".
func commonTopDir(entries []entry) string {
	if len(entries) == 0 {
		return ""
	}
	first, _, ok := strings.Cut(entries[0].name, "/")
	if !ok {
		return ""
	}
	for _, en := range entries[1:] {
		top, _, ok := strings.Cut(en.name, "/")
		if !ok || top != first {
			return ""
		}
	}
	return first + "/"
}
