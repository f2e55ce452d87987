package assemble

import (
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/alnah/go-bundle2pdf/internal/archive"
	"github.com/alnah/go-bundle2pdf/internal/fileutil"
)

// resolveImage maps a reference as written in the document to an archive
// asset. External references (URLs, data URIs, fragments) report ok=false
// with a nil error; they are left for the renderer.
func resolveImage(src *archive.Source, ref string, line int) (archive.Asset, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || fileutil.IsURL(ref) || strings.HasPrefix(ref, "#") {
		return archive.Asset{}, false, nil
	}
	key := ref
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key = path.Clean(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "./")

	asset, ok := src.Asset(key)
	if !ok {
		return archive.Asset{}, false, &ImageError{Ref: ref, Line: line}
	}
	return asset, true, nil
}

// pixelSize decodes only the image header. SVG and unreadable files report
// zero, leaving the planner to use its default image height.
func pixelSize(a archive.Asset) (w, h int) {
	if a.MediaType == "image/svg+xml" {
		return 0, 0
	}
	f, err := os.Open(a.AbsPath) // #nosec G304 -- asset path comes from the extraction workspace
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
