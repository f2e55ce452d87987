package htmlout

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alnah/go-bundle2pdf/internal/fileutil"
)

// blockedElements never reach the browser.
const blockedElements = "script, noscript, iframe, object, embed, frame, frameset, base, link, meta"

// sanitize strips active content from body markup and points local images
// at the extracted files under root.
func sanitize(body, root string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		return "", fmt.Errorf("%w: parsing body: %v", ErrBuild, err)
	}

	doc.Find(blockedElements).Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range s.Nodes[0].Attr {
			if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
				s.RemoveAttr(attr.Key)
			}
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isScriptURL(href) {
			s.RemoveAttr("href")
		}
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		switch {
		case isScriptURL(src):
			s.RemoveAttr("src")
		case root == "":
		default:
			if u, ok := localFileURL(root, src); ok {
				s.SetAttr("src", u)
			} else if !hasScheme(src) && !strings.HasPrefix(src, "//") {
				s.RemoveAttr("src")
			}
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("%w: rendering body: %v", ErrBuild, err)
	}
	return out, nil
}

// localFileURL maps a relative image reference to a file URL under root.
// It reports false for URLs, anchors, absolute paths, and references that
// climb out of root.
func localFileURL(root, src string) (string, bool) {
	if src == "" || strings.HasPrefix(src, "#") || fileutil.IsURL(src) || hasScheme(src) {
		return "", false
	}
	ref, err := url.PathUnescape(src)
	if err != nil {
		ref = src
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = path.Clean(strings.ReplaceAll(ref, "\\", "/"))
	if ref == "." || path.IsAbs(ref) || ref == ".." || strings.HasPrefix(ref, "../") {
		return "", false
	}
	abs := filepath.Join(root, filepath.FromSlash(ref))
	if !fileutil.IsPathUnderDir(abs, root) {
		return "", false
	}
	return fileutil.PathToFileURL(abs), true
}

func hasScheme(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && len(u.Scheme) > 1
}

func isScriptURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "vbscript:")
}
