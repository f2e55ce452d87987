// Package htmlout turns a planned document tree into the HTML page handed to
// the browser.
//
// The planner's decisions are made explicit: every planned page boundary
// between top-level blocks becomes a forced break, so the browser only
// chooses split points inside paragraphs and lists.
package htmlout

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/layout"
	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// ErrBuild reports a page that could not be produced.
var ErrBuild = errors.New("failed to build HTML")

// DefaultHighlightStyle is the chroma style used for code blocks.
const DefaultHighlightStyle = "github"

const breakMarker = `<div class="b2p-break"></div>`

// Input is everything Build needs.
type Input struct {
	Tree       *document.Tree
	Assignment *layout.Assignment
	Entries    []toc.Entry
	TOCTitle   string
	Title      string  // document title for <title>
	Style      string  // base stylesheet
	Highlight  string  // chroma style name; empty means DefaultHighlightStyle
	Root       string  // directory local image refs resolve against
	Budget     float64 // content height of one page in points
}

// Build renders the complete HTML document.
func Build(in Input) (string, error) {
	if in.Tree == nil || in.Assignment == nil {
		return "", fmt.Errorf("%w: missing tree or assignment", ErrBuild)
	}
	if len(in.Assignment.Pages) < in.Tree.Len() {
		return "", fmt.Errorf("%w: assignment covers %d of %d nodes", ErrBuild, len(in.Assignment.Pages), in.Tree.Len())
	}

	w := &writer{in: in}
	prevEnd := 0
	for i, id := range in.Tree.Roots() {
		if i > 0 && in.Assignment.Pages[id] > prevEnd {
			w.buf.WriteString(breakMarker)
		}
		if err := w.node(id); err != nil {
			return "", err
		}
		w.buf.WriteByte('\n')
		prevEnd = in.Assignment.EndPages[id]
	}

	body, err := sanitize(w.buf.String(), in.Root)
	if err != nil {
		return "", err
	}

	hl := in.Highlight
	if hl == "" {
		hl = DefaultHighlightStyle
	}
	codeCSS, err := highlightCSS(hl)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(body) + len(in.Style) + len(codeCSS) + 256)
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	out.WriteString(html.EscapeString(in.Title))
	out.WriteString("</title>\n<style>\n")
	out.WriteString(in.Style)
	out.WriteString("\n")
	out.WriteString(codeCSS)
	out.WriteString("</style>\n</head>\n<body>\n")
	out.WriteString(body)
	out.WriteString("\n</body>\n</html>\n")
	return out.String(), nil
}

type writer struct {
	in  Input
	buf strings.Builder
}

func (w *writer) node(id document.NodeID) error {
	n := w.in.Tree.At(id)
	switch d := n.Data.(type) {
	case document.TOC:
		w.buf.WriteString(tocMarkup(w.in.Entries, w.in.TOCTitle, d.Pages, w.in.Budget))
	case document.KeepTogether:
		w.buf.WriteString(`<div class="keep-together">`)
		for _, child := range n.Children {
			if err := w.node(child); err != nil {
				return err
			}
		}
		w.buf.WriteString(`</div>`)
	case document.ManualPageBreak:
		// Boundaries come from the assignment.
	case document.Heading:
		markup, err := anchorHeading(n.HTML, d)
		if err != nil {
			return err
		}
		w.buf.WriteString(markup)
	default:
		w.buf.WriteString(n.HTML)
	}
	return nil
}

// anchorHeading makes sure the heading element carries the id the TOC and
// bookmarks link to.
func anchorHeading(fragment string, h document.Heading) (string, error) {
	tag := fmt.Sprintf("h%d", h.Level)
	if strings.TrimSpace(fragment) == "" {
		return fmt.Sprintf(`<%s id="%s">%s</%s>`, tag, html.EscapeString(h.ID), html.EscapeString(h.Text), tag), nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("%w: heading %q: %v", ErrBuild, h.ID, err)
	}
	doc.Find(tag).First().SetAttr("id", h.ID)
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("%w: heading %q: %v", ErrBuild, h.ID, err)
	}
	return out, nil
}

func highlightCSS(style string) (string, error) {
	var b strings.Builder
	f := chromahtml.New(chromahtml.WithClasses(true))
	if err := f.WriteCSS(&b, styles.Get(style)); err != nil {
		return "", fmt.Errorf("%w: highlight CSS: %v", ErrBuild, err)
	}
	return b.String(), nil
}
