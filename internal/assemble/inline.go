package assemble

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/alnah/go-bundle2pdf/internal/document"
)

// collectRuns flattens the inline children of n into styled runs. Adjacent
// runs with the same style are merged.
func collectRuns(n ast.Node, source []byte) []document.Run {
	var runs []document.Run
	emit := func(text string, style document.RunStyle, href string) {
		if text == "" {
			return
		}
		if last := len(runs) - 1; last >= 0 && runs[last].Style == style && runs[last].Href == href {
			runs[last].Text += text
			return
		}
		runs = append(runs, document.Run{Text: text, Style: style, Href: href})
	}

	var walk func(n ast.Node, style document.RunStyle, href string)
	walk = func(n ast.Node, style document.RunStyle, href string) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				text := string(c.Segment.Value(source))
				switch {
				case c.HardLineBreak():
					text += "\n"
				case c.SoftLineBreak():
					text += " "
				}
				emit(text, style, href)
			case *ast.String:
				emit(string(c.Value), style, href)
			case *ast.CodeSpan:
				walk(c, style|document.RunCode, href)
			case *ast.Emphasis:
				if c.Level >= 2 {
					walk(c, style|document.RunStrong, href)
				} else {
					walk(c, style|document.RunEmphasis, href)
				}
			case *ast.Link:
				walk(c, style|document.RunLink, string(c.Destination))
			case *ast.AutoLink:
				u := string(c.URL(source))
				emit(string(c.Label(source)), style|document.RunLink, u)
			case *east.Strikethrough:
				walk(c, style|document.RunStrike, href)
			case *ast.Image, *ast.RawHTML:
				// no text
			default:
				walk(c, style, href)
			}
		}
	}
	walk(n, 0, "")
	return runs
}

// plainText returns the inline text of n with styles dropped.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	for _, r := range collectRuns(n, source) {
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}

// blockText joins the raw source lines of a block node.
func blockText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := range lines.Len() {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
