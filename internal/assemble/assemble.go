// Package assemble turns the markdown of an archive into a document tree.
//
// Blocks are mapped one to one from the goldmark AST. Raw HTML blocks carry
// the layout directives (page break, keep-together, avoid-break-before),
// which become tree structure or node flags instead of markup. Every local
// image reference must resolve to an archive asset.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/alnah/go-bundle2pdf/internal/archive"
	"github.com/alnah/go-bundle2pdf/internal/document"
)

// Document is an assembled markdown file.
type Document struct {
	Tree *document.Tree

	// Title and Subtitle come from YAML front matter when present.
	Title    string
	Subtitle string

	Warnings []string
}

// Assembler parses markdown into document trees. It is safe for concurrent
// use.
type Assembler struct {
	md     goldmark.Markdown
	logger *zap.Logger
}

// New creates an Assembler with GFM, footnotes, front matter and syntax
// highlighting enabled.
func New(logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			meta.Meta,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithBlockParsers(fenceParser()),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			gmhtml.WithUnsafe(), // directives and embedded images; scripts are stripped at render time
		),
	)
	return &Assembler{md: md, logger: logger}
}

// Assemble parses src.Markdown. Goldmark has no context support, so parsing
// runs in a goroutine and the call returns early on cancellation.
func (a *Assembler) Assemble(ctx context.Context, src *archive.Source) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		doc *Document
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("assemble: panic: %v", r)}
			}
		}()
		doc, err := a.assemble(src)
		done <- result{doc: doc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.doc, r.err
	}
}

func (a *Assembler) assemble(src *archive.Source) (*Document, error) {
	if strings.TrimSpace(src.Markdown) == "" {
		return nil, &ConstructError{Construct: "empty document"}
	}

	source := []byte(src.Markdown)
	pctx := parser.NewContext()
	root := a.md.Parser().Parse(text.NewReader(source), parser.WithContext(pctx))

	s := &state{
		asm:    a,
		src:    src,
		source: source,
		lines:  newLineIndex(source),
	}
	if off, ok := fencesOf(pctx).firstUnclosed(); ok {
		return nil, &ConstructError{Construct: "unclosed code fence", Line: s.lines.line(off)}
	}
	front, err := meta.TryGet(pctx)
	if err != nil {
		return nil, &ConstructError{Construct: "front matter: " + err.Error(), Line: 1}
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if err := s.block(n); err != nil {
			return nil, err
		}
	}

	if k := len(s.keep); k > 0 {
		return nil, &ConstructError{Construct: "unclosed keep-together", Line: s.keep[k-1].line}
	}
	if s.avoid {
		s.warn("avoid-break-before at end of document ignored", s.avoidLine)
	}

	tree := s.b.Build()
	if !tree.HasContent() {
		return nil, &ConstructError{Construct: "document has no content"}
	}

	doc := &Document{Tree: tree, Warnings: s.warnings}
	doc.Title, _ = front["title"].(string)
	doc.Subtitle, _ = front["subtitle"].(string)

	a.logger.Debug("markdown assembled",
		zap.Int("nodes", tree.Len()),
		zap.Int("roots", len(tree.Roots())),
		zap.Int("warnings", len(s.warnings)))
	return doc, nil
}

type openGroup struct {
	id   document.NodeID
	line int
}

// state accumulates one assembly.
type state struct {
	asm    *Assembler
	src    *archive.Source
	source []byte
	lines  lineIndex
	b      document.Builder

	keep      []openGroup
	avoid     bool
	avoidLine int
	anonIDs   int
	warnings  []string
}

func (s *state) parent() document.NodeID {
	if k := len(s.keep); k > 0 {
		return s.keep[k-1].id
	}
	return document.NoParent
}

func (s *state) add(n document.Node) document.NodeID {
	if s.avoid {
		n.AvoidBreakBefore = true
		s.avoid = false
	}
	return s.b.Add(s.parent(), n)
}

func (s *state) warn(msg string, line int) {
	s.warnings = append(s.warnings, fmt.Sprintf("line %d: %s", line, msg))
	s.asm.logger.Warn(msg, zap.Int("line", line))
}

func (s *state) render(n ast.Node) string {
	var buf bytes.Buffer
	if err := s.asm.md.Renderer().Render(&buf, s.source, n); err != nil {
		s.warn("rendering block: "+err.Error(), s.lineOf(n))
	}
	return buf.String()
}

// lineOf returns the source line of the first text segment in n.
func (s *state) lineOf(n ast.Node) int {
	off := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			off = c.Segment.Start
		case *ast.FencedCodeBlock:
			if c.Info != nil {
				off = c.Info.Segment.Start
			}
		}
		if off < 0 && c.Type() == ast.TypeBlock && c.Lines().Len() > 0 {
			off = c.Lines().At(0).Start
		}
		if off >= 0 {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if off < 0 {
		return 0
	}
	return s.lines.line(off)
}

func (s *state) block(n ast.Node) error {
	line := s.lineOf(n)
	if h, ok := n.(*ast.HTMLBlock); ok {
		return s.htmlBlock(h, line)
	}
	if err := s.checkImages(n, line); err != nil {
		return err
	}

	node := document.Node{HTML: s.render(n), Line: line}
	switch n := n.(type) {
	case *ast.Heading:
		node.Data = document.Heading{Level: n.Level, Text: plainText(n, s.source), ID: s.headingID(n)}
	case *ast.Paragraph:
		if img, ok := soleImage(n, s.source); ok {
			asset, found, _ := resolveImage(s.src, string(img.Destination), line)
			if found {
				w, h := pixelSize(asset)
				node.Data = document.Image{Asset: asset.Path, Alt: plainText(img, s.source), Width: w, Height: h}
				break
			}
		}
		node.Data = document.Paragraph{Runs: collectRuns(n, s.source)}
	case *ast.List:
		node.Data = document.List{Ordered: n.IsOrdered(), Items: listItems(n, 0, s.source)}
	case *ast.Blockquote:
		node.Data = document.Paragraph{Runs: quoteRuns(n, s.source), Quote: true}
	case *ast.FencedCodeBlock:
		node.Data = document.CodeBlock{Language: string(n.Language(s.source)), Text: blockText(n, s.source)}
	case *ast.CodeBlock:
		node.Data = document.CodeBlock{Text: blockText(n, s.source)}
	case *east.Table:
		node.Data = tableOf(n, s.source)
	default:
		node.Data = document.Raw{Markup: node.HTML}
	}
	s.add(node)
	return nil
}

func (s *state) htmlBlock(n *ast.HTMLBlock, line int) error {
	markup := htmlBlockText(n, s.source)
	switch parseDirective(markup) {
	case directivePageBreak:
		if len(s.keep) > 0 {
			return &ConstructError{Construct: "page break inside keep-together", Line: line}
		}
		if s.avoid {
			s.warn("avoid-break-before followed by a page break ignored", s.avoidLine)
			s.avoid = false
		}
		s.add(document.Node{Data: document.ManualPageBreak{}, Line: line})
		return nil
	case directiveKeepOpen:
		id := s.add(document.Node{Data: document.KeepTogether{}, Line: line})
		s.keep = append(s.keep, openGroup{id: id, line: line})
		return nil
	case directiveKeepClose:
		if k := len(s.keep); k > 0 {
			if len(s.b.Node(s.keep[k-1].id).Children) == 0 {
				s.warn("empty keep-together", s.keep[k-1].line)
			}
			s.keep = s.keep[:k-1]
			return nil
		}
		s.warn("closing </div> without keep-together kept as raw HTML", line)
	case directiveAvoidBreak:
		s.avoid = true
		s.avoidLine = line
		return nil
	}

	if ref, alt, ok := singleImage(markup); ok {
		asset, found, err := resolveImage(s.src, ref, line)
		if err != nil {
			return err
		}
		if found {
			w, h := pixelSize(asset)
			s.add(document.Node{
				Data: document.Image{Asset: asset.Path, Alt: alt, Width: w, Height: h},
				HTML: markup,
				Line: line,
			})
			return nil
		}
	}
	for _, ref := range imageSources(markup) {
		if _, _, err := resolveImage(s.src, ref, line); err != nil {
			return err
		}
	}
	s.add(document.Node{Data: document.Raw{Markup: markup}, HTML: markup, Line: line})
	return nil
}

// checkImages resolves every image reference under n, both markdown images
// and <img> tags in inline or block HTML.
func (s *state) checkImages(n ast.Node, line int) error {
	var failure error
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var refs []string
		switch c := c.(type) {
		case *ast.Image:
			refs = []string{string(c.Destination)}
		case *ast.RawHTML:
			refs = imageSources(string(c.Segments.Value(s.source)))
		case *ast.HTMLBlock:
			refs = imageSources(htmlBlockText(c, s.source))
		}
		for _, ref := range refs {
			if _, _, err := resolveImage(s.src, ref, line); err != nil {
				failure = err
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return failure
}

func (s *state) headingID(h *ast.Heading) string {
	if v, ok := h.AttributeString("id"); ok {
		if b, ok := v.([]byte); ok && len(b) > 0 {
			return string(b)
		}
	}
	s.anonIDs++
	return fmt.Sprintf("section-%d", s.anonIDs)
}

func htmlBlockText(n *ast.HTMLBlock, source []byte) string {
	out := blockText(n, source)
	if n.HasClosure() {
		out += string(n.ClosureLine.Value(source))
	}
	return out
}

// soleImage reports whether p holds one image and nothing but whitespace.
func soleImage(p *ast.Paragraph, source []byte) (*ast.Image, bool) {
	var img *ast.Image
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil, false
			}
			img = c
		case *ast.Text:
			if len(bytes.TrimSpace(c.Segment.Value(source))) > 0 {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return img, img != nil
}

func listItems(l *ast.List, depth int, source []byte) []document.ListItem {
	var items []document.ListItem
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []document.ListItem
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, listItems(sub, depth+1, source)...)
				continue
			}
			t := plainText(c, source)
			if t == "" {
				t = strings.TrimSpace(blockText(c, source))
			}
			if t != "" {
				parts = append(parts, t)
			}
		}
		items = append(items, document.ListItem{Depth: depth, Text: strings.Join(parts, "\n")})
		items = append(items, nested...)
	}
	return items
}

func quoteRuns(q *ast.Blockquote, source []byte) []document.Run {
	var runs []document.Run
	for c := q.FirstChild(); c != nil; c = c.NextSibling() {
		if len(runs) > 0 {
			runs = append(runs, document.Run{Text: "\n"})
		}
		r := collectRuns(c, source)
		if len(r) == 0 {
			if t := strings.TrimSpace(blockText(c, source)); t != "" {
				r = []document.Run{{Text: t}}
			}
		}
		runs = append(runs, r...)
	}
	return runs
}

func tableOf(t *east.Table, source []byte) document.Table {
	var tbl document.Table
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		if _, ok := row.(*east.TableHeader); ok {
			tbl.Header = true
		}
		var cells []string
		for c := row.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, plainText(c, source))
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	return tbl
}
