package layout

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/alnah/go-bundle2pdf/internal/config"
	"github.com/alnah/go-bundle2pdf/internal/document"
)

// pxToPt converts CSS pixels (96 dpi) to points.
const pxToPt = 0.75

// listIndent is the character width one list nesting level takes away.
const listIndent = 4

// Metrics are the height-estimation constants, in points. Text width is
// measured in terminal cells with go-runewidth, so wide CJK runes count
// double against CharsPerLine.
type Metrics struct {
	CharsPerLine       int
	LineHeight         float64
	HeadingLineHeights [6]float64
	CodeLineHeight     float64
	CodePadding        float64
	TableRowHeight     float64
	TablePadding       float64
	BlockSpacing       float64
	DefaultImageHeight float64
	ContentWidth       float64
}

// Params is everything a planner pass depends on besides the tree.
type Params struct {
	Budget  float64 // content height of one page
	Metrics Metrics
	Orphans int
	Widows  int
}

// ParamsFrom derives planner parameters from a validated config.
func ParamsFrom(cfg *config.Config) Params {
	l := cfg.Layout
	m := Metrics{
		CharsPerLine:       l.CharsPerLine,
		LineHeight:         l.LineHeight,
		CodeLineHeight:     l.CodeLineHeight,
		CodePadding:        l.CodePadding,
		TableRowHeight:     l.TableRowHeight,
		TablePadding:       l.TablePadding,
		BlockSpacing:       l.BlockSpacing,
		DefaultImageHeight: l.DefaultImageHeight,
		ContentWidth:       cfg.ContentWidth(),
	}
	copy(m.HeadingLineHeights[:], l.HeadingLineHeights)
	return Params{
		Budget:  cfg.ContentHeight(),
		Metrics: m,
		Orphans: l.Orphans,
		Widows:  l.Widows,
	}
}

// TextLines counts the lines s wraps to at cpl cells per line. Hard line
// breaks start a new line; an empty string still takes one line.
func TextLines(s string, cpl int) int {
	cpl = max(cpl, 1)
	lines := 0
	for seg := range strings.SplitSeq(s, "\n") {
		w := runewidth.StringWidth(seg)
		lines += max(1, (w+cpl-1)/cpl)
	}
	return lines
}

// headingCPL scales characters per line down for larger heading fonts.
func (m Metrics) headingCPL(level int) int {
	lh := m.headingLineHeight(level)
	return max(10, int(float64(m.CharsPerLine)*m.LineHeight/lh))
}

func (m Metrics) headingLineHeight(level int) float64 {
	level = min(max(level, 1), 6)
	return m.HeadingLineHeights[level-1]
}

// HeadingHeight estimates a heading block.
func (m Metrics) HeadingHeight(level int, text string) float64 {
	return float64(TextLines(text, m.headingCPL(level))) * m.headingLineHeight(level)
}

// Lines returns the line count of splittable kinds and zero otherwise.
func (m Metrics) Lines(n document.Node) int {
	switch d := n.Data.(type) {
	case document.Paragraph:
		return TextLines(d.PlainText(), m.CharsPerLine)
	case document.List:
		lines := 0
		for _, it := range d.Items {
			lines += TextLines(it.Text, max(10, m.CharsPerLine-listIndent*(it.Depth+1)))
		}
		return max(lines, 1)
	}
	return 0
}

// Height estimates the rendered height of a node, children included,
// without the spacing that follows it. The page budget is needed for the
// page-sized branding blocks.
func (m Metrics) Height(t *document.Tree, id document.NodeID, budget float64) float64 {
	n := t.At(id)
	switch d := n.Data.(type) {
	case document.Heading:
		return m.HeadingHeight(d.Level, d.Text)
	case document.Paragraph, document.List:
		return float64(m.Lines(n)) * m.LineHeight
	case document.CodeBlock:
		lines := TextLines(strings.TrimRight(d.Text, "\n"), m.CharsPerLine)
		return float64(lines)*m.CodeLineHeight + m.CodePadding
	case document.Table:
		return m.tableHeight(d)
	case document.Image:
		return m.imageHeight(d)
	case document.Raw:
		lines := 0
		for line := range strings.SplitSeq(strings.TrimSpace(d.Markup), "\n") {
			if strings.TrimSpace(line) != "" {
				lines++
			}
		}
		return float64(max(lines, 1)) * m.LineHeight
	case document.KeepTogether:
		h := 0.0
		for i, c := range n.Children {
			if i > 0 {
				h += m.BlockSpacing
			}
			h += m.Height(t, c, budget)
		}
		return h
	case document.ManualPageBreak:
		return 0
	case document.Cover:
		return budget
	case document.TOC:
		return float64(max(d.Pages, 1)) * budget
	}
	panic("layout: no height rule for " + n.Kind().String())
}

func (m Metrics) tableHeight(t document.Table) float64 {
	cols := 1
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	cellCPL := max(4, m.CharsPerLine/cols)
	lines := 0
	for _, row := range t.Rows {
		rowLines := 1
		for _, cell := range row {
			rowLines = max(rowLines, TextLines(cell, cellCPL))
		}
		lines += rowLines
	}
	return float64(lines)*m.TableRowHeight + m.TablePadding
}

func (m Metrics) imageHeight(img document.Image) float64 {
	if img.Width <= 0 || img.Height <= 0 {
		return m.DefaultImageHeight
	}
	w := float64(img.Width) * pxToPt
	h := float64(img.Height) * pxToPt
	if m.ContentWidth > 0 && w > m.ContentWidth {
		h *= m.ContentWidth / w
	}
	return math.Round(h*100) / 100
}
