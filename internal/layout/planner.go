// Package layout assigns document blocks to pages.
//
// Plan is a pure function of the tree and Params: the same inputs always
// produce the same Assignment, and the tree is never modified. Heights are
// estimates (see Metrics); the renderer may disagree, which the caller
// reports as drift.
package layout

import (
	"math"

	"github.com/alnah/go-bundle2pdf/internal/document"
)

const epsilon = 1e-6

// Fragment is the part of a split paragraph or list that lands on one page.
type Fragment struct {
	Node  document.NodeID
	Page  int
	Lines int
}

// Assignment is the result of one planner pass. Slices are indexed by
// NodeID; children share the pages of their keep-together parent.
type Assignment struct {
	Pages        []int // first page of each node, 1-based
	EndPages     []int // last page, differs from Pages for split and oversized blocks
	Fragments    []Fragment
	Oversized    []document.NodeID
	TotalPages   int
	HeadingPages map[string]int // heading id -> page
}

// Page returns the first page of id.
func (a *Assignment) Page(id document.NodeID) int { return a.Pages[id] }

// Plan assigns every node of t to pages. Rules, strongest first:
//   - the cover sits alone on page 1, the TOC takes its reserved pages
//   - a manual page break starts a new page unless the page is empty
//   - a level-1 heading starts a new page unless the page is empty
//   - atomic blocks never split; one taller than a page starts a fresh page,
//     spills over as many pages as it needs, and nothing shares its last page
//   - a level-2 or level-3 heading moves on when the next block's minimum
//     would not fit after it
//   - paragraphs and lists split at line boundaries keeping at least Orphans
//     lines before and Widows lines after each break
//   - avoid-break-before pulls the previous block along when the flagged
//     block has to move and both fit on the new page
func Plan(t *document.Tree, p Params) *Assignment {
	p.Orphans = max(p.Orphans, 1)
	p.Widows = max(p.Widows, 1)

	pl := &planner{
		tree:    t,
		p:       p,
		roots:   t.Roots(),
		heights: make([]float64, t.Len()),
		lines:   make([]int, t.Len()),
		page:    1,
		first:   document.NoParent,
		asg: &Assignment{
			Pages:        make([]int, t.Len()),
			EndPages:     make([]int, t.Len()),
			HeadingPages: make(map[string]int),
		},
	}
	for _, id := range pl.roots {
		pl.heights[id] = p.Metrics.Height(t, id, p.Budget)
		pl.lines[id] = p.Metrics.Lines(t.At(id))
	}
	for i := range pl.roots {
		pl.place(i)
	}
	if len(pl.roots) > 0 {
		pl.asg.TotalPages = pl.page
	}
	return pl.asg
}

type planner struct {
	tree    *document.Tree
	p       Params
	roots   []document.NodeID
	heights []float64
	lines   []int
	asg     *Assignment

	page  int
	used  float64
	full  bool            // nothing else may go on the current page
	first document.NodeID // first block on the current page
}

func (pl *planner) place(i int) {
	id := pl.roots[i]
	n := pl.tree.At(id)
	h := pl.heights[id]

	switch d := n.Data.(type) {
	case document.Cover:
		pl.freshPage()
		pl.assign(id, pl.page, pl.page)
		pl.full = true

	case document.TOC:
		pl.freshPage()
		end := pl.page + max(d.Pages, 1) - 1
		pl.assign(id, pl.page, end)
		pl.page = end
		pl.full = true

	case document.ManualPageBreak:
		pl.assign(id, pl.page, pl.page)
		if pl.hasContent() {
			pl.full = true
		}

	case document.Heading:
		pl.placeHeading(i, d.Level, h)

	case document.Paragraph, document.List:
		pl.placeLines(i)

	case document.CodeBlock, document.Table, document.Image, document.KeepTogether, document.Raw:
		pl.placeAtomic(i, h)

	default:
		panic("layout: unplanned block kind " + n.Kind().String())
	}
}

func (pl *planner) placeHeading(i, level int, h float64) {
	id := pl.roots[i]
	switch {
	case level == 1:
		pl.freshPage()
	case level <= 3:
		if pl.hasContent() && !pl.fits(h+pl.p.Metrics.BlockSpacing+pl.minFollow(i)) {
			pl.breakBefore(i, h)
		}
	default:
		if pl.hasContent() && !pl.fits(h) {
			pl.breakBefore(i, h)
		}
	}
	pl.ensureOpen()
	pl.assign(id, pl.page, pl.page)
	pl.advance(id, h)
}

func (pl *planner) placeAtomic(i int, h float64) {
	id := pl.roots[i]
	if h > pl.p.Budget+epsilon {
		pl.freshPage()
		spill := int(math.Ceil(h/pl.p.Budget - epsilon))
		end := pl.page + spill - 1
		pl.assign(id, pl.page, end)
		pl.asg.Oversized = append(pl.asg.Oversized, id)
		pl.page = end
		pl.used = pl.p.Budget
		pl.full = true
		return
	}
	if pl.hasContent() && !pl.fits(h) {
		pl.breakBefore(i, h)
	}
	pl.ensureOpen()
	pl.assign(id, pl.page, pl.page)
	pl.advance(id, h)
}

// placeLines places a paragraph or list, splitting it across pages as
// often as needed.
func (pl *planner) placeLines(i int) {
	id := pl.roots[i]
	lh := pl.p.Metrics.LineHeight
	total := pl.lines[id]
	remaining := total
	start := 0
	var frags []Fragment

	for remaining > 0 {
		pl.ensureOpen()
		avail := int(math.Floor((pl.p.Budget-pl.used)/lh + epsilon))
		if remaining <= avail {
			if start == 0 {
				start = pl.page
			}
			frags = append(frags, Fragment{Node: id, Page: pl.page, Lines: remaining})
			pl.used += float64(remaining)*lh + pl.p.Metrics.BlockSpacing
			pl.markFirst(id)
			break
		}

		take := min(avail, remaining-pl.p.Widows)
		switch {
		case take >= pl.p.Orphans:
			// regular split honouring orphans and widows
		case !pl.hasContent():
			// an empty page cannot be improved on; split where the page ends
			take = max(1, avail)
			if remaining-take < pl.p.Widows && remaining-pl.p.Widows >= 1 {
				take = remaining - pl.p.Widows
			}
		default:
			pl.breakBefore(i, min(float64(remaining), float64(pl.p.Orphans))*lh)
			continue
		}

		if start == 0 {
			start = pl.page
		}
		frags = append(frags, Fragment{Node: id, Page: pl.page, Lines: take})
		pl.markFirst(id)
		remaining -= take
		pl.newPage()
	}

	pl.assign(id, start, pl.page)
	if len(frags) > 1 {
		pl.asg.Fragments = append(pl.asg.Fragments, frags...)
	}
}

// minFollow is the height the block after a heading needs on the same page.
func (pl *planner) minFollow(i int) float64 {
	if i+1 >= len(pl.roots) {
		return 0
	}
	next := pl.roots[i+1]
	h := pl.heights[next]
	switch k := pl.tree.At(next).Kind(); {
	case k == document.KindParagraph || k == document.KindList:
		lines := pl.lines[next]
		if lines < pl.p.Orphans+pl.p.Widows {
			return float64(lines) * pl.p.Metrics.LineHeight
		}
		return float64(pl.p.Orphans) * pl.p.Metrics.LineHeight
	case k == document.KindHeading:
		return h
	case k.Atomic():
		if h <= pl.p.Budget+epsilon {
			return h
		}
	}
	return 0
}

// breakBefore moves block i to a new page, taking the previous block along
// when i asks to avoid a break before it and both fit.
func (pl *planner) breakBefore(i int, need float64) {
	if i > 0 && pl.tree.At(pl.roots[i]).AvoidBreakBefore {
		prev := pl.roots[i-1]
		if pl.canPull(prev, need) {
			pl.newPage()
			pl.assign(prev, pl.page, pl.page)
			pl.advance(prev, pl.heights[prev])
			return
		}
	}
	pl.newPage()
}

func (pl *planner) canPull(prev document.NodeID, need float64) bool {
	switch pl.tree.At(prev).Kind() {
	case document.KindCover, document.KindTOC, document.KindManualPageBreak:
		return false
	}
	return pl.first != prev &&
		pl.asg.Pages[prev] == pl.page &&
		pl.asg.EndPages[prev] == pl.page &&
		pl.heights[prev]+pl.p.Metrics.BlockSpacing+need <= pl.p.Budget+epsilon
}

func (pl *planner) assign(id document.NodeID, start, end int) {
	set := func(n document.NodeID) {
		pl.asg.Pages[n] = start
		pl.asg.EndPages[n] = end
		if h, ok := pl.tree.At(n).Data.(document.Heading); ok {
			pl.asg.HeadingPages[h.ID] = start
		}
	}
	set(id)
	for _, c := range pl.tree.Descendants(id) {
		set(c)
	}
}

func (pl *planner) advance(id document.NodeID, h float64) {
	pl.markFirst(id)
	pl.used += h + pl.p.Metrics.BlockSpacing
}

func (pl *planner) markFirst(id document.NodeID) {
	if pl.first == document.NoParent {
		pl.first = id
	}
}

func (pl *planner) fits(h float64) bool {
	return pl.used+h <= pl.p.Budget+epsilon
}

func (pl *planner) hasContent() bool {
	return pl.used > 0 || pl.full
}

// freshPage makes sure the next block starts at the top of a page.
func (pl *planner) freshPage() {
	if pl.hasContent() {
		pl.newPage()
	}
}

// ensureOpen moves past a page closed by a cover, TOC, break or spill.
func (pl *planner) ensureOpen() {
	if pl.full {
		pl.newPage()
	}
}

func (pl *planner) newPage() {
	pl.page++
	pl.used = 0
	pl.full = false
	pl.first = document.NoParent
}
