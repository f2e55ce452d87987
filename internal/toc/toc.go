// Package toc resolves the table of contents against the page plan.
//
// The TOC lists page numbers, but its own pages push every heading after
// it. Resolve plans once without a TOC, sizes the TOC from the headings,
// then re-plans with the TOC in place until the layout stops moving or the
// pass budget runs out.
package toc

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/layout"
)

// DefaultMaxPasses bounds planner runs, the dry pass included.
const DefaultMaxPasses = 3

// leader is the shortest dot leader an entry line can have.
const leader = " ... "

// Entry is one TOC line.
type Entry struct {
	Text   string
	Level  int // heading level, 1-3
	Depth  int // nesting depth after normalization
	Number string
	Target string // heading id
	Node   document.NodeID
	Page   int
}

// PlanFunc runs one planner pass.
type PlanFunc func(*document.Tree, layout.Params) *layout.Assignment

// Options configures Resolve.
type Options struct {
	Include   bool
	Title     string
	MaxDepth  int // deepest heading level listed, 1-3
	MaxPasses int
	Params    layout.Params
	Plan      PlanFunc // nil means layout.Plan
}

// Result is the settled layout.
type Result struct {
	Tree       *document.Tree // input tree plus the TOC node when included
	Assignment *layout.Assignment
	Entries    []Entry
	Bookmarks  []Bookmark
	TOCNode    document.NodeID // NoParent when no TOC was inserted
	TOCPages   int
	Passes     int
	Converged  bool
}

// Resolve runs the convergence loop. Entry pages always come from the
// returned Assignment, converged or not. The context is checked before
// every planner pass.
func Resolve(ctx context.Context, tree *document.Tree, opts Options) (*Result, error) {
	opts = withDefaults(opts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	asg := opts.Plan(tree, opts.Params)
	res := &Result{Tree: tree, Assignment: asg, TOCNode: document.NoParent, Passes: 1}
	entries := collect(tree, opts.MaxDepth)

	if !opts.Include || len(entries) == 0 {
		res.Converged = true
		res.finish(entries)
		return res, nil
	}

	anchor, ok := tree.FirstRoot(document.KindCover)
	if !ok {
		anchor = document.NoParent
	}

	pages := Estimate(entries, asg, opts.Title, opts.Params)
	for res.Passes < opts.MaxPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		withTOC, id := tree.InsertAfter(anchor, document.Node{Data: document.TOC{Title: opts.Title, Pages: pages}})
		asg = opts.Plan(withTOC, opts.Params)
		res.Passes++
		res.Tree, res.Assignment, res.TOCNode, res.TOCPages = withTOC, asg, id, pages

		// The layout is settled once the TOC sized from this pass's pages is
		// the TOC just planned: the next pass would plan the same tree, and
		// Plan is pure, so its heading->page map would equal this one.
		next := Estimate(entries, asg, opts.Title, opts.Params)
		if next == pages {
			res.Converged = true
			break
		}
		pages = next
	}

	res.finish(entries)
	return res, nil
}

func withDefaults(o Options) Options {
	if o.Plan == nil {
		o.Plan = layout.Plan
	}
	if o.MaxPasses < 2 {
		o.MaxPasses = DefaultMaxPasses
	}
	if o.MaxDepth < 1 || o.MaxDepth > 3 {
		o.MaxDepth = 3
	}
	return o
}

// finish stamps final pages on the entries and derives the bookmarks.
func (r *Result) finish(entries []Entry) {
	for i := range entries {
		entries[i].Page = r.Assignment.HeadingPages[entries[i].Target]
	}
	r.Entries = entries
	r.Bookmarks = Bookmarks(entries)
}

// collect lists headings up to maxDepth in document order and numbers them.
func collect(tree *document.Tree, maxDepth int) []Entry {
	var num numbering
	var entries []Entry
	for _, n := range tree.Headings() {
		h := n.Data.(document.Heading)
		if h.Level > maxDepth {
			continue
		}
		label, depth := num.next(h.Level)
		entries = append(entries, Entry{
			Text:   h.Text,
			Level:  h.Level,
			Depth:  depth,
			Number: label,
			Target: h.ID,
			Node:   n.ID,
		})
	}
	return entries
}

// Estimate returns how many pages the TOC needs when its page numbers come
// from asg. The title is set like a level-2 heading; each entry is its
// indentation, number, text, a dot leader and the page digits, wrapped at
// the configured line width.
func Estimate(entries []Entry, asg *layout.Assignment, title string, p layout.Params) int {
	m := p.Metrics
	h := 0.0
	if title != "" {
		h += m.HeadingHeight(2, title) + m.BlockSpacing
	}
	for _, e := range entries {
		line := strings.Repeat(" ", 4*(e.Depth-1)) + e.Number + " " + e.Text + leader +
			strconv.Itoa(max(asg.HeadingPages[e.Target], 1))
		h += float64(layout.TextLines(line, m.CharsPerLine)) * m.LineHeight
	}
	if p.Budget <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(h/p.Budget-1e-9)))
}
