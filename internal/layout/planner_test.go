package layout_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/layout"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// testParams gives ten 10pt lines per page, ten characters per line, and no
// spacing, so heights are easy to count.
func testParams() layout.Params {
	return layout.Params{
		Budget:  100,
		Orphans: 2,
		Widows:  2,
		Metrics: layout.Metrics{
			CharsPerLine:       10,
			LineHeight:         10,
			HeadingLineHeights: [6]float64{10, 10, 10, 10, 10, 10},
			CodeLineHeight:     10,
			TableRowHeight:     10,
			DefaultImageHeight: 40,
			ContentWidth:       300,
		},
	}
}

type treeBuilder struct {
	b document.Builder
}

func (tb *treeBuilder) add(p document.Payload) document.NodeID {
	return tb.b.Add(document.NoParent, document.Node{Data: p})
}

func (tb *treeBuilder) addAvoid(p document.Payload) document.NodeID {
	return tb.b.Add(document.NoParent, document.Node{Data: p, AvoidBreakBefore: true})
}

func para(lines int) document.Paragraph {
	return document.Paragraph{Runs: []document.Run{{Text: strings.Repeat("x", 10*lines)}}}
}

func code(lines int) document.CodeBlock {
	return document.CodeBlock{Text: strings.Repeat("x\n", lines)}
}

func table(rows int) document.Table {
	t := document.Table{}
	for range rows {
		t.Rows = append(t.Rows, []string{"cell"})
	}
	return t
}

// heading returns a one-line heading with an id unique within tb.
func (tb *treeBuilder) heading(level int) document.Heading {
	return document.Heading{Level: level, Text: "H", ID: fmt.Sprintf("h%d", tb.b.Len())}
}

// ---------------------------------------------------------------------------
// TestPlan - Headings
// ---------------------------------------------------------------------------

func TestPlan_FirstH1DoesNotBreak(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	h := tb.add(document.Heading{Level: 1, Text: "Intro", ID: "intro"})
	p := tb.add(para(2))
	a := layout.Plan(tb.b.Build(), testParams())

	if a.Page(h) != 1 || a.Page(p) != 1 {
		t.Errorf("pages = %d, %d, want 1, 1", a.Page(h), a.Page(p))
	}
	if a.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", a.TotalPages)
	}
	if a.HeadingPages["intro"] != 1 {
		t.Errorf("HeadingPages = %v", a.HeadingPages)
	}
}

func TestPlan_LaterH1StartsNewPage(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	tb.add(para(1))
	h := tb.add(document.Heading{Level: 1, Text: "Next", ID: "next"})
	a := layout.Plan(tb.b.Build(), testParams())

	if a.Page(h) != 2 {
		t.Errorf("H1 page = %d, want 2", a.Page(h))
	}
}

func TestPlan_HeadingKeepsWithNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		next     document.Payload
		wantPage int
	}{
		// 80 used + 10 heading + 20 (two orphan lines) > 100
		{name: "splittable paragraph", next: para(5), wantPage: 2},
		// 80 + 10 + 10 fits exactly
		{name: "one line paragraph", next: para(1), wantPage: 1},
		// a 3-line paragraph cannot split, so all of it must fit
		{name: "short unsplittable paragraph", next: para(3), wantPage: 2},
		{name: "atomic block that fits a page", next: code(2), wantPage: 2},
		// an oversized block gets its own pages anyway
		{name: "oversized atomic", next: table(30), wantPage: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var tb treeBuilder
			tb.add(para(8))
			h := tb.add(document.Heading{Level: 2, Text: "Section", ID: "s"})
			tb.add(tt.next)
			a := layout.Plan(tb.b.Build(), testParams())

			if got := a.Page(h); got != tt.wantPage {
				t.Errorf("H2 page = %d, want %d", got, tt.wantPage)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPlan - Atomic blocks
// ---------------------------------------------------------------------------

func TestPlan_AtomicMovesWhole(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	tb.add(para(8))
	c := tb.add(code(3))
	a := layout.Plan(tb.b.Build(), testParams())

	if a.Pages[c] != 2 || a.EndPages[c] != 2 {
		t.Errorf("code pages = %d-%d, want 2-2", a.Pages[c], a.EndPages[c])
	}
}

func TestPlan_OversizedAtomicSpills(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	tb.add(para(1))
	big := tb.add(table(15))
	after := tb.add(para(1))
	a := layout.Plan(tb.b.Build(), testParams())

	if a.Pages[big] != 2 || a.EndPages[big] != 3 {
		t.Errorf("table pages = %d-%d, want 2-3", a.Pages[big], a.EndPages[big])
	}
	if len(a.Oversized) != 1 || a.Oversized[0] != big {
		t.Errorf("Oversized = %v", a.Oversized)
	}
	if a.Page(after) != 4 {
		t.Errorf("block after spill on page %d, want 4", a.Page(after))
	}
	if a.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", a.TotalPages)
	}
}

func TestPlan_KeepTogetherChildrenSharePage(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	tb.add(para(8))
	group := tb.add(document.KeepTogether{})
	h := tb.b.Add(group, document.Node{Data: tb.heading(3)})
	p := tb.b.Add(group, document.Node{Data: para(2)})
	a := layout.Plan(tb.b.Build(), testParams())

	if a.Page(group) != 2 || a.Page(h) != 2 || a.Page(p) != 2 {
		t.Errorf("group/children pages = %d/%d/%d, want all 2", a.Page(group), a.Page(h), a.Page(p))
	}
}

func TestPlan_AtomicBlocksNeverSplit(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	var atomics []document.NodeID
	for i := range 40 {
		switch i % 5 {
		case 0:
			tb.add(para(i%13 + 1))
		case 1:
			atomics = append(atomics, tb.add(code(i%7+1)))
		case 2:
			atomics = append(atomics, tb.add(table(i%9+1)))
		case 3:
			tb.add(tb.heading(i%3 + 1))
		case 4:
			atomics = append(atomics, tb.add(document.Image{Width: 400, Height: 50 + i}))
		}
	}
	a := layout.Plan(tb.b.Build(), testParams())

	for _, id := range atomics {
		if a.Pages[id] != a.EndPages[id] {
			t.Errorf("atomic node %d spans pages %d-%d", id, a.Pages[id], a.EndPages[id])
		}
	}
	for i := 1; i < len(a.Pages); i++ {
		if a.Pages[i] < a.Pages[i-1] {
			t.Fatalf("pages decrease at node %d: %v", i, a.Pages)
		}
	}
}

// ---------------------------------------------------------------------------
// TestPlan - Manual breaks
// ---------------------------------------------------------------------------

func TestPlan_ManualBreaks(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	tb.add(document.ManualPageBreak{})
	first := tb.add(para(1))
	tb.add(document.ManualPageBreak{})
	tb.add(document.ManualPageBreak{})
	second := tb.add(para(1))
	tb.add(document.ManualPageBreak{})
	a := layout.Plan(tb.b.Build(), testParams())

	if a.Page(first) != 1 {
		t.Errorf("leading break created a blank page: first on %d", a.Page(first))
	}
	if a.Page(second) != 2 {
		t.Errorf("double break: second on %d, want 2", a.Page(second))
	}
	if a.TotalPages != 2 {
		t.Errorf("trailing break added a page: TotalPages = %d", a.TotalPages)
	}
}

// ---------------------------------------------------------------------------
// TestPlan - Paragraph splitting
// ---------------------------------------------------------------------------

func TestPlan_ParagraphSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		before    int // lines already on the page
		lines     int
		wantStart int
		wantFrags []int // lines per page, nil when not split
	}{
		{name: "fits", before: 5, lines: 5, wantStart: 1},
		{name: "split honours both sides", before: 7, lines: 5, wantStart: 1, wantFrags: []int{3, 2}},
		{name: "orphan would be left behind", before: 9, lines: 5, wantStart: 2},
		{name: "widow would be carried over", before: 8, lines: 3, wantStart: 2},
		{name: "widow shrinks first part", before: 7, lines: 4, wantStart: 1, wantFrags: []int{2, 2}},
		{name: "taller than a page", before: 0, lines: 25, wantStart: 1, wantFrags: []int{10, 10, 5}},
		{name: "orphans on each of several pages", before: 6, lines: 23, wantStart: 1, wantFrags: []int{4, 10, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var tb treeBuilder
			if tt.before > 0 {
				tb.add(para(tt.before))
			}
			p := tb.add(para(tt.lines))
			a := layout.Plan(tb.b.Build(), testParams())

			if a.Page(p) != tt.wantStart {
				t.Errorf("start page = %d, want %d", a.Page(p), tt.wantStart)
			}
			var got []int
			for _, f := range a.Fragments {
				if f.Node == p {
					got = append(got, f.Lines)
				}
			}
			if !reflect.DeepEqual(got, tt.wantFrags) {
				t.Errorf("fragments = %v, want %v", got, tt.wantFrags)
			}
			if tt.wantFrags != nil && a.EndPages[p] != tt.wantStart+len(tt.wantFrags)-1 {
				t.Errorf("end page = %d", a.EndPages[p])
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPlan - Avoid break before
// ---------------------------------------------------------------------------

func TestPlan_AvoidBreakBefore(t *testing.T) {
	t.Parallel()

	t.Run("pulls previous block", func(t *testing.T) {
		t.Parallel()

		var tb treeBuilder
		a1 := tb.add(para(3))
		a2 := tb.add(para(4))
		c := tb.addAvoid(code(5))
		a := layout.Plan(tb.b.Build(), testParams())

		if a.Page(a1) != 1 || a.Page(a2) != 2 || a.Page(c) != 2 {
			t.Errorf("pages = %d, %d, %d, want 1, 2, 2", a.Page(a1), a.Page(a2), a.Page(c))
		}
	})

	t.Run("never empties a page", func(t *testing.T) {
		t.Parallel()

		var tb treeBuilder
		first := tb.add(para(8))
		c := tb.addAvoid(code(5))
		a := layout.Plan(tb.b.Build(), testParams())

		if a.Page(first) != 1 || a.Page(c) != 2 {
			t.Errorf("pages = %d, %d, want 1, 2", a.Page(first), a.Page(c))
		}
	})

	t.Run("only when both fit", func(t *testing.T) {
		t.Parallel()

		var tb treeBuilder
		tb.add(para(2))
		prev := tb.add(para(6))
		c := tb.addAvoid(code(5))
		a := layout.Plan(tb.b.Build(), testParams())

		if a.Page(prev) != 1 || a.Page(c) != 2 {
			t.Errorf("pages = %d, %d, want 1, 2", a.Page(prev), a.Page(c))
		}
	})
}

// ---------------------------------------------------------------------------
// TestPlan - Branding blocks
// ---------------------------------------------------------------------------

func TestPlan_CoverAndTOC(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	h := tb.add(document.Heading{Level: 1, Text: "Intro", ID: "intro"})
	tb.add(para(3))
	tree := tb.b.Build()

	tree, cover := tree.Prepend(document.Node{Data: document.Cover{Title: "T"}})
	tree, toc := tree.InsertAfter(cover, document.Node{Data: document.TOC{Pages: 2}})
	a := layout.Plan(tree, testParams())

	if a.Page(cover) != 1 || a.EndPages[cover] != 1 {
		t.Errorf("cover pages = %d-%d", a.Page(cover), a.EndPages[cover])
	}
	if a.Page(toc) != 2 || a.EndPages[toc] != 3 {
		t.Errorf("toc pages = %d-%d, want 2-3", a.Page(toc), a.EndPages[toc])
	}
	if a.Page(h) != 4 || a.HeadingPages["intro"] != 4 {
		t.Errorf("heading page = %d", a.Page(h))
	}
	if a.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", a.TotalPages)
	}
}

// ---------------------------------------------------------------------------
// TestPlan - Determinism
// ---------------------------------------------------------------------------

func TestPlan_Deterministic(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	for i := range 60 {
		switch i % 4 {
		case 0:
			tb.add(tb.heading(i%3 + 1))
		case 1:
			tb.add(para(i%17 + 1))
		case 2:
			tb.addAvoid(table(i%11 + 1))
		case 3:
			tb.add(document.ManualPageBreak{})
		}
	}
	tree := tb.b.Build()

	first := layout.Plan(tree, testParams())
	second := layout.Plan(tree, testParams())
	if !reflect.DeepEqual(first, second) {
		t.Error("two passes over the same tree differ")
	}
}

func TestPlan_EmptyTree(t *testing.T) {
	t.Parallel()

	var tb treeBuilder
	a := layout.Plan(tb.b.Build(), testParams())
	if a.TotalPages != 0 {
		t.Errorf("TotalPages = %d, want 0", a.TotalPages)
	}
}
