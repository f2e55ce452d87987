package assemble

import (
	"sort"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// lineIndex maps byte offsets in the source to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) line(offset int) int {
	return sort.SearchInts(li, offset+1)
}

var fenceLogKey = parser.NewContextKey()

// fenceLog records, per parse, where each fenced code block opened and
// whether its closing fence was seen.
type fenceLog struct {
	opened map[ast.Node]int // node -> source offset of the opening line
	closed map[ast.Node]bool
}

func fencesOf(pc parser.Context) *fenceLog {
	if l, ok := pc.Get(fenceLogKey).(*fenceLog); ok {
		return l
	}
	l := &fenceLog{opened: map[ast.Node]int{}, closed: map[ast.Node]bool{}}
	pc.Set(fenceLogKey, l)
	return l
}

// firstUnclosed returns the offset of the earliest fence that ran to the
// end of its container without a closing line.
func (l *fenceLog) firstUnclosed() (int, bool) {
	first, found := 0, false
	for n, off := range l.opened {
		if l.closed[n] {
			continue
		}
		if !found || off < first {
			first, found = off, true
		}
	}
	return first, found
}

// fenceTracker wraps goldmark's fenced code parser, so indentation,
// containers and HTML blocks follow CommonMark exactly.
type fenceTracker struct {
	parser.BlockParser
}

// fenceParser outranks the default fenced code parser (priority 700).
func fenceParser() util.PrioritizedValue {
	return util.Prioritized(fenceTracker{parser.NewFencedCodeBlockParser()}, 699)
}

func (f fenceTracker) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	_, seg := reader.PeekLine()
	n, st := f.BlockParser.Open(parent, reader, pc)
	if n != nil {
		fencesOf(pc).opened[n] = seg.Start
	}
	return n, st
}

func (f fenceTracker) Continue(n ast.Node, reader text.Reader, pc parser.Context) parser.State {
	st := f.BlockParser.Continue(n, reader, pc)
	if st&parser.Close != 0 {
		fencesOf(pc).closed[n] = true
	}
	return st
}
