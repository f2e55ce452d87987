// Package document defines the block tree a conversion works on.
//
// Nodes live in an arena addressed by NodeID. Parent/child links are index
// lists, so a tree can be copied cheaply and never holds cycles. Trees are
// treated as immutable once built: operations that add nodes return a new
// Tree sharing the untouched parts of the old one.
package document

import "fmt"

// NodeID addresses a node inside a Tree's arena.
type NodeID int

// NoParent marks a root node.
const NoParent NodeID = -1

// Kind identifies the block variant of a node.
type Kind uint8

// Block kinds.
const (
	KindHeading Kind = iota + 1
	KindParagraph
	KindList
	KindCodeBlock
	KindTable
	KindImage
	KindKeepTogether
	KindManualPageBreak
	KindRaw
	KindCover
	KindTOC
)

var kindNames = map[Kind]string{
	KindHeading:         "heading",
	KindParagraph:       "paragraph",
	KindList:            "list",
	KindCodeBlock:       "code block",
	KindTable:           "table",
	KindImage:           "image",
	KindKeepTogether:    "keep-together",
	KindManualPageBreak: "page break",
	KindRaw:             "raw",
	KindCover:           "cover",
	KindTOC:             "table of contents",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Atomic reports whether blocks of this kind must stay on a single page.
func (k Kind) Atomic() bool {
	switch k {
	case KindTable, KindCodeBlock, KindImage, KindKeepTogether, KindRaw:
		return true
	}
	return false
}

// Payload is the kind-specific content of a node. The set of payloads is
// closed: only types in this package implement it.
type Payload interface {
	Kind() Kind
	sealed()
}

// Heading is a section title. ID is the anchor used by the TOC and bookmarks.
type Heading struct {
	Level int
	Text  string
	ID    string
}

// RunStyle flags inline formatting of a text run.
type RunStyle uint8

// Inline styles.
const (
	RunEmphasis RunStyle = 1 << iota
	RunStrong
	RunCode
	RunLink
	RunStrike
)

// Run is a span of inline text with uniform style.
type Run struct {
	Text  string
	Style RunStyle
	Href  string
}

// Paragraph is splittable prose. Quote marks blockquote content.
type Paragraph struct {
	Runs  []Run
	Quote bool
}

// ListItem is one flattened list entry; Depth 0 is the outermost list.
type ListItem struct {
	Depth int
	Text  string
}

// List is splittable like a paragraph, one item after another.
type List struct {
	Ordered bool
	Items   []ListItem
}

// CodeBlock is a fenced or indented code block.
type CodeBlock struct {
	Language string
	Text     string
}

// Table holds cell text row by row; Header marks the first row as a header.
type Table struct {
	Rows   [][]string
	Header bool
}

// Image references an archive asset. Width and Height are pixel dimensions
// when the image could be decoded, zero otherwise.
type Image struct {
	Asset  string
	Alt    string
	Width  int
	Height int
}

// KeepTogether groups its children into one atomic unit.
type KeepTogether struct{}

// ManualPageBreak forces the next block onto a new page.
type ManualPageBreak struct{}

// Raw is markup passed through to the renderer untouched.
type Raw struct {
	Markup string
}

// Cover is the branded title page.
type Cover struct {
	Title        string
	Subtitle     string
	Organization string
	Logo         string
	Date         string
}

// TOC reserves Pages pages for the table of contents.
type TOC struct {
	Title string
	Pages int
}

func (Heading) Kind() Kind         { return KindHeading }
func (Paragraph) Kind() Kind       { return KindParagraph }
func (List) Kind() Kind            { return KindList }
func (CodeBlock) Kind() Kind       { return KindCodeBlock }
func (Table) Kind() Kind           { return KindTable }
func (Image) Kind() Kind           { return KindImage }
func (KeepTogether) Kind() Kind    { return KindKeepTogether }
func (ManualPageBreak) Kind() Kind { return KindManualPageBreak }
func (Raw) Kind() Kind             { return KindRaw }
func (Cover) Kind() Kind           { return KindCover }
func (TOC) Kind() Kind             { return KindTOC }

func (Heading) sealed()         {}
func (Paragraph) sealed()       {}
func (List) sealed()            {}
func (CodeBlock) sealed()       {}
func (Table) sealed()           {}
func (Image) sealed()           {}
func (KeepTogether) sealed()    {}
func (ManualPageBreak) sealed() {}
func (Raw) sealed()             {}
func (Cover) sealed()           {}
func (TOC) sealed()             {}

// PlainText joins the runs of a paragraph.
func (p Paragraph) PlainText() string {
	n := 0
	for _, r := range p.Runs {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range p.Runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// Node is one block in the arena.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Children []NodeID
	Data     Payload

	// AvoidBreakBefore asks the planner not to separate this block from the
	// one before it.
	AvoidBreakBefore bool

	// HTML is the rendered fragment for this block, children excluded for
	// container kinds.
	HTML string

	// Line is the 1-based source line the block starts on, 0 if synthetic.
	Line int
}

// Kind returns the kind of the node's payload.
func (n Node) Kind() Kind {
	if n.Data == nil {
		return 0
	}
	return n.Data.Kind()
}
