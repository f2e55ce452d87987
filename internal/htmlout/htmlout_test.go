package htmlout_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/htmlout"
	"github.com/alnah/go-bundle2pdf/internal/layout"
	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// fixture builds cover, TOC, H1, paragraph, keep-together(image), break, H2.
type fixture struct {
	tree *document.Tree
	asg  *layout.Assignment
}

func newFixture() fixture {
	var b document.Builder
	b.Add(document.NoParent, document.Node{Data: document.Cover{Title: "Doc"}, HTML: `<section class="b2p-cover">Doc</section>`})
	b.Add(document.NoParent, document.Node{Data: document.TOC{Title: "Contents", Pages: 1}})
	b.Add(document.NoParent, document.Node{Data: document.Heading{Level: 1, Text: "Intro", ID: "intro"}, HTML: `<h1 id="intro">Intro</h1>`})
	b.Add(document.NoParent, document.Node{Data: document.Paragraph{Runs: []document.Run{{Text: "Hello"}}}, HTML: `<p onclick="x()">Hello<script>alert(1)</script></p>`})
	keep := b.Add(document.NoParent, document.Node{Data: document.KeepTogether{}})
	b.Add(keep, document.Node{Data: document.Image{Asset: "img/a b.png"}, HTML: `<p><img src="./img/a%20b.png" alt="a"></p>`})
	b.Add(document.NoParent, document.Node{Data: document.ManualPageBreak{}})
	b.Add(document.NoParent, document.Node{Data: document.Heading{Level: 2, Text: "Next", ID: "section-2"}, HTML: `<h2>Next</h2>`})

	// cover 1, toc 2, h1 3, para 3, keep 3 (+image), break 3, h2 4
	pages := []int{1, 2, 3, 3, 3, 3, 3, 4}
	return fixture{
		tree: b.Build(),
		asg: &layout.Assignment{
			Pages:      pages,
			EndPages:   append([]int(nil), pages...),
			TotalPages: 4,
		},
	}
}

func entries() []toc.Entry {
	return []toc.Entry{
		{Text: "Intro", Level: 1, Depth: 1, Number: "1.", Target: "intro", Page: 3},
		{Text: "Next & Last", Level: 2, Depth: 2, Number: "1.1.", Target: "section-2", Page: 4},
	}
}

// ---------------------------------------------------------------------------
// TestBuild - Document assembly
// ---------------------------------------------------------------------------

func TestBuild_PageBoundaries(t *testing.T) {
	t.Parallel()

	f := newFixture()
	out, err := htmlout.Build(htmlout.Input{
		Tree:       f.tree,
		Assignment: f.asg,
		Entries:    entries(),
		TOCTitle:   "Contents",
		Title:      "Doc <1>",
		Style:      "body{color:red}",
		Root:       filepath.FromSlash("/work/bundle"),
		Budget:     700,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// cover|toc, toc|h1, keep..h2
	if got := strings.Count(out, `class="b2p-break"`); got != 3 {
		t.Errorf("break markers = %d, want 3\n%s", got, out)
	}
	for _, want := range []string{
		"<title>Doc &lt;1&gt;</title>",
		"body{color:red}",
		".chroma",
		`<h2 id="section-2">Next</h2>`,
		`<div class="keep-together">`,
		`href="#section-2"`,
		"Next &amp; Last",
		`<span class="b2p-toc-page">4</span>`,
		`src="file:///work/bundle/img/a%20b.png"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	for _, banned := range []string{"<script", "onclick", "alert(1)"} {
		if strings.Contains(out, banned) {
			t.Errorf("output still contains %q", banned)
		}
	}

	h1 := strings.Index(out, `id="intro"`)
	brk := strings.LastIndex(out[:h1], `class="b2p-break"`)
	if brk < 0 || strings.Contains(out[brk:h1], "b2p-toc-page") {
		t.Error("H1 should follow a break marker placed after the TOC")
	}
}

func TestBuild_SplitBlockHasNoBreak(t *testing.T) {
	t.Parallel()

	var b document.Builder
	b.Add(document.NoParent, document.Node{Data: document.Paragraph{}, HTML: "<p>long</p>"})
	b.Add(document.NoParent, document.Node{Data: document.Paragraph{}, HTML: "<p>after</p>"})
	asg := &layout.Assignment{Pages: []int{1, 2}, EndPages: []int{2, 2}, TotalPages: 2}

	out, err := htmlout.Build(htmlout.Input{Tree: b.Build(), Assignment: asg})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "b2p-break") {
		t.Error("a block that continues a split paragraph's page must not get a break")
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tests := []struct {
		name string
		in   htmlout.Input
	}{
		{name: "no tree", in: htmlout.Input{Assignment: f.asg}},
		{name: "no assignment", in: htmlout.Input{Tree: f.tree}},
		{name: "short assignment", in: htmlout.Input{Tree: f.tree, Assignment: &layout.Assignment{Pages: []int{1}, EndPages: []int{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := htmlout.Build(tt.in); !errors.Is(err, htmlout.ErrBuild) {
				t.Errorf("Build() error = %v, want ErrBuild", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBuild - Image rewriting
// ---------------------------------------------------------------------------

func TestBuild_ImageSources(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/bundle")
	tests := []struct {
		name string
		src  string
		want string
		gone bool
	}{
		{name: "relative", src: "img/a.png", want: `src="file:///work/bundle/img/a.png"`},
		{name: "remote untouched", src: "https://example.com/a.png", want: `src="https://example.com/a.png"`},
		{name: "data untouched", src: "data:image/png;base64,AAAA", want: `src="data:image/png;base64,AAAA"`},
		{name: "escaping dropped", src: "../../etc/passwd", gone: true},
		{name: "absolute dropped", src: "/etc/passwd", gone: true},
		{name: "script dropped", src: "javascript:alert(1)", gone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var b document.Builder
			b.Add(document.NoParent, document.Node{Data: document.Raw{}, HTML: `<img src="` + tt.src + `" alt="x">`})
			out, err := htmlout.Build(htmlout.Input{
				Tree:       b.Build(),
				Assignment: &layout.Assignment{Pages: []int{1}, EndPages: []int{1}, TotalPages: 1},
				Root:       root,
			})
			if err != nil {
				t.Fatal(err)
			}
			if tt.gone {
				if strings.Contains(out, "src=") {
					t.Errorf("src should be removed:\n%s", out)
				}
				return
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}
