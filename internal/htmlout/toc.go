package htmlout

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// tocMarkup renders a numbered, nested table of contents with page numbers.
// A TOC planned over several pages gets a minimum height so the content
// after it starts where the planner expects.
func tocMarkup(entries []toc.Entry, title string, pages int, budget float64) string {
	var buf strings.Builder
	buf.WriteString(`<nav class="b2p-toc"`)
	if pages > 1 && budget > 0 {
		fmt.Fprintf(&buf, ` style="min-height:%.0fpt"`, float64(pages-1)*budget+1)
	}
	buf.WriteString(`>`)

	if title != "" {
		buf.WriteString(`<h2 class="b2p-toc-title">`)
		buf.WriteString(html.EscapeString(title))
		buf.WriteString(`</h2>`)
	}
	buf.WriteString(`<ol class="b2p-toc-list">`)

	depth, open := 1, false
	for _, e := range entries {
		d := max(e.Depth, 1)
		for depth > d {
			buf.WriteString(`</li></ol>`)
			depth--
		}
		if depth == d && open {
			buf.WriteString(`</li>`)
		}
		for depth < d {
			if !open {
				buf.WriteString(`<li>`)
			}
			buf.WriteString(`<ol>`)
			depth++
			open = false
		}

		buf.WriteString(`<li><div class="b2p-toc-line"><a href="#`)
		buf.WriteString(html.EscapeString(e.Target))
		buf.WriteString(`"><span class="b2p-toc-num">`)
		buf.WriteString(e.Number)
		buf.WriteString(`</span> `)
		buf.WriteString(html.EscapeString(e.Text))
		buf.WriteString(`</a><span class="b2p-toc-leader"></span><span class="b2p-toc-page">`)
		buf.WriteString(strconv.Itoa(e.Page))
		buf.WriteString(`</span></div>`)
		open = true
	}
	if open {
		buf.WriteString(`</li>`)
	}
	for ; depth > 1; depth-- {
		buf.WriteString(`</ol></li>`)
	}
	buf.WriteString(`</ol></nav>`)
	return buf.String()
}
