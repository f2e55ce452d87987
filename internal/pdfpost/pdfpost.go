// Package pdfpost inspects and amends the PDF produced by the browser: it
// counts pages, finds where headings actually landed, and writes the
// document outline.
package pdfpost

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// ErrPostProcess reports a PDF that could not be read or amended.
var ErrPostProcess = errors.New("PDF post-processing failed")

func config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Count returns the number of pages in data.
func Count(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), config())
	if err != nil {
		return 0, fmt.Errorf("%w: counting pages: %v", ErrPostProcess, err)
	}
	return n, nil
}

// AddBookmarks returns data with an outline built from bms, one outline
// item per bookmark. Pages past the end of the document point at the last
// page.
func AddBookmarks(data []byte, bms []toc.Bookmark, pages int) ([]byte, error) {
	outline := convert(bms, pages)
	if len(outline) == 0 {
		return data, nil
	}
	var out bytes.Buffer
	if err := api.AddBookmarks(bytes.NewReader(data), &out, outline, true, config()); err != nil {
		return nil, fmt.Errorf("%w: writing outline: %v", ErrPostProcess, err)
	}
	return out.Bytes(), nil
}

func convert(bms []toc.Bookmark, pages int) []pdfcpu.Bookmark {
	if pages < 1 {
		return nil
	}
	out := make([]pdfcpu.Bookmark, 0, len(bms))
	for _, b := range bms {
		out = append(out, pdfcpu.Bookmark{
			Title:    b.Title,
			PageFrom: min(max(b.Page, 1), pages),
			Kids:     convert(b.Kids, pages),
		})
	}
	return out
}

// Heading is a heading to look for in the rendered text.
type Heading struct {
	Target string
	Text   string
}

// Band is the text area searched for headings, as distances in points
// from the top and bottom page edges. Text in the running header and
// footer lies outside it.
type Band struct {
	Top    float64
	Bottom float64
}

// LocateHeadings scans page text from page from onward and returns the page
// each heading was found on. A heading matches one or more whole text rows
// inside band, so body text that merely contains its words does not count.
// Headings are matched in order, each search resuming after the previous
// match, so repeated titles resolve to successive occurrences. Headings
// that cannot be found are absent from the result.
func LocateHeadings(data []byte, headings []Heading, from int, band Band) (found map[string]int, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("%w: reading text: %v", ErrPostProcess, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading text: %v", ErrPostProcess, err)
	}

	total := r.NumPage()
	rows := make([][]string, total+1)
	for i := max(from, 1); i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows[i] = pageRows(p, band)
	}

	found = make(map[string]int, len(headings))
	page, row := max(from, 1), 0
	for _, h := range headings {
		needle := squash(h.Text)
		if needle == "" {
			continue
		}
	search:
		for p := page; p <= total; p++ {
			start := 0
			if p == page {
				start = row
			}
			for i := start; i < len(rows[p]); i++ {
				if n := matchRows(rows[p][i:], needle); n > 0 {
					found[h.Target] = p
					page, row = p, i+n
					break search
				}
			}
		}
	}
	return found, nil
}

// pageRows returns the squashed text rows of p from top to bottom, leaving
// out rows outside band.
func pageRows(p pdf.Page, band Band) []string {
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil
	}
	height := p.MediaBox().Index(3).Float64()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		y := float64(row.Position)
		if height > 0 && (y > height-band.Top || y < band.Bottom) {
			continue
		}
		sort.Sort(row.Content)
		var b strings.Builder
		for _, t := range row.Content {
			b.WriteString(t.S)
		}
		if text := squash(b.String()); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// matchRows reports how many leading rows spell out needle exactly, or 0.
func matchRows(rows []string, needle string) int {
	rest := needle
	for i, row := range rows {
		if !strings.HasPrefix(rest, row) {
			return 0
		}
		rest = rest[len(row):]
		if rest == "" {
			return i + 1
		}
	}
	return 0
}

// squash lowercases s and drops whitespace, which text extraction inserts
// and removes unpredictably.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
