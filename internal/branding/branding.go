// Package branding adds the cover page and the running header and footer.
//
// Apply runs before pagination: it prepends the cover node and computes the
// vertical budget left once margins and header/footer bands are reserved.
// Finalize runs after the last planner pass and renders the header and
// footer templates handed to the browser.
package branding

import (
	"bytes"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alnah/go-bundle2pdf/internal/assets"
	"github.com/alnah/go-bundle2pdf/internal/dateutil"
	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/layout"
)

// MaxTitleLength caps the sanitized title, in characters.
const MaxTitleLength = 200

// titleStrip lists characters removed from titles.
const titleStrip = `<>:"/\|?*`

// Branding is the identity stamped on a document.
type Branding struct {
	Title       string
	Subtitle    string
	Company     string
	LogoURL     string // already resolved; empty for none
	Date        time.Time
	DateFormat  string
	HeaderText  string // replaces the title in the header when set
	PageNumbers bool
}

// Geometry is the page box in points.
type Geometry struct {
	PageHeight   float64
	MarginTop    float64
	MarginBottom float64
	HeaderHeight float64
	FooterHeight float64
}

// Budget is the height left for body content on one page.
func (g Geometry) Budget() float64 {
	return g.PageHeight - g.MarginTop - g.MarginBottom - g.HeaderHeight - g.FooterHeight
}

// Decorations are the browser header and footer templates for a plan.
type Decorations struct {
	HeaderHTML string
	FooterHTML string
	TotalPages int
}

type coverData struct {
	Title    string
	Subtitle string
	Company  string
	LogoURL  string
	Date     string
}

type headerData struct {
	Title   string
	Company string
}

type footerData struct {
	PageNumbers bool
	TotalPages  int
}

// Injector renders a parsed template set.
type Injector struct {
	cover  *template.Template
	header *template.Template
	footer *template.Template
}

// New parses the templates of ts.
func New(ts *assets.TemplateSet) (*Injector, error) {
	in := &Injector{}
	for _, t := range []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{assets.CoverFile, ts.Cover, &in.cover},
		{assets.HeaderFile, ts.Header, &in.header},
		{assets.FooterFile, ts.Footer, &in.footer},
	} {
		parsed, err := template.New(t.name).Option("missingkey=error").Parse(t.src)
		if err != nil {
			return nil, &TemplateError{Template: t.name, Reason: err.Error()}
		}
		*t.dst = parsed
	}
	return in, nil
}

// Apply prepends the cover page to tree and returns the content budget.
func (in *Injector) Apply(tree *document.Tree, b Branding, g Geometry) (*document.Tree, float64, error) {
	title := SanitizeTitle(b.Title)
	if title == "" {
		return nil, 0, &TemplateError{Template: assets.CoverFile, Reason: "title is empty"}
	}
	budget := g.Budget()
	if budget <= 0 {
		return nil, 0, &TemplateError{Template: assets.CoverFile, Reason: "page geometry leaves no room for content"}
	}

	data := coverData{
		Title:    title,
		Subtitle: strings.TrimSpace(b.Subtitle),
		Company:  b.Company,
		LogoURL:  b.LogoURL,
	}
	if !b.Date.IsZero() {
		date, err := dateutil.Format(b.Date, b.DateFormat)
		if err != nil {
			return nil, 0, &TemplateError{Template: assets.CoverFile, Reason: err.Error()}
		}
		data.Date = date
	}

	markup, err := execute(in.cover, data)
	if err != nil {
		return nil, 0, err
	}

	out, _ := tree.Prepend(document.Node{
		Data: document.Cover{
			Title:        data.Title,
			Subtitle:     data.Subtitle,
			Organization: data.Company,
			Logo:         data.LogoURL,
			Date:         data.Date,
		},
		HTML: markup,
	})
	return out, budget, nil
}

// Finalize renders the header and footer for the final assignment.
func (in *Injector) Finalize(asg *layout.Assignment, b Branding) (*Decorations, error) {
	title := SanitizeTitle(b.Title)
	if b.HeaderText != "" {
		title = b.HeaderText
	}
	header, err := execute(in.header, headerData{Title: title, Company: b.Company})
	if err != nil {
		return nil, err
	}
	footer, err := execute(in.footer, footerData{PageNumbers: b.PageNumbers, TotalPages: asg.TotalPages})
	if err != nil {
		return nil, err
	}
	return &Decorations{HeaderHTML: header, FooterHTML: footer, TotalPages: asg.TotalPages}, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", &TemplateError{Template: t.Name(), Reason: err.Error()}
	}
	// Chrome ignores an empty header template and prints its default one.
	if strings.TrimSpace(buf.String()) == "" {
		return "<span></span>", nil
	}
	return buf.String(), nil
}

// SanitizeTitle strips characters unsafe in file names and markup, collapses
// whitespace, and truncates to MaxTitleLength characters.
func SanitizeTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(titleStrip, r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > MaxTitleLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxTitleLength]))
	}
	return s
}
