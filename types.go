package bundle2pdf

import (
	"time"

	"github.com/alnah/go-bundle2pdf/internal/config"
	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// Config is the full conversion configuration. Load it with LoadConfig or
// start from DefaultConfig.
type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config { return config.DefaultConfig() }

// LoadConfig reads a YAML config by path or by name. See config.SearchPaths.
func LoadConfig(nameOrPath string) (*Config, error) { return config.LoadConfig(nameOrPath) }

// TOCEntry is one table of contents line with its resolved page.
type TOCEntry = toc.Entry

// Bookmark is one PDF outline entry.
type Bookmark = toc.Bookmark

// Input is one conversion request.
type Input struct {
	Archive    []byte // ZIP holding one markdown file and its images
	Title      string // empty means front matter title, then the first heading
	Subtitle   string // empty means front matter subtitle
	IncludeTOC bool
	PageFormat string // only "A4"; empty means A4
}

// RenderedDocument is a successful conversion.
type RenderedDocument struct {
	PDF          []byte
	Pages        int
	HeadingPages map[string]int // heading id -> planned page
	TOC          []TOCEntry
	Bookmarks    []Bookmark
	Report       Report
}

// Report describes how closely the rendered PDF followed the plan.
type Report struct {
	RequestID     string                   `json:"requestId"`
	PlannedPages  int                      `json:"plannedPages"`
	RenderedPages int                      `json:"renderedPages"`
	PageDelta     int                      `json:"pageDelta"` // rendered - planned
	Converged     bool                     `json:"converged"`
	Passes        int                      `json:"passes"`
	TOCPages      int                      `json:"tocPages"`
	HeadingDrift  []HeadingDrift           `json:"headingDrift,omitempty"`
	Oversized     []string                 `json:"oversized,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Durations     map[string]time.Duration `json:"durations"`
}

// HeadingDrift is a heading the browser placed on a different page than
// planned. Rendered is 0 when the heading text could not be found.
type HeadingDrift struct {
	Target   string `json:"target"`
	Text     string `json:"text"`
	Planned  int    `json:"planned"`
	Rendered int    `json:"rendered"`
}
