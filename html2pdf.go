package bundle2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-bundle2pdf/internal/branding"
	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/fileutil"
	"github.com/alnah/go-bundle2pdf/internal/htmlout"
	"github.com/alnah/go-bundle2pdf/internal/layout"
	"github.com/alnah/go-bundle2pdf/internal/pdfpost"
	"github.com/alnah/go-bundle2pdf/internal/process"
	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// Renderer turns a settled plan into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, job *RenderJob) (*RenderOutput, error)
	Close() error
}

// PageGeometry is the physical page in points.
type PageGeometry struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	HeaderHeight float64
	FooterHeight float64
}

// RenderJob is everything a renderer needs for one document.
type RenderJob struct {
	Tree        *document.Tree
	Assignment  *layout.Assignment
	Entries     []toc.Entry
	Bookmarks   []toc.Bookmark
	Decorations *branding.Decorations
	TOCTitle    string
	Title       string
	Style       string
	Root        string // directory local images resolve against
	WorkDir     string // scratch directory for the HTML file
	Page        PageGeometry
	Budget      float64
	BodyStart   int // first page after the cover and TOC
}

// RenderOutput is the rendered PDF and what was measured in it.
type RenderOutput struct {
	PDF          []byte
	Pages        int
	HeadingPages map[string]int // heading id -> rendered page, found headings only
}

const pointsPerInch = 72.0

// rodRenderer prints through headless Chrome. Rod downloads a browser on
// first use unless ROD_BROWSER_BIN points at one.
type rodRenderer struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	closed   bool
	timeout  time.Duration
	logger   *zap.Logger
}

func newRodRenderer(timeout time.Duration, logger *zap.Logger) *rodRenderer {
	return &rodRenderer{timeout: timeout, logger: logger}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}
	if r.closed {
		return nil, fmt.Errorf("%w: renderer is closed", ErrBrowserConnect)
	}

	l := launcher.New()
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	// Containers and CI have no user namespace for the sandbox.
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher, r.browser = l, b
	r.logger.Debug("browser started", zap.Int("pid", l.PID()))
	return b, nil
}

// Close shuts the browser down and kills anything it left running.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		if kerr := process.KillTree(r.launcher.PID()); kerr != nil {
			r.logger.Debug("killing browser process tree", zap.Error(kerr))
		}
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}

// Render builds the page, prints it, and post-processes the PDF.
func (r *rodRenderer) Render(ctx context.Context, job *RenderJob) (*RenderOutput, error) {
	page, err := htmlout.Build(htmlout.Input{
		Tree:       job.Tree,
		Assignment: job.Assignment,
		Entries:    job.Entries,
		TOCTitle:   job.TOCTitle,
		Title:      job.Title,
		Style:      job.Style,
		Root:       job.Root,
		Budget:     job.Budget,
	})
	if err != nil {
		return nil, err
	}

	path, cleanup, err := fileutil.WriteTempFile(job.WorkDir, page, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: writing page: %v", ErrPDFGeneration, err)
	}
	defer cleanup()

	data, err := r.renderFile(ctx, path, job)
	if err != nil {
		return nil, err
	}
	return postProcess(data, job)
}

// renderFile opens a local HTML file and prints it.
func (r *rodRenderer) renderFile(ctx context.Context, path string, job *RenderJob) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: fileutil.PathToFileURL(path)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()
	page = page.Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := page.PDF(printOptions(job))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// printOptions maps the page geometry to Chrome's print settings. The
// header and footer bands sit inside the top and bottom margins.
func printOptions(job *RenderJob) *proto.PagePrintToPDF {
	g := job.Page
	opts := &proto.PagePrintToPDF{
		PaperWidth:      inches(g.Width),
		PaperHeight:     inches(g.Height),
		MarginTop:       inches(g.MarginTop + g.HeaderHeight),
		MarginBottom:    inches(g.MarginBottom + g.FooterHeight),
		MarginLeft:      inches(g.MarginLeft),
		MarginRight:     inches(g.MarginRight),
		PrintBackground: true,
	}
	if d := job.Decorations; d != nil {
		opts.DisplayHeaderFooter = true
		opts.HeaderTemplate = d.HeaderHTML
		opts.FooterTemplate = d.FooterHTML
	}
	return opts
}

func inches(pt float64) *float64 {
	v := pt / pointsPerInch
	return &v
}

// postProcess counts pages, measures heading placement, and adds the
// outline. Heading lookup failures are not fatal: the report shows them as
// unlocated. The outline keeps the planned pages so it matches the printed
// TOC entry for entry; measured pages only feed the drift report.
func postProcess(data []byte, job *RenderJob) (*RenderOutput, error) {
	pages, err := pdfpost.Count(data)
	if err != nil {
		return nil, err
	}

	headings := make([]pdfpost.Heading, 0, len(job.Tree.Headings()))
	for _, n := range job.Tree.Headings() {
		h := n.Data.(document.Heading)
		headings = append(headings, pdfpost.Heading{Target: h.ID, Text: h.Text})
	}
	band := pdfpost.Band{
		Top:    job.Page.MarginTop + job.Page.HeaderHeight,
		Bottom: job.Page.MarginBottom + job.Page.FooterHeight,
	}
	located, err := pdfpost.LocateHeadings(data, headings, job.BodyStart, band)
	if err != nil {
		located = map[string]int{}
	}

	out, err := pdfpost.AddBookmarks(data, job.Bookmarks, pages)
	if err != nil {
		return nil, err
	}
	return &RenderOutput{PDF: out, Pages: pages, HeadingPages: located}, nil
}
