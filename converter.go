package bundle2pdf

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-bundle2pdf/internal/archive"
	"github.com/alnah/go-bundle2pdf/internal/assemble"
	"github.com/alnah/go-bundle2pdf/internal/assets"
	"github.com/alnah/go-bundle2pdf/internal/branding"
	"github.com/alnah/go-bundle2pdf/internal/document"
	"github.com/alnah/go-bundle2pdf/internal/fileutil"
	"github.com/alnah/go-bundle2pdf/internal/layout"
	"github.com/alnah/go-bundle2pdf/internal/toc"
)

// Compile-time interface checks.
var _ Renderer = (*rodRenderer)(nil)

// Converter runs the bundle-to-PDF pipeline. Create with NewConverter, call
// Convert any number of times, and Close when done. A Converter owns one
// browser and serializes nothing itself: use one per goroutine or a
// ConverterPool.
type Converter struct {
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	style     string
	extractor *archive.Extractor
	assembler *assemble.Assembler
	injector  *branding.Injector
	renderer  Renderer
}

// NewConverter validates the configuration, loads style and templates, and
// prepares the pipeline. The browser starts on the first conversion.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:    *DefaultConfig(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	resolver, err := assets.NewResolver(c.cfg.Assets.BasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}
	style := c.cfg.Assets.Style
	if style == "" {
		style = assets.DefaultName
	}
	if c.style, err = resolver.LoadStyle(style); err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}
	ts, err := resolver.LoadTemplateSet(style)
	if errors.Is(err, assets.ErrTemplateSetNotFound) {
		ts, err = resolver.LoadTemplateSet(assets.DefaultName)
	}
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	if c.injector, err = branding.New(ts); err != nil {
		return nil, fmt.Errorf("initializing branding: %w", err)
	}

	c.extractor = archive.NewExtractor(archive.Limits{
		MaxCompressedBytes: c.cfg.Limits.MaxCompressedBytes,
		MaxExtractedBytes:  c.cfg.Limits.MaxExtractedBytes,
		MaxEntries:         c.cfg.Limits.MaxEntries,
	}, c.logger)
	c.assembler = assemble.New(c.logger)
	if c.renderer == nil {
		c.renderer = newRodRenderer(c.cfg.RenderTimeout(), c.logger)
	}
	return c, nil
}

// Close releases the browser.
func (c *Converter) Close() error {
	if c.renderer != nil {
		return c.renderer.Close()
	}
	return nil
}

// conversion carries the state of one Convert call.
type conversion struct {
	id     string
	logger *zap.Logger
	report Report
}

// stage times fn and logs its outcome.
func (cv *conversion) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	cv.report.Durations[name] = d
	cv.logger.Debug("stage finished", zap.String("stage", name), zap.Duration("duration", d), zap.Error(err))
	return err
}

// Convert turns one archive into a PDF. Every failure, panics included, is
// returned as an *Error.
func (c *Converter) Convert(ctx context.Context, input Input) (doc *RenderedDocument, err error) {
	cv := &conversion{id: uuid.NewString()}
	cv.logger = c.logger.With(zap.String("request_id", cv.id))
	cv.report = Report{RequestID: cv.id, Durations: map[string]time.Duration{}}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			cv.logger.Error("conversion panicked", zap.Any("panic", r), zap.Stack("stack"))
			doc, err = nil, classify(fmt.Errorf("%w: %v", ErrInternal, r), cv.id)
		}
		if err != nil {
			e := classify(err, cv.id)
			cv.logger.Warn("conversion failed",
				zap.String("code", string(e.Code)),
				zap.Error(e.err),
				zap.Duration("duration", time.Since(start)))
			doc, err = nil, e
		}
	}()

	if f := input.PageFormat; f != "" && !strings.EqualFold(f, "A4") {
		e := classify(fmt.Errorf("%w: %q, only A4 is supported", ErrInvalidPageFormat, f), cv.id)
		e.Details = map[string]any{"format": f}
		return nil, e
	}

	ws, err := fileutil.NewWorkspace("bundle2pdf-")
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			cv.logger.Warn("removing workspace", zap.String("dir", ws.Dir()), zap.Error(cerr))
		}
	}()

	doc, err = c.run(ctx, cv, ws, input)
	if err != nil {
		return nil, err
	}
	cv.logger.Info("conversion finished",
		zap.Int("pages", doc.Pages),
		zap.Int("page_delta", doc.Report.PageDelta),
		zap.Bool("converged", doc.Report.Converged),
		zap.Duration("duration", time.Since(start)))
	return doc, nil
}

func (c *Converter) run(ctx context.Context, cv *conversion, ws *fileutil.Workspace, input Input) (*RenderedDocument, error) {
	var src *archive.Source
	if err := cv.stage("extract", func() (err error) {
		src, err = c.extractor.Extract(ctx, input.Archive, ws)
		return err
	}); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var parsed *assemble.Document
	if err := cv.stage("assemble", func() (err error) {
		parsed, err = c.assembler.Assemble(ctx, src)
		return err
	}); err != nil {
		return nil, err
	}
	for _, w := range parsed.Warnings {
		cv.logger.Warn("document warning", zap.String("warning", w))
	}
	cv.report.Warnings = parsed.Warnings

	brand := c.branding(cv, input, parsed, src)
	var (
		tree   *document.Tree
		budget float64
	)
	if err := cv.stage("brand", func() (err error) {
		tree, budget, err = c.injector.Apply(parsed.Tree, brand, c.geometry())
		return err
	}); err != nil {
		return nil, err
	}

	params := layout.ParamsFrom(&c.cfg)
	params.Budget = budget
	var res *toc.Result
	if err := cv.stage("paginate", func() (err error) {
		res, err = toc.Resolve(ctx, tree, toc.Options{
			Include:   input.IncludeTOC,
			Title:     c.cfg.TOC.Title,
			MaxDepth:  c.cfg.TOC.MaxDepth,
			MaxPasses: c.cfg.TOC.MaxPasses,
			Params:    params,
		})
		return err
	}); err != nil {
		return nil, err
	}
	if !res.Converged {
		cv.logger.Warn("table of contents did not converge", zap.Int("passes", res.Passes))
	}

	dec, err := c.injector.Finalize(res.Assignment, brand)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job := &RenderJob{
		Tree:        res.Tree,
		Assignment:  res.Assignment,
		Entries:     res.Entries,
		Bookmarks:   res.Bookmarks,
		Decorations: dec,
		TOCTitle:    c.cfg.TOC.Title,
		Title:       brand.Title,
		Style:       c.style,
		Root:        src.Root,
		WorkDir:     ws.Dir(),
		Page:        c.pageGeometry(),
		Budget:      budget,
		BodyStart:   bodyStart(res),
	}
	var out *RenderOutput
	if err := cv.stage("render", func() (err error) {
		rctx, cancel := context.WithTimeout(ctx, c.cfg.RenderTimeout())
		defer cancel()
		out, err = c.renderer.Render(rctx, job)
		return err
	}); err != nil {
		return nil, err
	}

	c.fillReport(&cv.report, res, out)
	return &RenderedDocument{
		PDF:          out.PDF,
		Pages:        out.Pages,
		HeadingPages: res.Assignment.HeadingPages,
		TOC:          res.Entries,
		Bookmarks:    res.Bookmarks,
		Report:       cv.report,
	}, nil
}

// branding picks the title and resolves the logo.
func (c *Converter) branding(cv *conversion, input Input, parsed *assemble.Document, src *archive.Source) branding.Branding {
	title := firstNonEmpty(input.Title, parsed.Title, firstHeading(parsed.Tree),
		strings.TrimSuffix(path.Base(src.MarkdownPath), path.Ext(src.MarkdownPath)))
	b := c.cfg.Branding
	return branding.Branding{
		Title:       title,
		Subtitle:    firstNonEmpty(input.Subtitle, parsed.Subtitle),
		Company:     b.Company,
		LogoURL:     c.logoURL(cv, src),
		Date:        c.now(),
		DateFormat:  b.DateFormat,
		HeaderText:  b.HeaderText,
		PageNumbers: b.PageNumbers,
	}
}

// logoURL resolves the configured logo against the archive first, then the
// filesystem. URLs pass through. A missing logo is logged and omitted.
func (c *Converter) logoURL(cv *conversion, src *archive.Source) string {
	logo := c.cfg.Branding.Logo
	switch {
	case logo == "":
		return ""
	case fileutil.IsURL(logo):
		return logo
	}
	if a, ok := src.Asset(strings.TrimPrefix(path.Clean(filepath.ToSlash(logo)), "./")); ok {
		return fileutil.PathToFileURL(a.AbsPath)
	}
	if fileutil.FileExists(logo) {
		if abs, err := filepath.Abs(logo); err == nil {
			return fileutil.PathToFileURL(abs)
		}
	}
	cv.logger.Warn("logo not found, cover rendered without it", zap.String("logo", logo))
	return ""
}

func (c *Converter) geometry() branding.Geometry {
	_, h, _ := c.cfg.PageSize()
	p := c.cfg.Page
	return branding.Geometry{
		PageHeight:   h,
		MarginTop:    p.MarginTop,
		MarginBottom: p.MarginBottom,
		HeaderHeight: p.HeaderHeight,
		FooterHeight: p.FooterHeight,
	}
}

func (c *Converter) pageGeometry() PageGeometry {
	w, h, _ := c.cfg.PageSize()
	p := c.cfg.Page
	return PageGeometry{
		Width:        w,
		Height:       h,
		MarginTop:    p.MarginTop,
		MarginBottom: p.MarginBottom,
		MarginLeft:   p.MarginLeft,
		MarginRight:  p.MarginRight,
		HeaderHeight: p.HeaderHeight,
		FooterHeight: p.FooterHeight,
	}
}

// fillReport compares the plan with what the renderer measured.
func (c *Converter) fillReport(r *Report, res *toc.Result, out *RenderOutput) {
	asg := res.Assignment
	r.PlannedPages = asg.TotalPages
	r.RenderedPages = out.Pages
	r.PageDelta = out.Pages - asg.TotalPages
	r.Converged = res.Converged
	r.Passes = res.Passes
	r.TOCPages = res.TOCPages

	for _, n := range res.Tree.Headings() {
		h := n.Data.(document.Heading)
		planned := asg.HeadingPages[h.ID]
		rendered := out.HeadingPages[h.ID]
		if rendered != planned {
			r.HeadingDrift = append(r.HeadingDrift, HeadingDrift{
				Target:   h.ID,
				Text:     h.Text,
				Planned:  planned,
				Rendered: rendered,
			})
		}
	}
	for _, id := range asg.Oversized {
		n := res.Tree.At(id)
		r.Oversized = append(r.Oversized, fmt.Sprintf("%s at line %d (pages %d-%d)", n.Kind(), n.Line, asg.Pages[id], asg.EndPages[id]))
	}
}

// bodyStart is the first page after the cover and TOC.
func bodyStart(res *toc.Result) int {
	last := 0
	if id, ok := res.Tree.FirstRoot(document.KindCover); ok {
		last = res.Assignment.EndPages[id]
	}
	if res.TOCNode != document.NoParent {
		last = max(last, res.Assignment.EndPages[res.TOCNode])
	}
	return last + 1
}

func firstHeading(t *document.Tree) string {
	for _, n := range t.Headings() {
		if h := n.Data.(document.Heading); h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
