// Package bundle2pdf converts a bundled document, a ZIP archive holding one
// Markdown file and the images it references, into a paginated, branded PDF.
//
// The pipeline validates and extracts the archive, builds a block tree from
// the Markdown, prepends a cover page, and decides page breaks itself
// before handing the result to headless Chrome. When a table of contents
// is requested, its page numbers come from a bounded fixed-point loop: the
// planner runs, the TOC is sized from the heading pages it found, and the
// planner runs again until the pages stop moving.
//
// Basic usage:
//
//	conv, err := bundle2pdf.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	doc, err := conv.Convert(ctx, bundle2pdf.Input{
//	    Archive:    zipBytes,
//	    Title:      "Quarterly Report",
//	    IncludeTOC: true,
//	})
//	if err != nil {
//	    var e *bundle2pdf.Error
//	    if errors.As(err, &e) {
//	        log.Printf("%s: %s %v", e.Code, e.Message, e.Details)
//	    }
//	    return
//	}
//	os.WriteFile("report.pdf", doc.PDF, 0o644)
//
// For parallel work, ConverterPool keeps one browser per worker.
//
// Archive layout: exactly one .md or .markdown file at the archive root, or
// inside a single top-level folder; images anywhere below it.
//
// Page break directives, written as raw HTML blocks in the Markdown:
//
//	<div class="page-break"></div>         force a new page
//	<!-- pagebreak -->                     same
//	<div class="keep-together">            keep the enclosed blocks on one page
//	...
//	</div>
//	<div class="avoid-break-before"></div> keep the next block with the previous one
package bundle2pdf
