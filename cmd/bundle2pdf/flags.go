package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// documentFlags holds per-document inputs.
type documentFlags struct {
	title      string
	subtitle   string
	pageFormat string
}

// tocFlags holds table of contents flags.
type tocFlags struct {
	enabled bool
	title   string
	depth   int
}

// brandingFlags holds cover and running header/footer flags.
type brandingFlags struct {
	company       string
	logo          string
	dateFormat    string
	headerText    string
	noPageNumbers bool
}

// assetFlags selects the stylesheet and template set.
type assetFlags struct {
	style     string
	assetPath string
}

// logFlags configures structured logging.
type logFlags struct {
	level  string
	format string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common      commonFlags
	output      string
	workers     int
	timeout     string
	report      string
	printConfig bool
	document    documentFlags
	toc         tocFlags
	branding    brandingFlags
	assets      assetFlags
	log         logFlags
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show stage timings and heading drift")
}

func addDocumentFlags(fs *flag.FlagSet, f *documentFlags) {
	fs.StringVar(&f.title, "title", "", "document title (\"\" = front matter, then first H1)")
	fs.StringVar(&f.subtitle, "subtitle", "", "document subtitle")
	fs.StringVarP(&f.pageFormat, "page-format", "p", "", "page format (only A4)")
}

func addTOCFlags(fs *flag.FlagSet, f *tocFlags) {
	fs.BoolVar(&f.enabled, "toc", false, "insert a table of contents after the cover")
	fs.StringVar(&f.title, "toc-title", "", "table of contents heading")
	fs.IntVar(&f.depth, "toc-depth", 0, "deepest heading level listed (1-3)")
}

func addBrandingFlags(fs *flag.FlagSet, f *brandingFlags) {
	fs.StringVar(&f.company, "company", "", "company shown on the cover and header")
	fs.StringVar(&f.logo, "logo", "", "logo: archive path, file path, or URL")
	fs.StringVar(&f.dateFormat, "date-format", "", "cover date format: preset or tokens")
	fs.StringVar(&f.headerText, "header-text", "", "running header text")
	fs.BoolVar(&f.noPageNumbers, "no-page-numbers", false, "omit page numbers from the footer")
}

func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.style, "style", "", "style and template set name")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory with styles/ and templates/")
}

func addLogFlags(fs *flag.FlagSet, f *logFlags) {
	fs.StringVar(&f.level, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.format, "log-format", "", "log format: console, json")
}

// newConvertFlagSet registers every convert flag into f.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "render timeout per document (e.g. 30s, 2m)")
	fs.StringVar(&f.report, "report", "", "write a JSON conversion report to this path")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config as YAML and exit")

	addCommonFlags(fs, &f.common)
	addDocumentFlags(fs, &f.document)
	addTOCFlags(fs, &f.toc)
	addBrandingFlags(fs, &f.branding)
	addAssetFlags(fs, &f.assets)
	addLogFlags(fs, &f.log)
	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := newConvertFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
