package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bundle2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert markdown bundles (.zip) to PDF")
	fmt.Fprintln(w, "  doctor     Check that Chrome and the environment are ready")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "'bundle2pdf <file.zip>' is shorthand for 'bundle2pdf convert <file.zip>'.")
	fmt.Fprintln(w, "Run 'bundle2pdf help <command>' for details on a specific command.")
}

func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bundle2pdf convert <archive.zip | directory> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert a ZIP holding one markdown file and its images into a")
	fmt.Fprintln(w, "paginated, branded A4 PDF. A directory converts every .zip inside it.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs := newConvertFlagSet(&convertFlags{})
	fs.SetOutput(w)
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Layout directives inside the markdown:")
	fmt.Fprintln(w, `  <div class="page-break"></div> or <!-- pagebreak -->   force a new page`)
	fmt.Fprintln(w, `  <div class="keep-together"> ... </div>                 keep blocks on one page`)
	fmt.Fprintln(w, `  <div class="avoid-break-before"></div>                 keep the next block with the previous`)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  BUNDLE2PDF_CONFIG, BUNDLE2PDF_STYLE, BUNDLE2PDF_ASSET_PATH, BUNDLE2PDF_TIMEOUT,")
	fmt.Fprintln(w, "  BUNDLE2PDF_OUTPUT_DIR, BUNDLE2PDF_COMPANY, BUNDLE2PDF_LOGO, BUNDLE2PDF_WORKERS,")
	fmt.Fprintln(w, "  BUNDLE2PDF_LOG_LEVEL, BUNDLE2PDF_LOG_FORMAT")
	fmt.Fprintln(w, "  ROD_BROWSER_BIN, ROD_NO_SANDBOX          Chrome location and sandboxing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 general, 2 usage, 3 I/O, 4 browser, 5 rejected input, 130 interrupted")
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bundle2pdf doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, container/CI settings, and the temp directory.")
}

// runHelp prints help for the named command, or the main usage.
func runHelp(args []string, w io.Writer) {
	if len(args) == 0 {
		printUsage(w)
		return
	}
	switch args[0] {
	case "convert":
		printConvertUsage(w)
	case "doctor":
		printDoctorUsage(w)
	default:
		fmt.Fprintf(w, "unknown command %q\n\n", args[0])
		printUsage(w)
	}
}
