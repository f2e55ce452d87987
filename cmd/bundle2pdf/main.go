package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches the command and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	if !isCommand(cmd) && looksLikeArchive(cmd) {
		// "bundle2pdf doc.zip" is shorthand for "bundle2pdf convert doc.zip".
		cmd, rest = "convert", args[1:]
	}

	switch cmd {
	case "convert":
		ctx, stop := notifyContext(context.Background())
		defer stop()
		if err := runConvert(ctx, rest, env); err != nil {
			reportError(env.Stderr, err)
			return exitCodeFor(err)
		}
		return ExitSuccess
	case "doctor":
		return runDoctorCmd(rest, env)
	case "version", "--version", "-V":
		fmt.Fprintf(env.Stdout, "bundle2pdf %s\n", Version)
		return ExitSuccess
	case "help", "--help", "-h":
		runHelp(rest, env.Stdout)
		return ExitSuccess
	default:
		fmt.Fprintf(env.Stderr, "unknown command %q\n\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}
}

var commands = []string{"convert", "doctor", "version", "help"}

func isCommand(s string) bool {
	return slices.Contains(commands, s)
}

func looksLikeArchive(s string) bool {
	return strings.EqualFold(filepath.Ext(s), ".zip")
}

// reportError prints err with any hint that applies to it. Per-archive
// failures were already printed with the batch results.
func reportError(w io.Writer, err error) {
	if errors.Is(err, ErrConversionFailed) {
		return
	}
	fmt.Fprintf(w, "error: %v%s\n", err, hintFor(err))
}
