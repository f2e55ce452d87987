package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
	"github.com/alnah/go-bundle2pdf/internal/config"
	"github.com/alnah/go-bundle2pdf/internal/logging"
	"github.com/alnah/go-bundle2pdf/internal/yamlutil"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput            = errors.New("no input specified")
	ErrReadArchive        = errors.New("failed to read archive")
	ErrWritePDF           = errors.New("failed to write PDF file")
	ErrWriteReport        = errors.New("failed to write report")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
	ErrConversionFailed   = errors.New("conversion failed")
)

// File permission constants.
const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

// ConversionResult holds the outcome of a single archive.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Doc        *bundle2pdf.RenderedDocument
	Err        error
	Duration   time.Duration
}

// runConvert orchestrates a convert invocation.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg := loadEnvConfig(env.Getenv)
	cfg, err := resolveConfig(flags, envCfg)
	if err != nil {
		return err
	}

	if flags.printConfig {
		out, err := yamlutil.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(out)
		return err
	}

	if len(positional) == 0 {
		return ErrNoInput
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: expected one archive or directory, got %d arguments", errUsage, len(positional))
	}
	outputDir := flags.output
	if outputDir == "" {
		outputDir = envCfg.OutputDir
	}
	files, err := discoverFiles(positional[0], outputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no .zip archives under %s", ErrNoInput, positional[0])
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	undo, _ := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf))
	defer undo()

	opts := []bundle2pdf.Option{
		bundle2pdf.WithConfig(cfg),
		bundle2pdf.WithLogger(logger),
		bundle2pdf.WithClock(env.Now),
	}
	if env.Renderer != nil {
		opts = append(opts, bundle2pdf.WithRenderer(env.Renderer))
	}
	// Fail fast on bad styles or templates before any browser starts.
	probe, err := bundle2pdf.NewConverter(append(opts, bundle2pdf.WithRenderer(nopRenderer{}))...)
	if err != nil {
		return err
	}
	_ = probe.Close()

	pool := bundle2pdf.NewConverterPool(min(bundle2pdf.ResolvePoolSize(cfg.Workers), len(files)), opts...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing converter pool", zap.Error(err))
		}
	}()
	logger.Debug("starting batch", zap.Int("archives", len(files)), zap.Int("workers", pool.Size()))

	input := bundle2pdf.Input{
		Title:      flags.document.title,
		Subtitle:   flags.document.subtitle,
		IncludeTOC: flags.toc.enabled,
		PageFormat: flags.document.pageFormat,
	}
	results := convertBatch(ctx, pool, files, input)

	printResults(env, results, flags.common)
	if flags.report != "" {
		if err := writeReport(flags.report, results); err != nil {
			return err
		}
	}
	return firstFailure(results)
}

// errUsage marks malformed command lines.
var errUsage = errors.New("usage error")

// resolveConfig loads the config file named by flag or env, then layers env
// values and flags over it.
func resolveConfig(flags *convertFlags, envCfg *envConfig) (*config.Config, error) {
	name := flags.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}
	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags copies explicitly set flags into cfg. Flags win over every
// other source.
func mergeFlags(f *convertFlags, cfg *config.Config) error {
	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %q (use a duration like 30s or 2m)", ErrInvalidTimeout, f.timeout)
		}
		cfg.Render.Timeout = d.String()
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.toc.title != "" {
		cfg.TOC.Title = f.toc.title
	}
	if f.toc.depth != 0 {
		cfg.TOC.MaxDepth = f.toc.depth
	}
	b := f.branding
	if b.company != "" {
		cfg.Branding.Company = b.company
	}
	if b.logo != "" {
		cfg.Branding.Logo = b.logo
	}
	if b.dateFormat != "" {
		cfg.Branding.DateFormat = b.dateFormat
	}
	if b.headerText != "" {
		cfg.Branding.HeaderText = b.headerText
	}
	if b.noPageNumbers {
		cfg.Branding.PageNumbers = false
	}
	if f.assets.style != "" {
		cfg.Assets.Style = f.assets.style
	}
	if f.assets.assetPath != "" {
		cfg.Assets.BasePath = f.assets.assetPath
	}
	if f.log.level != "" {
		cfg.Log.Level = f.log.level
	}
	if f.log.format != "" {
		cfg.Log.Format = f.log.format
	}
	if f.common.verbose && f.log.level == "" {
		cfg.Log.Level = "debug"
	}
	return nil
}

// convertBatch converts every archive, at most pool.Size() at a time. One
// failure does not stop the others.
func convertBatch(ctx context.Context, pool *bundle2pdf.ConverterPool, files []FileToConvert, input bundle2pdf.Input) []ConversionResult {
	results := make([]ConversionResult, len(files))
	var g errgroup.Group
	g.SetLimit(pool.Size())
	for i, f := range files {
		g.Go(func() error {
			results[i] = convertFile(ctx, pool, f, input)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// convertFile converts one archive and writes its PDF.
func convertFile(ctx context.Context, pool *bundle2pdf.ConverterPool, f FileToConvert, input bundle2pdf.Input) (res ConversionResult) {
	start := time.Now()
	res = ConversionResult{InputPath: f.InputPath, OutputPath: f.OutputPath}
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	data, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrReadArchive, err)
		return res
	}
	input.Archive = data

	doc, err := pool.Convert(ctx, input)
	if err != nil {
		res.Err = err
		return res
	}
	res.Doc = doc

	if err := os.MkdirAll(filepath.Dir(f.OutputPath), dirPermissions); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrWritePDF, err)
		return res
	}
	// #nosec G306 -- PDFs are meant to be readable
	if err := os.WriteFile(f.OutputPath, doc.PDF, filePermissions); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrWritePDF, err)
	}
	return res
}

// firstFailure returns the first failed result's error, marked as a
// conversion failure, or nil.
func firstFailure(results []ConversionResult) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConversionFailed, r.InputPath, r.Err)
		}
	}
	return nil
}

// nopRenderer lets the CLI validate assets without launching a browser.
type nopRenderer struct{}

func (nopRenderer) Render(context.Context, *bundle2pdf.RenderJob) (*bundle2pdf.RenderOutput, error) {
	return nil, bundle2pdf.ErrPDFGeneration
}

func (nopRenderer) Close() error { return nil }
