package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-bundle2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxCompanyLength    = 100
	MaxURLLength        = 2048
	MaxTOCTitleLength   = 100
	MaxHeaderTextLength = 200
	MaxDateFormatLength = 50
)

// Archive limits.
const (
	DefaultMaxCompressedBytes = 50 << 20
	DefaultMaxExtractedBytes  = 200 << 20
	DefaultMaxEntries         = 1000
)

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// ConfigDirName is the directory searched under the user config dir.
const ConfigDirName = "go-bundle2pdf"

// Config holds every tunable of a conversion. It is loaded once at startup
// and copied by value into converters.
type Config struct {
	Limits   LimitsConfig   `yaml:"limits"`
	Layout   LayoutConfig   `yaml:"layout"`
	TOC      TOCConfig      `yaml:"toc"`
	Page     PageConfig     `yaml:"page"`
	Branding BrandingConfig `yaml:"branding"`
	Render   RenderConfig   `yaml:"render"`
	Assets   AssetsConfig   `yaml:"assets"`
	Workers  int            `yaml:"workers"` // 0 = auto
	Log      LogConfig      `yaml:"log"`
}

// LimitsConfig bounds archive intake.
type LimitsConfig struct {
	MaxCompressedBytes int64 `yaml:"maxCompressedBytes"`
	MaxExtractedBytes  int64 `yaml:"maxExtractedBytes"`
	MaxEntries         int   `yaml:"maxEntries"`
}

// LayoutConfig holds the height-estimation constants, all in points.
type LayoutConfig struct {
	CharsPerLine       int       `yaml:"charsPerLine"`
	LineHeight         float64   `yaml:"lineHeight"`
	HeadingLineHeights []float64 `yaml:"headingLineHeights"` // index 0 = h1
	CodeLineHeight     float64   `yaml:"codeLineHeight"`
	CodePadding        float64   `yaml:"codePadding"`
	TableRowHeight     float64   `yaml:"tableRowHeight"`
	TablePadding       float64   `yaml:"tablePadding"`
	BlockSpacing       float64   `yaml:"blockSpacing"`
	DefaultImageHeight float64   `yaml:"defaultImageHeight"`
	Orphans            int       `yaml:"orphans"`
	Widows             int       `yaml:"widows"`
}

// TOCConfig controls table of contents resolution.
type TOCConfig struct {
	Title     string `yaml:"title"`
	MaxDepth  int    `yaml:"maxDepth"`  // 1-3
	MaxPasses int    `yaml:"maxPasses"` // planner runs including the dry pass
}

// PageConfig holds page geometry in points.
type PageConfig struct {
	Format       string  `yaml:"format"`
	MarginTop    float64 `yaml:"marginTop"`
	MarginBottom float64 `yaml:"marginBottom"`
	MarginLeft   float64 `yaml:"marginLeft"`
	MarginRight  float64 `yaml:"marginRight"`
	HeaderHeight float64 `yaml:"headerHeight"`
	FooterHeight float64 `yaml:"footerHeight"`
}

// BrandingConfig defines the cover and running header/footer.
type BrandingConfig struct {
	Company     string `yaml:"company"`
	Logo        string `yaml:"logo"`       // archive asset, file path, or URL
	DateFormat  string `yaml:"dateFormat"` // dateutil preset or tokens
	HeaderText  string `yaml:"headerText"` // empty = company and title
	PageNumbers bool   `yaml:"pageNumbers"`
}

// RenderConfig controls the browser backend.
type RenderConfig struct {
	Timeout string `yaml:"timeout"` // Go duration
}

// AssetsConfig selects stylesheet and templates.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded assets only
	Style    string `yaml:"style"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxCompressedBytes: DefaultMaxCompressedBytes,
			MaxExtractedBytes:  DefaultMaxExtractedBytes,
			MaxEntries:         DefaultMaxEntries,
		},
		Layout: LayoutConfig{
			CharsPerLine:       90,
			LineHeight:         15,
			HeadingLineHeights: []float64{30, 24, 20, 17, 17, 17},
			CodeLineHeight:     12,
			CodePadding:        16,
			TableRowHeight:     20,
			TablePadding:       12,
			BlockSpacing:       8,
			DefaultImageHeight: 240,
			Orphans:            2,
			Widows:             2,
		},
		TOC: TOCConfig{
			Title:     "Table of Contents",
			MaxDepth:  3,
			MaxPasses: 3,
		},
		Page: PageConfig{
			Format:       "A4",
			MarginTop:    54,
			MarginBottom: 54,
			MarginLeft:   54,
			MarginRight:  54,
			HeaderHeight: 24,
			FooterHeight: 24,
		},
		Branding: BrandingConfig{
			DateFormat:  "long",
			PageNumbers: true,
		},
		Render: RenderConfig{Timeout: "60s"},
		Assets: AssetsConfig{Style: "default"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// RenderTimeout parses Render.Timeout. Validate guarantees success on a
// validated config.
func (c *Config) RenderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// PageSize returns the page width and height in points for Page.Format.
func (c *Config) PageSize() (width, height float64, ok bool) {
	if strings.EqualFold(c.Page.Format, "A4") {
		return A4Width, A4Height, true
	}
	return 0, 0, false
}

// ContentHeight is the vertical budget left for body content on one page.
func (c *Config) ContentHeight() float64 {
	_, h, _ := c.PageSize()
	return h - c.Page.MarginTop - c.Page.MarginBottom - c.Page.HeaderHeight - c.Page.FooterHeight
}

// ContentWidth is the horizontal space left for body content.
func (c *Config) ContentWidth() float64 {
	w, _, _ := c.PageSize()
	return w - c.Page.MarginLeft - c.Page.MarginRight
}

// Validate checks ranges and field lengths. Called by LoadConfig, and
// available for callers who build a Config by hand.
func (c *Config) Validate() error {
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if err := c.validatePage(); err != nil {
		return err
	}

	if err := validateFieldLength("toc.title", c.TOC.Title, MaxTOCTitleLength); err != nil {
		return err
	}
	if c.TOC.MaxDepth < 1 || c.TOC.MaxDepth > 3 {
		return invalid("toc.maxDepth", "must be between 1 and 3, got %d", c.TOC.MaxDepth)
	}
	if c.TOC.MaxPasses < 2 || c.TOC.MaxPasses > 10 {
		return invalid("toc.maxPasses", "must be between 2 and 10, got %d", c.TOC.MaxPasses)
	}

	if err := validateFieldLength("branding.company", c.Branding.Company, MaxCompanyLength); err != nil {
		return err
	}
	if err := validateFieldLength("branding.logo", c.Branding.Logo, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("branding.headerText", c.Branding.HeaderText, MaxHeaderTextLength); err != nil {
		return err
	}
	if err := validateFieldLength("branding.dateFormat", c.Branding.DateFormat, MaxDateFormatLength); err != nil {
		return err
	}

	if d, err := time.ParseDuration(c.Render.Timeout); err != nil || d <= 0 {
		return invalid("render.timeout", "must be a positive duration, got %q", c.Render.Timeout)
	}
	if c.Workers < 0 {
		return invalid("workers", "must be >= 0, got %d", c.Workers)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return invalid("log.format", "must be json or console, got %q", c.Log.Format)
	}
	return nil
}

func (c *Config) validateLimits() error {
	l := c.Limits
	if l.MaxCompressedBytes <= 0 {
		return invalid("limits.maxCompressedBytes", "must be positive, got %d", l.MaxCompressedBytes)
	}
	if l.MaxExtractedBytes <= 0 {
		return invalid("limits.maxExtractedBytes", "must be positive, got %d", l.MaxExtractedBytes)
	}
	if l.MaxEntries <= 0 {
		return invalid("limits.maxEntries", "must be positive, got %d", l.MaxEntries)
	}
	return nil
}

func (c *Config) validateLayout() error {
	l := c.Layout
	if l.CharsPerLine < 10 || l.CharsPerLine > 400 {
		return invalid("layout.charsPerLine", "must be between 10 and 400, got %d", l.CharsPerLine)
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"layout.lineHeight", l.LineHeight},
		{"layout.codeLineHeight", l.CodeLineHeight},
		{"layout.tableRowHeight", l.TableRowHeight},
		{"layout.defaultImageHeight", l.DefaultImageHeight},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return invalid(p.name, "must be positive, got %.2f", p.v)
		}
	}
	if l.CodePadding < 0 || l.TablePadding < 0 || l.BlockSpacing < 0 {
		return invalid("layout", "paddings and spacing cannot be negative")
	}
	if len(l.HeadingLineHeights) != 6 {
		return invalid("layout.headingLineHeights", "needs 6 values (h1-h6), got %d", len(l.HeadingLineHeights))
	}
	for i, h := range l.HeadingLineHeights {
		if h <= 0 {
			return invalid(fmt.Sprintf("layout.headingLineHeights[%d]", i), "must be positive, got %.2f", h)
		}
	}
	if l.Orphans < 1 || l.Orphans > 10 {
		return invalid("layout.orphans", "must be between 1 and 10, got %d", l.Orphans)
	}
	if l.Widows < 1 || l.Widows > 10 {
		return invalid("layout.widows", "must be between 1 and 10, got %d", l.Widows)
	}
	return nil
}

func (c *Config) validatePage() error {
	if _, _, ok := c.PageSize(); !ok {
		return invalid("page.format", "only A4 is supported, got %q", c.Page.Format)
	}
	p := c.Page
	for _, v := range []float64{p.MarginTop, p.MarginBottom, p.MarginLeft, p.MarginRight, p.HeaderHeight, p.FooterHeight} {
		if v < 0 {
			return invalid("page", "margins and header/footer heights cannot be negative")
		}
	}
	if c.ContentHeight() < 4*c.Layout.LineHeight {
		return invalid("page", "content height %.2fpt leaves no room for text", c.ContentHeight())
	}
	if c.ContentWidth() < 72 {
		return invalid("page", "content width %.2fpt is too narrow", c.ContentWidth())
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidValue, field, fmt.Sprintf(format, args...))
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name, overlaying
// the file on DefaultConfig. A value containing a path separator is a path;
// anything else is a name searched in standard locations.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !strings.ContainsAny(nameOrPath, "/\\") {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths lists where a config name is looked up, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, ConfigDirName, name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
