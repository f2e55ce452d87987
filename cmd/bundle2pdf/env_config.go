package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-bundle2pdf/internal/config"
)

const envPrefix = "BUNDLE2PDF_"

// envConfig holds overrides read from BUNDLE2PDF_* variables, for CI jobs
// that have no config file.
type envConfig struct {
	ConfigPath string        // BUNDLE2PDF_CONFIG
	Style      string        // BUNDLE2PDF_STYLE
	AssetPath  string        // BUNDLE2PDF_ASSET_PATH
	Timeout    time.Duration // BUNDLE2PDF_TIMEOUT
	OutputDir  string        // BUNDLE2PDF_OUTPUT_DIR
	Company    string        // BUNDLE2PDF_COMPANY
	Logo       string        // BUNDLE2PDF_LOGO
	Workers    int           // BUNDLE2PDF_WORKERS
	LogLevel   string        // BUNDLE2PDF_LOG_LEVEL
	LogFormat  string        // BUNDLE2PDF_LOG_FORMAT
}

var knownEnvVars = map[string]bool{
	"BUNDLE2PDF_CONFIG":     true,
	"BUNDLE2PDF_STYLE":      true,
	"BUNDLE2PDF_ASSET_PATH": true,
	"BUNDLE2PDF_TIMEOUT":    true,
	"BUNDLE2PDF_OUTPUT_DIR": true,
	"BUNDLE2PDF_COMPANY":    true,
	"BUNDLE2PDF_LOGO":       true,
	"BUNDLE2PDF_WORKERS":    true,
	"BUNDLE2PDF_LOG_LEVEL":  true,
	"BUNDLE2PDF_LOG_FORMAT": true,
	"BUNDLE2PDF_CONTAINER":  true, // read by doctor
}

// loadEnvConfig reads every recognized variable. Unparsable numbers and
// durations are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	e := &envConfig{
		ConfigPath: getenv("BUNDLE2PDF_CONFIG"),
		Style:      getenv("BUNDLE2PDF_STYLE"),
		AssetPath:  getenv("BUNDLE2PDF_ASSET_PATH"),
		OutputDir:  getenv("BUNDLE2PDF_OUTPUT_DIR"),
		Company:    getenv("BUNDLE2PDF_COMPANY"),
		Logo:       getenv("BUNDLE2PDF_LOGO"),
		LogLevel:   getenv("BUNDLE2PDF_LOG_LEVEL"),
		LogFormat:  getenv("BUNDLE2PDF_LOG_FORMAT"),
	}
	if v := getenv("BUNDLE2PDF_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			e.Timeout = d
		}
	}
	if v := getenv("BUNDLE2PDF_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			e.Workers = n
		}
	}
	return e
}

// warnUnknownEnvVars flags BUNDLE2PDF_* variables that nothing reads,
// usually typos.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, envPrefix) && !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig layers env values over the loaded config. Precedence is
// flags > env > config file > defaults; flags are merged afterwards.
func applyEnvConfig(e *envConfig, cfg *config.Config) {
	if e.Style != "" {
		cfg.Assets.Style = e.Style
	}
	if e.AssetPath != "" {
		cfg.Assets.BasePath = e.AssetPath
	}
	if e.Timeout > 0 {
		cfg.Render.Timeout = e.Timeout.String()
	}
	if e.Company != "" {
		cfg.Branding.Company = e.Company
	}
	if e.Logo != "" {
		cfg.Branding.Logo = e.Logo
	}
	if e.Workers > 0 {
		cfg.Workers = e.Workers
	}
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		cfg.Log.Format = e.LogFormat
	}
}
