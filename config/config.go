// Package config loads the service and CLI configuration from an optional
// YAML file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/ingest"
	"github.com/wudi/medreport/layout"
	"github.com/wudi/medreport/report"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidValue   = errors.New("invalid config value")
)

// MaxFileSize limits config input to 1MB.
const MaxFileSize = 1 << 20

// Environment variables read by ApplyEnv and Load.
const (
	EnvConfig    = "MEDREPORT_CONFIG"
	EnvAddr      = "MEDREPORT_ADDR"
	EnvDeepgram  = "DEEPGRAM_API_KEY"
	EnvGemini    = "GEMINI_API_KEY"
	EnvOverflow  = "MEDREPORT_OVERFLOW"
	EnvFonts     = "MEDREPORT_FONTS"
	EnvBackend   = "MEDREPORT_BACKEND"
	EnvLogLevel  = "MEDREPORT_LOG_LEVEL"
	EnvLogFormat = "MEDREPORT_LOG_FORMAT"
)

// Config holds all configuration for the service and the CLI.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Report   ReportConfig   `yaml:"report"`
	Deepgram DeepgramConfig `yaml:"deepgram"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	RequestTimeout string `yaml:"requestTimeout"` // Go duration, e.g. "60s"
	MaxUploadMB    int    `yaml:"maxUploadMB"`
}

// ReportConfig defines how reports are typeset.
type ReportConfig struct {
	Overflow    string `yaml:"overflow"`    // "paginate" or "truncate"
	Fonts       string `yaml:"fonts"`       // "standard" or "embedded"
	Backend     string `yaml:"backend"`     // "native" or "fpdf"
	InputFormat string `yaml:"inputFormat"` // "plain", "markdown", "html" or "auto"
	Compression int    `yaml:"compression"` // Flate level, 0 disables
	Banner      string `yaml:"banner"`
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
}

// DeepgramConfig defines the transcription collaborator.
type DeepgramConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// GeminiConfig defines the report generation collaborator.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", RequestTimeout: "60s", MaxUploadMB: 25},
		Report: ReportConfig{
			Overflow:    "paginate",
			Fonts:       string(fonts.Standard),
			Backend:     string(report.Native),
			InputFormat: string(ingest.Plain),
			Compression: 6,
			Banner:      layout.DefaultBanner,
			Title:       "Medical Report",
		},
		Deepgram: DeepgramConfig{BaseURL: "https://api.deepgram.com", Model: "nova-3-medical"},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFile reads path over the defaults. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrConfigParse, path, len(data), MaxFileSize)
	}
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the file named
// by path (or by MEDREPORT_CONFIG when path is empty), then environment
// overrides. The result is validated.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if path == "" {
		path = getenv(EnvConfig)
	}
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, EnvAddr)
	set(&c.Deepgram.APIKey, EnvDeepgram)
	set(&c.Gemini.APIKey, EnvGemini)
	set(&c.Report.Overflow, EnvOverflow)
	set(&c.Report.Fonts, EnvFonts)
	set(&c.Report.Backend, EnvBackend)
	set(&c.Log.Level, EnvLogLevel)
	set(&c.Log.Format, EnvLogFormat)
}

// Validate checks every enumerated field and range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidValue)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if c.Server.MaxUploadMB < 1 || c.Server.MaxUploadMB > 512 {
		return fmt.Errorf("%w: server.maxUploadMB must be between 1 and 512, got %d", ErrInvalidValue, c.Server.MaxUploadMB)
	}
	if _, err := layout.ParseOverflow(c.Report.Overflow); err != nil {
		return fmt.Errorf("%w: report.overflow: %v", ErrInvalidValue, err)
	}
	if _, err := fonts.ParseFlavour(c.Report.Fonts); err != nil {
		return fmt.Errorf("%w: report.fonts: %v", ErrInvalidValue, err)
	}
	if _, err := report.ParseBackend(c.Report.Backend); err != nil {
		return fmt.Errorf("%w: report.backend: %v", ErrInvalidValue, err)
	}
	if _, err := ingest.ParseFormat(c.Report.InputFormat); err != nil {
		return fmt.Errorf("%w: report.inputFormat: %v", ErrInvalidValue, err)
	}
	if c.Report.Compression < 0 || c.Report.Compression > 9 {
		return fmt.Errorf("%w: report.compression must be between 0 and 9, got %d", ErrInvalidValue, c.Report.Compression)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}
	return nil
}

// RequestTimeout parses server.requestTimeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.RequestTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: server.requestTimeout %q", ErrInvalidValue, c.Server.RequestTimeout)
	}
	return d, nil
}

// SlogLevel maps log.level onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
	}
	return level, nil
}

// ReportOptions translates the report section into assembler options.
// Call Validate first; unparsable values fall back to the defaults.
func (c *Config) ReportOptions() []report.Option {
	overflow, _ := layout.ParseOverflow(c.Report.Overflow)
	backend, _ := report.ParseBackend(c.Report.Backend)
	format, _ := ingest.ParseFormat(c.Report.InputFormat)
	flavour, _ := fonts.ParseFlavour(c.Report.Fonts)
	return []report.Option{
		report.WithOverflow(overflow),
		report.WithFonts(flavour),
		report.WithBackend(backend),
		report.WithInputFormat(format),
		report.WithCompression(c.Report.Compression),
		report.WithBanner(c.Report.Banner),
		report.WithInfo(c.Report.Title, c.Report.Author, "medreport"),
	}
}
