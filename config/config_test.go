package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/medreport/report"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medreport.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if d, _ := cfg.RequestTimeout(); d != 60*time.Second {
		t.Fatalf("request timeout = %v", d)
	}
	if cfg.Deepgram.Model != "nova-3-medical" || cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected collaborator defaults: %+v %+v", cfg.Deepgram, cfg.Gemini)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  requestTimeout: "15s"
report:
  overflow: truncate
  fonts: embedded
  compression: 0
log:
  level: debug
`)
	cfg, err := Load(path, env(map[string]string{
		EnvBackend: "fpdf",
		EnvGemini:  "g-key",
		EnvFonts:   "",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Report.Overflow != "truncate" || cfg.Report.Fonts != "embedded" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Report.Backend != "fpdf" || cfg.Gemini.APIKey != "g-key" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Report.InputFormat != "plain" || cfg.Server.MaxUploadMB != 25 {
		t.Fatalf("defaults lost for unset keys: %+v", cfg)
	}
	if level, _ := cfg.SlogLevel(); level != slog.LevelDebug {
		t.Fatalf("level = %v", level)
	}
	if got := len(cfg.ReportOptions()); got != 7 {
		t.Fatalf("report options = %d", got)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \"127.0.0.1:7000\"\n")
	cfg, err := Load("", env(map[string]string{EnvConfig: path, EnvAddr: ":7001"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7001" {
		t.Fatalf("env should override file, got %q", cfg.Server.Addr)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    error
	}{
		{"unknown key", "report:\n  colour: red\n", nil, ErrConfigParse},
		{"bad yaml", "server: [\n", nil, ErrConfigParse},
		{"bad overflow", "report:\n  overflow: wrap\n", nil, ErrInvalidValue},
		{"bad fonts", "", map[string]string{EnvFonts: "comic"}, ErrInvalidValue},
		{"bad backend", "", map[string]string{EnvBackend: "cairo"}, ErrInvalidValue},
		{"bad compression", "report:\n  compression: 12\n", nil, ErrInvalidValue},
		{"bad timeout", "server:\n  requestTimeout: soon\n", nil, ErrInvalidValue},
		{"bad level", "", map[string]string{EnvLogLevel: "loud"}, ErrInvalidValue},
		{"bad format", "log:\n  format: xml\n", nil, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.content != "" {
				path = writeConfig(t, tt.content)
			}
			if _, err := Load(path, env(tt.env)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_ReportValuesIgnoreCase(t *testing.T) {
	cfg, err := Load("", env(map[string]string{EnvFonts: "Embedded", EnvBackend: "NATIVE", EnvOverflow: "Truncate"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := report.New(cfg.ReportOptions()...).Build(context.Background(), "LAD: 50% stenosis")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(string(out.PDF), "/FontFile2") {
		t.Fatalf("embedded flavour not applied")
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}
