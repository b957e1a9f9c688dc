package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/medreport/config"
	"github.com/wudi/medreport/report"
)

func noEnv(string) string { return "" }

func TestRun_WritesPDF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "report.txt")
	out := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(in, []byte("DEPARTMENT OF RADIOLOGY & IMAGING\r\nFINDINGS\r\nLAD: 50% stenosis\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"report2pdf", "-o", out, "--dump", "16", in}, nil, &stdout, &stderr, noEnv)
	if code != ExitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
	if !strings.Contains(stdout.String(), "1 page(s)") {
		t.Fatalf("summary = %q", stdout.String())
	}
	if stderr.Len() == 0 {
		t.Fatalf("--dump printed nothing")
	}
}

func TestRun_StdinToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(strings.Repeat("RCA: patent\n", 80))
	code := run(context.Background(), []string{"report2pdf", "-o", "-", "--overflow", "truncate", "--backend", "fpdf"}, stdin, &stdout, &stderr, noEnv)
	if code != ExitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if !bytes.HasPrefix(stdout.Bytes(), []byte("%PDF-")) {
		t.Fatalf("stdout is not a PDF")
	}
	if !strings.Contains(stderr.String(), "dropped") {
		t.Fatalf("truncation warning missing: %q", stderr.String())
	}
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"report2pdf", "--help"}, ExitSuccess},
		{"version", []string{"report2pdf", "--version"}, ExitSuccess},
		{"unknown flag", []string{"report2pdf", "--colour"}, ExitUsage},
		{"bad overflow", []string{"report2pdf", "--overflow", "wrap", "-o", "-"}, ExitUsage},
		{"missing config", []string{"report2pdf", "-c", filepath.Join(dir, "none.yaml")}, ExitUsage},
		{"missing input", []string{"report2pdf", filepath.Join(dir, "none.txt")}, ExitIO},
		{"unwritable output", []string{"report2pdf", "-o", filepath.Join(dir, "no", "such", "dir.pdf")}, ExitIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := run(context.Background(), tc.args, strings.NewReader("LAD: normal"), &stdout, &stderr, noEnv)
			if code != tc.want {
				t.Fatalf("exit code %d, want %d (stderr %s)", code, tc.want, stderr.String())
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{config.ErrInvalidValue, ExitUsage},
		{report.ErrInvalidInput, ExitUsage},
		{ErrReadInput, ExitIO},
		{report.ErrSerialization, ExitGeneral},
		{errors.New("boom"), ExitGeneral},
	}
	for _, tt := range tests {
		if got := exitCodeFor(tt.err); got != tt.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
