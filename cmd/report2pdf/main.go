// Command report2pdf typesets a radiology report text file as a PDF.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/midbel/hexdump"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/wudi/medreport/config"
	"github.com/wudi/medreport/report"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	ErrReadInput   = errors.New("reading report text")
	ErrWriteOutput = errors.New("writing PDF")
)

type options struct {
	input    string
	output   string
	config   string
	overflow string
	fonts    string
	backend  string
	format   string
	banner   string
	compress int
	dump     int
	verbose  bool
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	opts := &options{}
	fs := flag.NewFlagSet("report2pdf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.input, "input", "i", "-", "report text file (- for stdin)")
	fs.StringVarP(&opts.output, "output", "o", "", "output PDF path (default medical-report-<ms>.pdf)")
	fs.StringVarP(&opts.config, "config", "c", "", "YAML config file")
	fs.StringVar(&opts.overflow, "overflow", "", "page overflow: paginate or truncate")
	fs.StringVar(&opts.fonts, "fonts", "", "font flavour: standard or embedded")
	fs.StringVar(&opts.backend, "backend", "", "renderer: native or fpdf")
	fs.StringVar(&opts.format, "format", "", "input format: plain, markdown, html or auto")
	fs.StringVar(&opts.banner, "banner", "", "phrase marking the title line")
	fs.IntVar(&opts.compress, "compression", 0, "Flate level 0-9 (0 disables)")
	fs.IntVar(&opts.dump, "dump", 0, "hex dump the first N bytes of the PDF to stderr")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "print progress to stderr")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 && !fs.Changed("input") {
		opts.input = fs.Arg(0)
	}
	return opts, fs, nil
}

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	opts, fs, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitCodeFor(err)
	}
	if opts.version {
		fmt.Fprintf(stdout, "report2pdf %s\n", Version)
		return ExitSuccess
	}
	logf := func(string, ...interface{}) {}
	if opts.verbose {
		logf = func(format string, args ...interface{}) {
			fmt.Fprintf(stderr, format+"\n", args...)
		}
	}
	_, _ = maxprocs.Set(maxprocs.Logger(logf))

	if err := convert(ctx, opts, fs, stdin, stdout, stderr, getenv, logf); err != nil {
		fmt.Fprintln(stderr, "report2pdf:", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

func convert(ctx context.Context, opts *options, fs *flag.FlagSet, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string, logf func(string, ...interface{})) error {
	cfg, err := config.Load(opts.config, getenv)
	if err != nil {
		return err
	}
	override := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	override("overflow", &cfg.Report.Overflow, opts.overflow)
	override("fonts", &cfg.Report.Fonts, opts.fonts)
	override("backend", &cfg.Report.Backend, opts.backend)
	override("format", &cfg.Report.InputFormat, opts.format)
	override("banner", &cfg.Report.Banner, opts.banner)
	if fs.Changed("compression") {
		cfg.Report.Compression = opts.compress
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	text, err := readInput(opts.input, stdin)
	if err != nil {
		return err
	}
	logf("typesetting %d bytes with %s backend, %s fonts", len(text), cfg.Report.Backend, cfg.Report.Fonts)

	out, err := report.New(cfg.ReportOptions()...).Build(ctx, text)
	if err != nil {
		return err
	}

	path := opts.output
	if path == "" {
		path = out.Filename
	}
	if err := writeOutput(path, out.PDF, stdout); err != nil {
		return err
	}
	if out.Truncated {
		fmt.Fprintf(stderr, "warning: %d line(s) did not fit and were dropped\n", out.Dropped)
	}
	if opts.dump > 0 {
		n := min(opts.dump, len(out.PDF))
		fmt.Fprintln(stderr, hexdump.Dump(out.PDF[:n]))
	}
	if path != "-" {
		fmt.Fprintf(stdout, "%s: %d page(s), %d bytes\n", path, out.Pages, len(out.PDF))
	}
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path is user-provided
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	return string(data), nil
}

func writeOutput(path string, pdf []byte, stdout io.Writer) error {
	if path == "-" {
		if _, err := stdout.Write(pdf); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		return nil
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}
