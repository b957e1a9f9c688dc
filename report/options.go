package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/ingest"
	"github.com/wudi/medreport/layout"
	"github.com/wudi/medreport/observability"
)

// Backend selects the PDF renderer.
type Backend string

const (
	// Native renders with the builder and writer packages.
	Native Backend = "native"
	// FPDF renders with github.com/go-pdf/fpdf.
	FPDF Backend = "fpdf"
)

// ParseBackend parses a backend name. The empty string means Native.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return Native, nil
	case Native, FPDF:
		return b, nil
	}
	return "", fmt.Errorf("report: unknown backend %q", s)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithOverflow sets what happens when a page is full.
func WithOverflow(o layout.Overflow) Option {
	return func(a *Assembler) {
		a.overflow = o
	}
}

// WithFonts selects the font flavour.
func WithFonts(f fonts.Flavour) Option {
	return func(a *Assembler) {
		a.flavour = f
	}
}

// WithBackend selects the renderer.
func WithBackend(b Backend) Option {
	return func(a *Assembler) {
		a.backend = b
	}
}

// WithInputFormat sets how report text is flattened to lines.
func WithInputFormat(f ingest.Format) Option {
	return func(a *Assembler) {
		a.format = f
	}
}

// WithCompression sets the Flate level for page streams; zero disables it.
func WithCompression(level int) Option {
	return func(a *Assembler) {
		a.compression = level
	}
}

// WithBanner replaces the phrase that marks the title line.
func WithBanner(phrase string) Option {
	return func(a *Assembler) {
		a.banner = phrase
	}
}

// WithClock sets the time source for the footer stamp, filename and
// document dates.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) Option {
	return func(a *Assembler) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithInfo sets the title, author and creator recorded in the document.
func WithInfo(title, author, creator string) Option {
	return func(a *Assembler) {
		a.title, a.author, a.creator = title, author, creator
	}
}

// WithDeterministic makes the native backend derive the file identifier
// from the content.
func WithDeterministic(on bool) Option {
	return func(a *Assembler) {
		a.deterministic = on
	}
}
