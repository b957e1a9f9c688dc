// Package report assembles report text into a PDF document: it splits the
// text into lines, classifies them, lays them out on A4 pages, stamps the
// generation footer on every page and serializes the result in memory.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wudi/medreport/builder"
	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/fpdfbuilder"
	"github.com/wudi/medreport/ingest"
	"github.com/wudi/medreport/ir/semantic"
	"github.com/wudi/medreport/layout"
	"github.com/wudi/medreport/observability"
	"github.com/wudi/medreport/writer"
)

var (
	// ErrInvalidInput is returned for report text that cannot be typeset.
	ErrInvalidInput = errors.New("report: invalid input")
	// ErrSerialization is returned when the PDF bytes cannot be produced.
	ErrSerialization = errors.New("report: serialization failed")
	// ErrFonts is returned when the report fonts cannot be set up.
	ErrFonts = errors.New("report: font setup failed")
)

// FooterLayout formats the generation time as DD/MM/YYYY, HH:MM:SS.
const FooterLayout = "02/01/2006, 15:04:05"

// FooterText returns the footer stamped on every page.
func FooterText(t time.Time) string {
	return "Generated: " + t.Format(FooterLayout)
}

// Filename returns the suggested download name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("medical-report-%d.pdf", t.UnixMilli())
}

// Output is an assembled document.
type Output struct {
	PDF       []byte
	Pages     int
	Truncated bool
	Dropped   int
	Filename  string
}

// Assembler turns report text into PDF bytes. It holds only configuration,
// so one Assembler may serve concurrent Build calls.
type Assembler struct {
	overflow      layout.Overflow
	flavour       fonts.Flavour
	backend       Backend
	format        ingest.Format
	compression   int
	banner        string
	deterministic bool
	title         string
	author        string
	creator       string
	now           func() time.Time
	logger        observability.Logger
	tracer        observability.Tracer
}

// New returns an Assembler that paginates plain text with the standard
// fonts and the native backend unless configured otherwise.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		overflow: layout.OverflowPaginate,
		flavour:  fonts.Standard,
		backend:  Native,
		format:   ingest.Plain,
		banner:   layout.DefaultBanner,
		title:    "Medical Report",
		creator:  "medreport",
		now:      time.Now,
		logger:   observability.NopLogger{},
		tracer:   observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// surface is a layout surface that can also serialize itself.
type surface interface {
	layout.Surface
	serialize(ctx context.Context, buf *bytes.Buffer) error
}

// Build typesets text and returns the serialized document.
func (a *Assembler) Build(ctx context.Context, text string) (out *Output, err error) {
	ctx, span := a.tracer.StartSpan(ctx, observability.SpanReportBuild)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	lines, err := ingest.Lines(text, a.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	set, err := fonts.Load(a.flavour)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFonts, err)
	}

	generated := a.now()
	info := &semantic.DocumentInfo{
		Title:        a.title,
		Author:       a.author,
		Creator:      a.creator,
		Producer:     "medreport",
		CreationDate: generated,
	}
	surf, err := a.newSurface(set, info)
	if err != nil {
		return nil, err
	}

	classifier := layout.NewClassifier(layout.WithBanner(a.banner))
	engine := layout.NewEngine(surf, layout.WithOverflow(a.overflow))
	engine.Layout(classifier.ClassifyAll(lines))
	res := engine.Finish(FooterText(generated))

	var buf bytes.Buffer
	if err := surf.serialize(ctx, &buf); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	if res.Truncated {
		a.logger.Warn("report truncated at page bottom",
			observability.Int("dropped_lines", res.Dropped),
			observability.Int("placed_runs", len(res.Runs)),
		)
	}
	span.SetTag(observability.MetricPageCount, res.Pages)
	span.SetTag(observability.MetricPDFBytes, buf.Len())
	span.SetTag(observability.MetricDroppedLine, res.Dropped)
	span.SetTag(observability.MetricBuildTime, time.Since(start))
	a.logger.Debug("report built",
		observability.Int("lines", len(lines)),
		observability.Int("pages", res.Pages),
		observability.Int("bytes", buf.Len()),
		observability.String("backend", string(a.backend)),
		observability.Duration("elapsed", time.Since(start)),
	)

	return &Output{
		PDF:       buf.Bytes(),
		Pages:     res.Pages,
		Truncated: res.Truncated,
		Dropped:   res.Dropped,
		Filename:  Filename(generated),
	}, nil
}

func (a *Assembler) newSurface(set fonts.Set, info *semantic.DocumentInfo) (surface, error) {
	switch a.backend {
	case "", Native:
		b := builder.NewBuilder().SetInfo(info)
		for _, name := range set.Names() {
			b.RegisterFont(name, set.Lookup(name))
		}
		return &nativeSurface{
			PDFBuilder: b,
			cfg:        writer.Config{Compression: a.compression, Deterministic: a.deterministic},
		}, nil
	case FPDF:
		b := fpdfbuilder.New(fpdfbuilder.WithCompression(a.compression != 0))
		for _, name := range set.Names() {
			if err := b.RegisterFont(name, set.Lookup(name)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFonts, err)
			}
		}
		b.SetInfo(info)
		return &fpdfSurface{Builder: b}, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidInput, a.backend)
}

type nativeSurface struct {
	builder.PDFBuilder
	cfg writer.Config
}

func (s *nativeSurface) serialize(ctx context.Context, buf *bytes.Buffer) error {
	doc, err := s.Build()
	if err != nil {
		return err
	}
	return writer.New().Write(ctx, doc, buf, s.cfg)
}

type fpdfSurface struct {
	*fpdfbuilder.Builder
}

func (s *fpdfSurface) serialize(ctx context.Context, buf *bytes.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Write(buf)
}
