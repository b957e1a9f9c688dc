// Package fpdfbuilder draws report pages with github.com/go-pdf/fpdf. It is
// an alternative to the native builder and writer pair and satisfies the
// same drawing surface.
package fpdfbuilder

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/wudi/medreport/builder"
	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/ir/semantic"
)

// ErrUnsupportedFont is returned for a standard font fpdf has no core
// equivalent for.
var ErrUnsupportedFont = errors.New("fpdfbuilder: unsupported font")

// coreFaces maps standard-14 names onto fpdf core families and styles.
var coreFaces = map[string]face{
	"Helvetica":      {family: "Helvetica"},
	"Helvetica-Bold": {family: "Helvetica", style: "B"},
	"Courier":        {family: "Courier"},
	"Courier-Bold":   {family: "Courier", style: "B"},
	"Times-Roman":    {family: "Times"},
	"Times-Bold":     {family: "Times", style: "B"},
}

type face struct {
	family string
	style  string
	utf8   bool
}

// Builder accumulates pages in an fpdf document. It is not safe for
// concurrent use.
type Builder struct {
	pdf     *fpdf.Fpdf
	faces   map[string]face
	tr      func(string) string
	heights []float64
}

// Option configures a Builder.
type Option func(*Builder)

// WithCompression toggles Flate compression of page streams.
func WithCompression(on bool) Option {
	return func(b *Builder) {
		b.pdf.SetCompression(on)
	}
}

// New returns an empty builder measuring in points.
func New(opts ...Option) *Builder {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: builder.A4.Width, Ht: builder.A4.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	b := &Builder{
		pdf:   pdf,
		faces: make(map[string]face),
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterFont makes f available under name. Embedded fonts are loaded
// from their TrueType program; standard fonts map to fpdf core fonts.
func (b *Builder) RegisterFont(name string, f *fonts.Font) error {
	if f == nil {
		return fmt.Errorf("%w: %q is nil", ErrUnsupportedFont, name)
	}
	if f.Embedded() {
		b.pdf.AddUTF8FontFromBytes(f.BaseFont, "", f.Descriptor.FontFile)
		if err := b.pdf.Error(); err != nil {
			return fmt.Errorf("fpdfbuilder: load %s: %w", f.BaseFont, err)
		}
		b.faces[name] = face{family: f.BaseFont, utf8: true}
		return nil
	}
	fc, ok := coreFaces[f.BaseFont]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFont, f.BaseFont)
	}
	b.faces[name] = fc
	return nil
}

// SetInfo copies document metadata into the fpdf document.
func (b *Builder) SetInfo(info *semantic.DocumentInfo) {
	if info == nil {
		return
	}
	b.pdf.SetTitle(info.Title, true)
	b.pdf.SetAuthor(info.Author, true)
	b.pdf.SetSubject(info.Subject, true)
	b.pdf.SetCreator(info.Creator, true)
	if info.Producer != "" {
		b.pdf.SetProducer(info.Producer, true)
	}
	if !info.CreationDate.IsZero() {
		b.pdf.SetCreationDate(info.CreationDate)
		b.pdf.SetModificationDate(info.CreationDate)
	}
}

// NewPage appends a page of the given size.
func (b *Builder) NewPage(width, height float64) builder.PageBuilder {
	b.pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
	b.heights = append(b.heights, height)
	return &page{parent: b, index: len(b.heights) - 1}
}

// MeasureText returns the width of text in points, or zero for an
// unregistered font.
func (b *Builder) MeasureText(text string, fontSize float64, font string) float64 {
	fc, ok := b.faces[font]
	if !ok {
		return 0
	}
	b.pdf.SetFont(fc.family, fc.style, fontSize)
	return b.pdf.GetStringWidth(b.encode(fc, text))
}

// PageCount returns the number of pages added so far.
func (b *Builder) PageCount() int { return len(b.heights) }

// Write serializes the document to w.
func (b *Builder) Write(w io.Writer) error {
	if len(b.heights) == 0 {
		return errors.New("fpdfbuilder: document has no pages")
	}
	return b.pdf.Output(w)
}

func (b *Builder) encode(fc face, text string) string {
	if fc.utf8 {
		return text
	}
	return b.tr(text)
}

type page struct {
	parent *Builder
	index  int
}

func (p *page) Index() int { return p.index }

// DrawText places text with its baseline at y measured from the bottom
// edge, like the native builder.
func (p *page) DrawText(text string, x, y float64, opts builder.TextOptions) builder.PageBuilder {
	b := p.parent
	fc, ok := b.faces[opts.Font]
	if !ok {
		b.pdf.SetErrorf("fpdfbuilder: font %q not registered", opts.Font)
		return p
	}
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	b.pdf.SetPage(p.index + 1)
	b.pdf.SetFont(fc.family, fc.style, size)
	b.pdf.SetTextColor(channel(opts.Color.R), channel(opts.Color.G), channel(opts.Color.B))
	b.pdf.Text(x, b.heights[p.index]-y, b.encode(fc, text))
	return p
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return int(v*255 + 0.5)
}
