package builder

import (
	"errors"
	"fmt"

	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/ir/semantic"
)

// ErrUnknownFont is reported by Build when text was drawn with a font name
// that was never registered.
var ErrUnknownFont = errors.New("builder: font not registered")

// PDFBuilder provides a fluent API for PDF construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	SetInfo(info *semantic.DocumentInfo) PDFBuilder
	RegisterFont(name string, font *fonts.Font) PDFBuilder
	MeasureText(text string, fontSize float64, font string) float64
	Build() (*semantic.Document, error)
}

// PageBuilder provides a fluent API for page construction.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	Index() int
}

// PaperSize is a page size in points.
type PaperSize struct {
	Width, Height float64
}

// A4 is the ISO A4 sheet rounded to whole points.
var A4 = PaperSize{Width: 595, Height: 842}

// TextOptions configures text drawing.
type TextOptions struct {
	Font     string
	FontSize float64
	Color    Color
}

// Color is an RGB color with components in [0,1].
type Color struct {
	R, G, B float64
}

// Gray returns the neutral color with all components set to level.
func Gray(level float64) Color { return Color{R: level, G: level, B: level} }

type fontResource struct {
	font     *fonts.Font
	resource string
}

type builderImpl struct {
	pages   []*semantic.Page
	info    *semantic.DocumentInfo
	fonts   map[string]fontResource
	nextRes int
	drawErr error
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *semantic.Page
}

// NewBuilder constructs a PDFBuilder.
func NewBuilder() PDFBuilder { return &builderImpl{fonts: make(map[string]fontResource)} }

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	p := &semantic.Page{
		Index:    len(b.pages),
		MediaBox: semantic.Rectangle{LLX: 0, LLY: 0, URX: w, URY: h},
	}
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p}
}

func (b *builderImpl) SetInfo(info *semantic.DocumentInfo) PDFBuilder {
	b.info = info
	return b
}

// RegisterFont makes font available to DrawText under name. Resource names
// F1, F2, ... are assigned in registration order.
func (b *builderImpl) RegisterFont(name string, font *fonts.Font) PDFBuilder {
	if font == nil {
		return b
	}
	if existing, ok := b.fonts[name]; ok {
		b.fonts[name] = fontResource{font: font, resource: existing.resource}
		return b
	}
	b.nextRes++
	b.fonts[name] = fontResource{font: font, resource: fmt.Sprintf("F%d", b.nextRes)}
	return b
}

// MeasureText returns the width of text in user units, or zero for an
// unregistered font.
func (b *builderImpl) MeasureText(text string, fontSize float64, font string) float64 {
	res, ok := b.fonts[font]
	if !ok {
		return 0
	}
	return res.font.Measure(text, fontSize)
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	if b.drawErr != nil {
		return nil, b.drawErr
	}
	return &semantic.Document{Pages: b.pages, Info: b.info}, nil
}

func (p *pageBuilderImpl) Index() int { return p.page.Index }

func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	res, ok := p.parent.fonts[opts.Font]
	if !ok {
		if p.parent.drawErr == nil {
			p.parent.drawErr = fmt.Errorf("%w: %q", ErrUnknownFont, opts.Font)
		}
		return p
	}
	if p.page.Resources == nil {
		p.page.Resources = &semantic.Resources{Fonts: make(map[string]*fonts.Font)}
	}
	p.page.Resources.Fonts[res.resource] = res.font
	if len(p.page.Contents) == 0 {
		p.page.Contents = append(p.page.Contents, semantic.ContentStream{})
	}
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}

	ops := &p.page.Contents[0].Operations
	*ops = append(*ops,
		semantic.Operation{Operator: "BT"},
		semantic.Operation{
			Operator: "Tf",
			Operands: []semantic.Operand{semantic.NameOperand{Value: res.resource}, semantic.NumberOperand{Value: size}},
		},
		semantic.Operation{
			Operator: "Tm",
			Operands: []semantic.Operand{
				semantic.NumberOperand{Value: 1},
				semantic.NumberOperand{Value: 0},
				semantic.NumberOperand{Value: 0},
				semantic.NumberOperand{Value: 1},
				semantic.NumberOperand{Value: x},
				semantic.NumberOperand{Value: y},
			},
		},
		// Fill color is set on every run: it outlives ET.
		semantic.Operation{
			Operator: "rg",
			Operands: []semantic.Operand{
				semantic.NumberOperand{Value: opts.Color.R},
				semantic.NumberOperand{Value: opts.Color.G},
				semantic.NumberOperand{Value: opts.Color.B},
			},
		},
		semantic.Operation{
			Operator: "Tj",
			Operands: []semantic.Operand{semantic.StringOperand{Value: res.font.Encode(text)}},
		},
		semantic.Operation{Operator: "ET"},
	)
	return p
}
