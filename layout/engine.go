package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wudi/medreport/builder"
	"github.com/wudi/medreport/fonts"
)

// Surface is what the engine draws on. Both the native builder and the
// fpdf backend satisfy it.
type Surface interface {
	NewPage(width, height float64) builder.PageBuilder
	MeasureText(text string, fontSize float64, font string) float64
}

// Overflow selects what happens when the cursor passes the bottom margin.
type Overflow int

const (
	// OverflowPaginate continues on a fresh page.
	OverflowPaginate Overflow = iota
	// OverflowTruncate stops placing lines and reports the remainder as dropped.
	OverflowTruncate
)

func (o Overflow) String() string {
	if o == OverflowTruncate {
		return "truncate"
	}
	return "paginate"
}

// ParseOverflow parses "paginate" or "truncate". The empty string means paginate.
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "paginate":
		return OverflowPaginate, nil
	case "truncate":
		return OverflowTruncate, nil
	}
	return 0, fmt.Errorf("layout: unknown overflow mode %q", s)
}

// Margins defines page margins in points.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Cursor is the baseline position of the next run.
type Cursor struct {
	Y    float64
	Page int
}

// Run is one text run placed on a page.
type Run struct {
	Page    int
	X, Y    float64
	Text    string
	Role    Role
	Style   LineStyle
	Clipped bool
}

// Result summarizes a finished layout.
type Result struct {
	Pages     int
	Runs      []Run
	Footers   []Run
	Truncated bool
	// Dropped counts the lines that were never placed because of truncation.
	Dropped int
	Cursor  Cursor
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithOverflow sets the overflow mode.
func WithOverflow(o Overflow) Option {
	return func(e *Engine) {
		e.overflow = o
	}
}

// WithMargins sets the page margins.
func WithMargins(m Margins) Option {
	return func(e *Engine) {
		e.margins = m
	}
}

// WithPaperSize sets the page dimensions.
func WithPaperSize(size builder.PaperSize) Option {
	return func(e *Engine) {
		e.paper = size
	}
}

// WithFooterStyle sets the footer style and its baseline.
func WithFooterStyle(style LineStyle, y float64) Option {
	return func(e *Engine) {
		e.footerStyle = style
		e.footerY = y
	}
}

// Engine places classified lines top to bottom onto pages of a Surface.
// An Engine is used for a single document and is not safe for concurrent use.
type Engine struct {
	surface     Surface
	overflow    Overflow
	margins     Margins
	paper       builder.PaperSize
	footerStyle LineStyle
	footerY     float64

	pages     []builder.PageBuilder
	cursor    Cursor
	runs      []Run
	truncated bool
	dropped   int
	finished  *Result
}

// NewEngine creates an engine and opens its first page.
func NewEngine(surface Surface, opts ...Option) *Engine {
	e := &Engine{
		surface:  surface,
		overflow: OverflowPaginate,
		margins: Margins{
			Top:    50,
			Bottom: 50,
			Left:   50,
			Right:  50,
		},
		paper:       builder.A4,
		footerStyle: LineStyle{Font: fonts.Regular, Size: 8, Color: builder.Gray(0.5)},
		footerY:     30,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.newPage()
	return e
}

// Cursor returns the current cursor.
func (e *Engine) Cursor() Cursor { return e.cursor }

// UsableWidth is the page width between the left and right margins.
func (e *Engine) UsableWidth() float64 {
	return e.paper.Width - e.margins.Left - e.margins.Right
}

func (e *Engine) newPage() {
	e.pages = append(e.pages, e.surface.NewPage(e.paper.Width, e.paper.Height))
	e.cursor = Cursor{Y: e.paper.Height - e.margins.Top, Page: len(e.pages) - 1}
}

// ShouldAdvancePage reports whether the cursor has passed the bottom margin.
func (e *Engine) ShouldAdvancePage() bool {
	return e.cursor.Y < e.margins.Bottom
}

// Place draws line at the cursor on the current page and moves the cursor
// down. Blank lines only move the cursor.
func (e *Engine) Place(line ClassifiedLine) {
	if line.Blank {
		e.cursor.Y -= line.Style.Advance
		return
	}
	e.cursor.Y -= line.Style.SpaceBefore
	text, clipped := e.fit(line.Text, line.Style)
	x := e.margins.Left
	e.pages[e.cursor.Page].DrawText(text, x, e.cursor.Y, builder.TextOptions{
		Font:     line.Style.Font,
		FontSize: line.Style.Size,
		Color:    line.Style.Color,
	})
	e.runs = append(e.runs, Run{
		Page:    e.cursor.Page,
		X:       x,
		Y:       e.cursor.Y,
		Text:    text,
		Role:    line.Role,
		Style:   line.Style,
		Clipped: clipped,
	})
	e.cursor.Y -= line.Style.Advance
}

// Layout places lines in order. Before each line the cursor is checked
// against the bottom margin: in paginate mode a new page is opened for the
// next non-blank line, in truncate mode the remaining lines are dropped.
// Once truncated, further calls drop everything they are given.
func (e *Engine) Layout(lines []ClassifiedLine) {
	for i, line := range lines {
		if e.truncated {
			e.dropped += len(lines) - i
			return
		}
		if e.ShouldAdvancePage() {
			if e.overflow == OverflowTruncate {
				e.truncated = true
				e.dropped += len(lines) - i
				return
			}
			if !line.Blank {
				e.newPage()
			}
		}
		e.Place(line)
	}
}

// Finish stamps footer on every page and returns the layout summary.
// Subsequent calls return the same summary without drawing again.
func (e *Engine) Finish(footer string) Result {
	if e.finished != nil {
		return *e.finished
	}
	footers := make([]Run, 0, len(e.pages))
	for i, p := range e.pages {
		text, clipped := e.fit(footer, e.footerStyle)
		p.DrawText(text, e.margins.Left, e.footerY, builder.TextOptions{
			Font:     e.footerStyle.Font,
			FontSize: e.footerStyle.Size,
			Color:    e.footerStyle.Color,
		})
		footers = append(footers, Run{
			Page:    i,
			X:       e.margins.Left,
			Y:       e.footerY,
			Text:    text,
			Role:    RoleFooter,
			Style:   e.footerStyle,
			Clipped: clipped,
		})
	}
	e.finished = &Result{
		Pages:     len(e.pages),
		Runs:      e.runs,
		Footers:   footers,
		Truncated: e.truncated,
		Dropped:   e.dropped,
		Cursor:    e.cursor,
	}
	return *e.finished
}

// fit drops runes from the end of text until it fits the usable width.
func (e *Engine) fit(text string, style LineStyle) (string, bool) {
	limit := e.UsableWidth()
	if e.surface.MeasureText(text, style.Size, style.Font) <= limit {
		return text, false
	}
	for text != "" {
		_, size := utf8.DecodeLastRuneInString(text)
		text = text[:len(text)-size]
		if e.surface.MeasureText(text, style.Size, style.Font) <= limit {
			break
		}
	}
	return text, true
}
