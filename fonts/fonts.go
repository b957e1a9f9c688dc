// Package fonts provides the three faces a report is typeset with (bold,
// regular and fixed-width) as simple single-byte fonts in WinAnsiEncoding.
//
// Two flavours exist. Standard uses the PDF standard-14 faces Helvetica-Bold,
// Helvetica and Courier, which viewers supply themselves. Embedded uses the Go
// font family and ships the font programs inside the document.
package fonts

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Face names under which the three report fonts are registered.
const (
	Bold    = "bold"
	Regular = "regular"
	Mono    = "mono"
)

// Flavour selects where the three faces come from.
type Flavour string

const (
	Standard Flavour = "standard"
	Embedded Flavour = "embedded"
)

// ErrUnknownFlavour is returned by Load for an unsupported flavour.
var ErrUnknownFlavour = errors.New("fonts: unknown flavour")

// missingGlyph replaces runes that have no WinAnsi code.
const missingGlyph = '?'

// Font is a simple font addressed by single-byte WinAnsi codes.
type Font struct {
	BaseFont string
	Subtype  string // Type1 for standard faces, TrueType for embedded ones
	// Widths holds glyph advances in 1/1000 em, indexed by WinAnsi code.
	Widths     [256]int
	FixedPitch bool
	Descriptor *Descriptor // nil for standard faces
}

// Descriptor carries the FontDescriptor fields of an embedded font.
type Descriptor struct {
	FontName    string
	Flags       int
	ItalicAngle float64
	Ascent      float64
	Descent     float64
	CapHeight   float64
	StemV       float64
	FontBBox    [4]float64
	FontFile    []byte // TrueType program, written as FontFile2
}

// Embedded reports whether the font program travels with the document.
func (f *Font) Embedded() bool {
	return f != nil && f.Descriptor != nil && len(f.Descriptor.FontFile) > 0
}

// Encode converts UTF-8 text to WinAnsi bytes.
func (f *Font) Encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = missingGlyph
		}
		out = append(out, b)
	}
	return out
}

// Measure returns the advance width of text set at size points.
func (f *Font) Measure(text string, size float64) float64 {
	if f == nil {
		return 0
	}
	sum := 0
	for _, code := range f.Encode(text) {
		sum += f.Widths[code]
	}
	return float64(sum) * size / 1000
}

// Set groups the three report faces.
type Set struct {
	Bold    *Font
	Regular *Font
	Mono    *Font
}

// Lookup returns the face registered under name, or nil.
func (s Set) Lookup(name string) *Font {
	switch name {
	case Bold:
		return s.Bold
	case Regular:
		return s.Regular
	case Mono:
		return s.Mono
	}
	return nil
}

// Names lists the face names in registration order.
func (s Set) Names() []string { return []string{Bold, Regular, Mono} }

// ParseFlavour parses "standard" or "embedded", ignoring case. The empty
// string means Standard.
func ParseFlavour(s string) (Flavour, error) {
	switch f := Flavour(strings.ToLower(strings.TrimSpace(s))); f {
	case "", Standard:
		return Standard, nil
	case Embedded:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFlavour, s)
}

// Load returns the face set for flavour. An empty flavour means Standard.
func Load(flavour Flavour) (Set, error) {
	switch flavour {
	case "", Standard:
		return standardSet(), nil
	case Embedded:
		return embeddedSet()
	}
	return Set{}, fmt.Errorf("%w: %q", ErrUnknownFlavour, flavour)
}
