package fonts

import (
	"bytes"
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"
)

// Font descriptor flag bits (PDF 32000-1, table 123).
const (
	flagFixedPitch  = 1 << 0
	flagNonsymbolic = 1 << 5
)

var (
	embeddedOnce sync.Once
	embeddedFs   Set
	embeddedErr  error
)

// embeddedSet parses the Go fonts once; the resulting fonts are read-only
// and shared by every document.
func embeddedSet() (Set, error) {
	embeddedOnce.Do(func() {
		var s Set
		if s.Bold, embeddedErr = LoadTrueType("GoBold", gobold.TTF, false); embeddedErr != nil {
			return
		}
		if s.Regular, embeddedErr = LoadTrueType("GoRegular", goregular.TTF, false); embeddedErr != nil {
			return
		}
		if s.Mono, embeddedErr = LoadTrueType("GoMono", gomono.TTF, true); embeddedErr != nil {
			return
		}
		embeddedFs = s
	})
	return embeddedFs, embeddedErr
}

// LoadTrueType parses a TrueType program and returns a WinAnsi-encoded
// TrueType font that embeds the full program.
func LoadTrueType(name string, data []byte, fixedPitch bool) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("fonts: %s: truetype data is empty", name)
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: %s: parse truetype: %w", name, err)
	}
	upem := parsed.UnitsPerEm()
	if upem == 0 {
		return nil, fmt.Errorf("fonts: %s: invalid unitsPerEm", name)
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(upem << 6)

	baseName := name
	if ps, err := parsed.Name(buf, sfnt.NameIDPostScript); err == nil && ps != "" {
		baseName = ps
	}

	widths, err := advanceWidths(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: %s: %w", name, err)
	}

	metrics, _ := parsed.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := parsed.Bounds(buf, ppem, xfont.HintingNone)
	italic := 0.0
	if post := parsed.PostTable(); post != nil {
		italic = post.ItalicAngle
	}
	flags := flagNonsymbolic
	if fixedPitch {
		flags |= flagFixedPitch
	}
	capHeight := metrics.CapHeight
	if capHeight == 0 {
		capHeight = metrics.Ascent
	}

	return &Font{
		BaseFont:   baseName,
		Subtype:    "TrueType",
		Widths:     widths,
		FixedPitch: fixedPitch,
		Descriptor: &Descriptor{
			FontName:    baseName,
			Flags:       flags,
			ItalicAngle: italic,
			Ascent:      toGlyphSpace(metrics.Ascent, upem),
			Descent:     -toGlyphSpace(metrics.Descent, upem),
			CapHeight:   toGlyphSpace(capHeight, upem),
			StemV:       80,
			// sfnt bounds grow downwards; PDF glyph space grows upwards.
			FontBBox: [4]float64{
				toGlyphSpace(bounds.Min.X, upem),
				-toGlyphSpace(bounds.Max.Y, upem),
				toGlyphSpace(bounds.Max.X, upem),
				-toGlyphSpace(bounds.Min.Y, upem),
			},
			FontFile: data,
		},
	}, nil
}

// advanceWidths shapes every WinAnsi character on its own so the widths
// match what a viewer renders from the Widths array (no kerning).
func advanceWidths(data []byte) ([256]int, error) {
	var widths [256]int
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return widths, fmt.Errorf("load face: %w", err)
	}
	shaper := &shaping.HarfbuzzShaper{}
	// 1000 em units expressed in 26.6 fixed point.
	size := fixed.Int26_6(1000 * 64)
	for code := 32; code < 256; code++ {
		r := charmap.Windows1252.DecodeByte(byte(code))
		if r == utf8.RuneError {
			continue
		}
		runes := []rune{r}
		out := shaper.Shape(shaping.Input{
			Text:      runes,
			RunStart:  0,
			RunEnd:    len(runes),
			Direction: di.DirectionLTR,
			Face:      face,
			Size:      size,
			Script:    language.Latin,
			Language:  language.DefaultLanguage(),
		})
		var adv fixed.Int26_6
		for _, g := range out.Glyphs {
			adv += g.XAdvance
		}
		widths[code] = int(math.Round(float64(adv) / 64.0))
	}
	return widths, nil
}

func toGlyphSpace(v fixed.Int26_6, upem sfnt.Units) float64 {
	return math.Round(float64(v) * 1000.0 / (64.0 * float64(upem)))
}
