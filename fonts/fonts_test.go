package fonts

import (
	"errors"
	"math"
	"testing"
)

func TestStandardSet(t *testing.T) {
	set, err := Load(Standard)
	if err != nil {
		t.Fatalf("load standard: %v", err)
	}
	tests := []struct {
		name     string
		font     *Font
		baseFont string
	}{
		{"bold", set.Bold, "Helvetica-Bold"},
		{"regular", set.Regular, "Helvetica"},
		{"mono", set.Mono, "Courier"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.font.BaseFont != tc.baseFont {
				t.Fatalf("base font = %s, want %s", tc.font.BaseFont, tc.baseFont)
			}
			if tc.font.Embedded() {
				t.Fatalf("standard face must not be embedded")
			}
			if set.Lookup(tc.name) != tc.font {
				t.Fatalf("lookup(%s) returned a different font", tc.name)
			}
		})
	}
	if set.Lookup("italic") != nil {
		t.Fatalf("unknown face should not resolve")
	}
}

func TestMeasure(t *testing.T) {
	set, _ := Load(Standard)
	// H=722 i=222 at 10pt.
	if got := set.Regular.Measure("Hi", 10); math.Abs(got-9.44) > 1e-9 {
		t.Fatalf("Helvetica width = %f, want 9.44", got)
	}
	if got := set.Mono.Measure("LAD: 50%", 9); math.Abs(got-8*0.6*9) > 1e-9 {
		t.Fatalf("Courier width = %f, want %f", got, 8*0.6*9)
	}
	var nilFont *Font
	if nilFont.Measure("x", 12) != 0 {
		t.Fatalf("nil font should measure zero")
	}
}

func TestEncodeWinAnsi(t *testing.T) {
	f := standardSet().Regular
	got := f.Encode("Café – 50%→")
	want := []byte{'C', 'a', 'f', 0xE9, ' ', 0x96, ' ', '5', '0', '%', '?'}
	if string(got) != string(want) {
		t.Fatalf("encode = %v, want %v", got, want)
	}
}

func TestLoadUnknownFlavour(t *testing.T) {
	if _, err := Load("gothic"); !errors.Is(err, ErrUnknownFlavour) {
		t.Fatalf("expected ErrUnknownFlavour, got %v", err)
	}
}

func TestParseFlavour(t *testing.T) {
	for in, want := range map[string]Flavour{"": Standard, "Standard": Standard, " EMBEDDED ": Embedded, "embedded": Embedded} {
		if got, err := ParseFlavour(in); err != nil || got != want {
			t.Fatalf("ParseFlavour(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFlavour("gothic"); !errors.Is(err, ErrUnknownFlavour) {
		t.Fatalf("expected ErrUnknownFlavour, got %v", err)
	}
}

func TestEmbeddedSet(t *testing.T) {
	set, err := Load(Embedded)
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	for _, name := range set.Names() {
		f := set.Lookup(name)
		if !f.Embedded() {
			t.Fatalf("%s: expected embedded program", name)
		}
		if f.Subtype != "TrueType" {
			t.Fatalf("%s: subtype = %s", name, f.Subtype)
		}
		if f.Widths['A'] <= 0 {
			t.Fatalf("%s: missing width for 'A'", name)
		}
		if f.Descriptor.Ascent <= 0 || f.Descriptor.Descent >= 0 {
			t.Fatalf("%s: unexpected vertical metrics %+v", name, f.Descriptor)
		}
	}
	if set.Mono.Widths['i'] != set.Mono.Widths['W'] {
		t.Fatalf("mono widths differ: i=%d W=%d", set.Mono.Widths['i'], set.Mono.Widths['W'])
	}
	if set.Mono.Descriptor.Flags&flagFixedPitch == 0 {
		t.Fatalf("mono descriptor must carry the fixed-pitch flag")
	}

	again, _ := Load(Embedded)
	if again.Bold != set.Bold {
		t.Fatalf("embedded faces should be parsed once and shared")
	}
}
