package ingest

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{""}},
		{"single terminator", "FINDINGS\n", []string{"FINDINGS"}},
		{"two terminators keep one blank", "FINDINGS\n\n", []string{"FINDINGS", ""}},
		{"crlf", "A\r\nB\r\n", []string{"A", "B"}},
		{"lone cr", "A\rB", []string{"A", "B"}},
		{"mixed", "A\r\n\rB\n", []string{"A", "", "B"}},
		{"inner blank", "A\n\nB", []string{"A", "", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitLines(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLines_InvalidUTF8(t *testing.T) {
	for _, f := range []Format{Plain, Markdown, HTML, Auto} {
		if _, err := Lines("LAD: \xff\xfe", f); !errors.Is(err, ErrInvalidUTF8) {
			t.Fatalf("%s: expected ErrInvalidUTF8, got %v", f, err)
		}
	}
}

func TestLines_Markdown(t *testing.T) {
	src := "# Department of Radiology\n\n## Findings\n\nLAD: 50% stenosis\nRCA: **normal**\n\n- calcified plaque\n- occlusion of `OM1`\n\n1. first\n2. second\n\n```\nCAD-RADS: 3\n```\n"
	got, err := Lines(src, Markdown)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"DEPARTMENT OF RADIOLOGY",
		"",
		"FINDINGS",
		"",
		"LAD: 50% stenosis",
		"RCA: normal",
		"",
		"- calcified plaque",
		"- occlusion of OM1",
		"",
		"1. first",
		"2. second",
		"",
		"CAD-RADS: 3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("markdown lines:\n got %q\nwant %q", got, want)
	}
}

func TestLines_HTML(t *testing.T) {
	src := `<html><head><title>x</title><style>p{}</style></head><body>
<h1>Department of Radiology</h1>
<p>LAD:   50% stenosis<br>RCA: <b>normal</b></p>
<ul><li>calcified plaque</li><li>LMCA patent</li></ul>
</body></html>`
	got, err := Lines(src, HTML)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"DEPARTMENT OF RADIOLOGY",
		"",
		"LAD: 50% stenosis",
		"RCA: normal",
		"",
		"- calcified plaque",
		"- LMCA patent",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("html lines:\n got %q\nwant %q", got, want)
	}
}

func TestLines_VerbatimKeepsBlankLines(t *testing.T) {
	want := []string{"Measurements:", "", "LAD 3.1 mm", "", "RCA 2.8 mm"}
	tests := []struct {
		name   string
		format Format
		src    string
	}{
		{"fenced", Markdown, "Measurements:\n\n```\nLAD 3.1 mm\n\nRCA 2.8 mm\n```\n"},
		{"indented", Markdown, "Measurements:\n\n    LAD 3.1 mm\n\n    RCA 2.8 mm\n"},
		{"pre", HTML, "<p>Measurements:</p><pre>LAD 3.1 mm\n   \nRCA 2.8 mm</pre>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lines(tt.src, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %q\nwant %q", got, want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Format{
		"DEPARTMENT OF RADIOLOGY\nLAD: 50%":   Plain,
		"## FINDINGS\nLAD: 50%":               Markdown,
		"Impression: **CAD-RADS 3**":          Markdown,
		"<p>LAD: 50%</p>":                     HTML,
		"Stenosis < 50% and > 25% in the LAD": Plain,
	}
	for in, want := range tests {
		if got := Detect(in); got != want {
			t.Errorf("Detect(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" Markdown "); err != nil || f != Markdown {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != Plain {
		t.Fatalf("empty format = %v, %v", f, err)
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatalf("expected error")
	}
}
