package writer

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wudi/medreport/builder"
	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/ir/semantic"
)

func buildDoc(t *testing.T, flavour fonts.Flavour, pages int) *semantic.Document {
	t.Helper()
	set, err := fonts.Load(flavour)
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	b := builder.NewBuilder()
	for _, name := range set.Names() {
		b.RegisterFont(name, set.Lookup(name))
	}
	b.SetInfo(&semantic.DocumentInfo{
		Title:        "Radiology Report",
		Creator:      "medreport",
		CreationDate: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
	})
	for i := 0; i < pages; i++ {
		b.NewPage(595, 842).
			DrawText("DEPARTMENT OF RADIOLOGY (CT)", 50, 792, builder.TextOptions{Font: fonts.Bold, FontSize: 12}).
			DrawText("LAD: 50% stenosis", 50, 776, builder.TextOptions{Font: fonts.Mono, FontSize: 9}).
			DrawText("Generated: 16/10/2026", 50, 30, builder.TextOptions{Font: fonts.Regular, FontSize: 8, Color: builder.Gray(0.5)})
	}
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func write(t *testing.T, doc *semantic.Document, cfg Config) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := New().Write(context.Background(), doc, &buf, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

var objHeader = regexp.MustCompile(`(?m)^(\d+) 0 obj$`)

// checkXRef verifies that every in-use xref entry points at its object header.
func checkXRef(t *testing.T, data []byte) {
	t.Helper()
	s := string(data)
	idx := strings.LastIndex(s, "startxref\n")
	if idx < 0 {
		t.Fatalf("missing startxref")
	}
	rest := strings.SplitN(s[idx+len("startxref\n"):], "\n", 2)
	xrefOff, err := strconv.Atoi(rest[0])
	if err != nil {
		t.Fatalf("bad startxref value %q", rest[0])
	}
	if !strings.HasPrefix(s[xrefOff:], "xref\n") {
		t.Fatalf("startxref does not point at xref table")
	}
	lines := strings.Split(s[xrefOff:], "\n")
	size, err := subsectionSize(lines[1])
	if err != nil {
		t.Fatalf("bad subsection header %q", lines[1])
	}
	for num := 1; num < size; num++ {
		entry := lines[2+num]
		if !strings.HasSuffix(entry, " n ") {
			continue
		}
		off, _ := strconv.Atoi(entry[:10])
		m := objHeader.FindStringSubmatch(s[off : off+20])
		if m == nil || m[1] != strconv.Itoa(num) {
			t.Fatalf("xref entry %d points at %q", num, s[off:off+12])
		}
	}
}

func subsectionSize(line string) (int, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return 0, errors.New("malformed subsection header")
	}
	return strconv.Atoi(parts[1])
}

func TestWrite_StandardFonts(t *testing.T) {
	data := write(t, buildDoc(t, fonts.Standard, 1), Config{Deterministic: true})
	s := string(data)
	if !strings.HasPrefix(s, "%PDF-1.7\n") {
		t.Fatalf("missing header: %q", s[:12])
	}
	if !strings.HasSuffix(s, "%%EOF\n") {
		t.Fatalf("missing EOF marker")
	}
	for _, want := range []string{
		"/Type /Catalog",
		"/Count 1",
		"/MediaBox [0 0 595 842]",
		"/BaseFont /Helvetica-Bold",
		"/BaseFont /Helvetica",
		"/BaseFont /Courier",
		"/Encoding /WinAnsiEncoding",
		"(DEPARTMENT OF RADIOLOGY \\(CT\\)) Tj",
		"0.5 0.5 0.5 rg",
		"/Title (Radiology Report)",
		"/CreationDate (D:20261016093000Z)",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(s, "/FontFile2") {
		t.Errorf("standard fonts must not be embedded")
	}
	checkXRef(t, data)
}

func TestWrite_SharesFontsAcrossPages(t *testing.T) {
	data := write(t, buildDoc(t, fonts.Standard, 3), Config{Deterministic: true})
	s := string(data)
	if got := strings.Count(s, "/Type /Font"); got != 3 {
		t.Fatalf("expected 3 font objects for 3 pages, got %d", got)
	}
	if !strings.Contains(s, "/Count 3") {
		t.Fatalf("page tree should count 3 pages")
	}
	checkXRef(t, data)
}

func TestWrite_EmbeddedFonts(t *testing.T) {
	data := write(t, buildDoc(t, fonts.Embedded, 1), Config{Deterministic: true, Compression: zlib.BestSpeed})
	s := string(data)
	for _, want := range []string{"/Subtype /TrueType", "/FontFile2", "/FirstChar 32", "/LastChar 255", "/Filter /FlateDecode", "/Length1 "} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q", want)
		}
	}
	checkXRef(t, data)
}

func TestWrite_CompressedContentInflates(t *testing.T) {
	data := write(t, buildDoc(t, fonts.Standard, 1), Config{Compression: zlib.DefaultCompression})
	s := string(data)
	start := strings.Index(s, "stream\n")
	end := strings.Index(s, "\nendstream")
	if start < 0 || end < 0 {
		t.Fatalf("no stream found")
	}
	r, err := zlib.NewReader(strings.NewReader(s[start+len("stream\n") : end]))
	if err != nil {
		t.Fatalf("content stream is not zlib framed: %v", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if !bytes.Contains(plain, []byte("(LAD: 50% stenosis) Tj")) {
		t.Fatalf("inflated content missing text run: %q", plain)
	}
}

func TestWrite_Deterministic(t *testing.T) {
	a := write(t, buildDoc(t, fonts.Standard, 2), Config{Deterministic: true})
	b := write(t, buildDoc(t, fonts.Standard, 2), Config{Deterministic: true})
	if !bytes.Equal(a, b) {
		t.Fatalf("deterministic output differs between runs")
	}
}

func TestWrite_Errors(t *testing.T) {
	if err := New().Write(context.Background(), &semantic.Document{}, io.Discard, Config{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Write(ctx, buildDoc(t, fonts.Standard, 1), io.Discard, Config{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTextString(t *testing.T) {
	if got := textString("Report"); got.IsHex() || string(got.Value()) != "Report" {
		t.Fatalf("ascii text string = %+v", got)
	}
	got := textString("Café")
	if !got.IsHex() || !bytes.Equal(got.Value(), []byte{0xFE, 0xFF, 0, 'C', 0, 'a', 0, 'f', 0, 0xE9}) {
		t.Fatalf("utf16 text string = %x", got.Value())
	}
}
