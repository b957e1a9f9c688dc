// Package ingest turns report text into the lines the layout engine places.
//
// All formats share one newline policy: CRLF and lone CR become LF, and a
// single terminating newline does not produce an extra empty line. Markdown
// and HTML input is flattened to plain lines first; headings are upper-cased
// so they read as section headers.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Format names an input format.
type Format string

const (
	Plain    Format = "plain"
	Markdown Format = "markdown"
	HTML     Format = "html"
	// Auto picks one of the other formats with Detect.
	Auto Format = "auto"
)

// ErrInvalidUTF8 is returned for text that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("ingest: text is not valid UTF-8")

// ParseFormat parses a format name. The empty string means Plain.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Plain, nil
	case Plain, Markdown, HTML, Auto:
		return f, nil
	}
	return "", fmt.Errorf("ingest: unknown format %q", s)
}

// Normalize converts CRLF and lone CR line endings to LF.
func Normalize(text string) string {
	if !strings.ContainsRune(text, '\r') {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// SplitLines normalizes line endings and splits text into lines. One
// trailing newline is a terminator, not an empty last line. Empty text
// yields a single empty line.
func SplitLines(text string) []string {
	text = Normalize(text)
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// Lines validates text and flattens it to lines according to format.
func Lines(text string, format Format) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}
	if format == Auto {
		format = Detect(text)
	}
	switch format {
	case "", Plain:
		return SplitLines(text), nil
	case Markdown:
		return markdownLines(Normalize(text)), nil
	case HTML:
		return htmlLines(Normalize(text))
	}
	return nil, fmt.Errorf("ingest: unknown format %q", format)
}

var (
	htmlTag      = regexp.MustCompile(`(?i)</?(html|body|p|div|br|h[1-6]|ul|ol|li|pre|table|section)\b`)
	markdownMark = regexp.MustCompile("(?m)^(#{1,6} |[-*+] |\\d+\\. |```|> )|\\*\\*[^*]+\\*\\*")
)

// Detect guesses the format of text: HTML when it contains block-level
// tags, Markdown when it has headings, lists, fences or strong emphasis,
// Plain otherwise.
func Detect(text string) Format {
	if htmlTag.MatchString(text) {
		return HTML
	}
	if markdownMark.MatchString(text) {
		return Markdown
	}
	return Plain
}

// lineWriter accumulates flattened lines, collapsing runs of blank lines.
type lineWriter struct {
	lines []string
	cur   strings.Builder
}

func (w *lineWriter) write(s string) { w.cur.WriteString(s) }

// flush ends the current line if it has content.
func (w *lineWriter) flush() {
	line := strings.TrimRight(w.cur.String(), " \t")
	w.cur.Reset()
	if strings.TrimSpace(line) == "" {
		return
	}
	w.lines = append(w.lines, line)
}

// verbatim ends the current line and appends line as is, keeping empty
// lines from preformatted blocks.
func (w *lineWriter) verbatim(line string) {
	w.flush()
	w.lines = append(w.lines, strings.TrimRight(line, " \t"))
}

// blank ends the current line and adds one separating empty line.
func (w *lineWriter) blank() {
	w.flush()
	if n := len(w.lines); n > 0 && w.lines[n-1] != "" {
		w.lines = append(w.lines, "")
	}
}

func (w *lineWriter) result() []string {
	w.flush()
	for len(w.lines) > 0 && w.lines[len(w.lines)-1] == "" {
		w.lines = w.lines[:len(w.lines)-1]
	}
	if len(w.lines) == 0 {
		return []string{""}
	}
	return w.lines
}
