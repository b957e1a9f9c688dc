// Package writer serializes a semantic document into PDF file bytes.
package writer

import (
	"context"
	"errors"
	"io"

	"github.com/wudi/medreport/ir/semantic"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

// ErrNoPages is returned when a document without pages is written.
var ErrNoPages = errors.New("writer: document has no pages")

// Config controls serialization.
type Config struct {
	Version PDFVersion
	// Compression is the Flate level applied to content and font streams;
	// zero leaves streams uncompressed.
	Compression int
	// Deterministic derives the file identifier from the document instead
	// of random bytes, so identical input yields identical output.
	Deterministic bool
}

// Writer writes a complete PDF file for doc to w.
type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer, cfg Config) error
}

// New returns the default Writer.
func New() Writer { return &impl{} }
