// Package semantic holds the in-memory form of a generated document: pages,
// their font resources and the content-stream operations drawn on them.
package semantic

import (
	"time"

	"github.com/wudi/medreport/fonts"
)

// Document is the semantic representation of a PDF.
type Document struct {
	Pages []*Page
	Info  *DocumentInfo
}

// DocumentInfo is written to the trailer's Info dictionary.
type DocumentInfo struct {
	Title        string
	Author       string
	Subject      string
	Creator      string
	Producer     string
	CreationDate time.Time
}

// Rectangle is a box in default user space.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Page is a single drawable page.
type Page struct {
	Index     int
	MediaBox  Rectangle
	Resources *Resources
	Contents  []ContentStream
}

// Resources maps resource names to page resources.
type Resources struct {
	Fonts map[string]*fonts.Font
}

// ContentStream is an ordered list of content operations.
type ContentStream struct {
	Operations []Operation
}

// Operation is one content-stream operator with its operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

type StringOperand struct{ Value []byte }

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }
