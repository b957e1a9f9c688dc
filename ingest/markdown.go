package ingest

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func markdownLines(source string) []string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	w := &lineWriter{}
	walkMarkdownBlocks(w, doc, src, "")
	return w.result()
}

func walkMarkdownBlocks(w *lineWriter, node ast.Node, src []byte, prefix string) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if child != node.FirstChild() && child.HasBlankPreviousLines() {
			w.blank()
		}
		switch n := child.(type) {
		case *ast.Heading:
			w.flush()
			w.write(prefix)
			w.write(cases.Upper(language.Und).String(inlineText(n, src)))
			w.flush()
		case *ast.Paragraph, *ast.TextBlock:
			writeInlines(w, n, src, prefix)
		case *ast.List:
			writeList(w, n, src, prefix)
		case *ast.Blockquote:
			walkMarkdownBlocks(w, n, src, prefix)
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			w.flush()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.verbatim(prefix + strings.TrimRight(string(seg.Value(src)), "\n"))
			}
		case *ast.ThematicBreak:
			w.blank()
		default:
			walkMarkdownBlocks(w, n, src, prefix)
		}
	}
}

func writeList(w *lineWriter, list *ast.List, src []byte, prefix string) {
	num := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		w.flush()
		marker := "- "
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d%c ", num, list.Marker)
			num++
		}
		w.write(prefix + marker)
		walkMarkdownBlocks(w, item, src, prefix+strings.Repeat(" ", len(marker)))
		w.flush()
	}
}

// writeInlines writes the text of a paragraph, breaking lines where the
// source had soft or hard line breaks.
func writeInlines(w *lineWriter, block ast.Node, src []byte, prefix string) {
	if w.cur.Len() == 0 {
		w.write(prefix)
	}
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			w.write(string(t.Segment.Value(src)))
			if t.SoftLineBreak() || t.HardLineBreak() {
				w.flush()
				w.write(prefix)
			}
		case *ast.String:
			w.write(string(t.Value))
		case *ast.AutoLink:
			w.write(string(t.URL(src)))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	w.flush()
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
