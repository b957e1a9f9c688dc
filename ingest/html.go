package ingest

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func htmlLines(source string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("ingest: parse html: %w", err)
	}
	w := &lineWriter{}
	walkHTML(w, doc)
	return w.result(), nil
}

func walkHTML(w *lineWriter, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeCollapsed(w, n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Template:
			return
		case atom.Br:
			w.flush()
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.blank()
			w.write(cases.Upper(language.Und).String(strings.Join(strings.Fields(textContent(n)), " ")))
			w.flush()
			return
		case atom.Pre:
			w.blank()
			for _, line := range strings.Split(strings.Trim(textContent(n), "\n"), "\n") {
				w.verbatim(line)
			}
			w.blank()
			return
		case atom.Li:
			w.flush()
			w.write("- ")
		case atom.P, atom.Ul, atom.Ol, atom.Table, atom.Section, atom.Blockquote, atom.Hr:
			w.blank()
		case atom.Div, atom.Tr, atom.Dt, atom.Dd:
			w.flush()
		case atom.Td, atom.Th:
			if w.cur.Len() > 0 {
				w.write(" ")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(w, c)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Ul, atom.Ol, atom.Table, atom.Section, atom.Blockquote:
			w.blank()
		case atom.Li, atom.Div, atom.Tr, atom.Dt, atom.Dd:
			w.flush()
		}
	}
}

// writeCollapsed writes text with runs of whitespace collapsed to one space.
func writeCollapsed(w *lineWriter, data string) {
	fields := strings.Fields(data)
	if len(fields) == 0 {
		return
	}
	cur := w.cur.String()
	lead := strings.TrimLeft(data, " \t\n\f\r") != data
	if cur != "" && lead && !strings.HasSuffix(cur, " ") {
		w.write(" ")
	}
	w.write(strings.Join(fields, " "))
	if strings.TrimRight(data, " \t\n\f\r") != data {
		w.write(" ")
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return b.String()
}
