package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/wudi/medreport/fonts"
	"github.com/wudi/medreport/ir/raw"
	"github.com/wudi/medreport/ir/semantic"
)

type impl struct{}

// objectTable allocates object numbers and collects the file body.
type objectTable struct {
	next    int
	objects map[raw.ObjectRef]raw.Object
}

func newObjectTable() *objectTable {
	return &objectTable{next: 1, objects: make(map[raw.ObjectRef]raw.Object)}
}

func (t *objectTable) NextRef() raw.ObjectRef {
	ref := raw.ObjectRef{Num: t.next}
	t.next++
	return ref
}

func (t *objectTable) Add(ref raw.ObjectRef, obj raw.Object) { t.objects[ref] = obj }

func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || len(doc.Pages) == 0 {
		return ErrNoPages
	}

	table := newObjectTable()
	catalogRef := table.NextRef()
	pagesRef := table.NextRef()

	// Fonts are shared: one object set per distinct font across all pages.
	fontRefs := make(map[*fonts.Font]raw.ObjectRef)
	pageRefs := make([]raw.ObjectRef, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		fontRes := raw.Dict()
		if p.Resources != nil {
			for _, name := range sortedFontNames(p.Resources.Fonts) {
				f := p.Resources.Fonts[name]
				ref, ok := fontRefs[f]
				if !ok {
					var err error
					if ref, err = writeFont(table, f, cfg); err != nil {
						return fmt.Errorf("writer: font %s: %w", f.BaseFont, err)
					}
					fontRefs[f] = ref
				}
				fontRes.Set(name, raw.Ref(ref))
			}
		}

		contentRef := table.NextRef()
		stream, err := newStream(serializeContentStreams(p.Contents), cfg)
		if err != nil {
			return fmt.Errorf("writer: page %d content: %w", p.Index, err)
		}
		table.Add(contentRef, stream)

		resDict := raw.Dict()
		resDict.Set("Font", fontRes)
		resDict.Set("ProcSet", raw.NewArray(raw.NameLiteral("PDF"), raw.NameLiteral("Text")))

		pageRef := table.NextRef()
		pageDict := raw.Dict()
		pageDict.Set("Type", raw.NameLiteral("Page"))
		pageDict.Set("Parent", raw.Ref(pagesRef))
		pageDict.Set("MediaBox", rectArray(p.MediaBox))
		pageDict.Set("Resources", resDict)
		pageDict.Set("Contents", raw.Ref(contentRef))
		table.Add(pageRef, pageDict)
		pageRefs = append(pageRefs, pageRef)
	}

	kids := raw.NewArray()
	for _, r := range pageRefs {
		kids.Append(raw.Ref(r))
	}
	pagesDict := raw.Dict()
	pagesDict.Set("Type", raw.NameLiteral("Pages"))
	pagesDict.Set("Count", raw.NumberInt(int64(len(pageRefs))))
	pagesDict.Set("Kids", kids)
	table.Add(pagesRef, pagesDict)

	catalogDict := raw.Dict()
	catalogDict.Set("Type", raw.NameLiteral("Catalog"))
	catalogDict.Set("Pages", raw.Ref(pagesRef))
	table.Add(catalogRef, catalogDict)

	var infoRef *raw.ObjectRef
	if doc.Info != nil {
		ref := table.NextRef()
		table.Add(ref, infoDict(doc.Info))
		infoRef = &ref
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", pdfVersion(cfg))
	ordered := make([]raw.ObjectRef, 0, len(table.objects))
	for ref := range table.objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })
	offsets := make(map[int]int64, len(ordered))
	for _, ref := range ordered {
		offsets[ref.Num] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
		buf.Write(serializePrimitive(table.objects[ref]))
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := buf.Len()
	size := ordered[len(ordered)-1].Num + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	trailer := buildTrailer(size, catalogRef, infoRef, fileID(doc, cfg))
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

// writeFont adds the objects of a simple WinAnsi font and returns the
// reference of its font dictionary.
func writeFont(table *objectTable, f *fonts.Font, cfg Config) (raw.ObjectRef, error) {
	fontDict := raw.Dict()
	fontDict.Set("Type", raw.NameLiteral("Font"))
	fontDict.Set("Subtype", raw.NameLiteral(f.Subtype))
	fontDict.Set("BaseFont", raw.NameLiteral(pdfNameLiteral(f.BaseFont)))
	fontDict.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))

	if f.Embedded() {
		d := f.Descriptor
		fileRef := table.NextRef()
		file, err := newStream(d.FontFile, cfg)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		file.Dict.Set("Length1", raw.NumberInt(int64(len(d.FontFile))))
		table.Add(fileRef, file)

		descRef := table.NextRef()
		desc := raw.Dict()
		desc.Set("Type", raw.NameLiteral("FontDescriptor"))
		desc.Set("FontName", raw.NameLiteral(pdfNameLiteral(d.FontName)))
		desc.Set("Flags", raw.NumberInt(int64(d.Flags)))
		desc.Set("FontBBox", raw.NewArray(
			raw.NumberFloat(d.FontBBox[0]),
			raw.NumberFloat(d.FontBBox[1]),
			raw.NumberFloat(d.FontBBox[2]),
			raw.NumberFloat(d.FontBBox[3]),
		))
		desc.Set("ItalicAngle", raw.NumberFloat(d.ItalicAngle))
		desc.Set("Ascent", raw.NumberFloat(d.Ascent))
		desc.Set("Descent", raw.NumberFloat(d.Descent))
		desc.Set("CapHeight", raw.NumberFloat(d.CapHeight))
		desc.Set("StemV", raw.NumberFloat(d.StemV))
		desc.Set("FontFile2", raw.Ref(fileRef))
		table.Add(descRef, desc)

		first, last, widths := encodeWidths(f.Widths)
		fontDict.Set("FirstChar", raw.NumberInt(int64(first)))
		fontDict.Set("LastChar", raw.NumberInt(int64(last)))
		fontDict.Set("Widths", widths)
		fontDict.Set("FontDescriptor", raw.Ref(descRef))
	}

	ref := table.NextRef()
	table.Add(ref, fontDict)
	return ref, nil
}

func sortedFontNames(m map[string]*fonts.Font) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
