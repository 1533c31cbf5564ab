package reader

import (
	"github.com/texfront/texfront/document"
	"github.com/texfront/texfront/texerr"
)

// resolvePointers walks the finished document and settles every Pointer
// inline's Label against meta's label table.
// It runs as a post-pass rather than inline during readBlocks because a
// forward reference (\ref to a label defined later in the document) is
// routine in LaTeX sources and must still resolve.
func resolvePointers(doc *document.Document, meta S) {
	doc.Title = resolveInlines(doc.Title, meta)
	doc.Subtitle = resolveInlines(doc.Subtitle, meta)
	for i := range doc.Authors {
		doc.Authors[i] = resolveInlines(doc.Authors[i], meta)
	}
	doc.Date = resolveInlines(doc.Date, meta)
	resolveBlocks(doc.Blocks, meta)
}

func resolveBlocks(blocks []document.Block, meta S) {
	for i := range blocks {
		b := &blocks[i]
		b.Inlines = resolveInlines(b.Inlines, meta)
		b.Caption = resolveInlines(b.Caption, meta)
		for _, item := range b.Items {
			resolveBlocks(item, meta)
		}
		for r := range b.Rows {
			for c := range b.Rows[r].Cells {
				b.Rows[r].Cells[c].Content = resolveInlines(b.Rows[r].Cells[c].Content, meta)
			}
		}
	}
}

// resolveInlines resolves Pointer inlines in place and recurses into every
// nested inline list (font-style children, math bodies, scripts, footnote
// bodies, citation pre/postnotes).
func resolveInlines(inlines []document.Inline, meta S) []document.Inline {
	for i := range inlines {
		in := &inlines[i]
		switch in.Kind {
		case document.PointerKind:
			if in.External == nil && in.Label != "" {
				if a, ok := meta.ResolveLabel(in.Label); ok {
					resolved := a
					in.Resolved = &resolved
				} else {
					meta.Warn.Warnf(texerr.Pos{}, "reader", "unresolved reference to label %q", in.Label)
				}
			}
		case document.FontStyleKind:
			in.Children = resolveInlines(in.Children, meta)
		case document.MathKind:
			in.MathBody = resolveInlines(in.MathBody, meta)
		case document.SupScriptKind, document.SubScriptKind:
			in.Script = resolveInlines(in.Script, meta)
		case document.NoteKind:
			resolveBlocks(in.NoteBody, meta)
		case document.CitationKind:
			in.Cite.Prenote = resolveInlines(in.Cite.Prenote, meta)
			in.Cite.Postnote = resolveInlines(in.Cite.Postnote, meta)
			for s := range in.Cite.Singles {
				in.Cite.Singles[s].Prenote = resolveInlines(in.Cite.Singles[s].Prenote, meta)
				in.Cite.Singles[s].Postnote = resolveInlines(in.Cite.Singles[s].Postnote, meta)
			}
		}
	}
	return inlines
}

// buildBibList assembles the bibliography block from the citation
// occurrence map. A key absent from the bound
// bibtex.Database still gets a list entry — its formatted text falls back
// to the bare key — rather than silently dropping the citation.
func buildBibList(meta S) document.Block {
	entries := make([]document.BibEntry, 0, len(meta.CitationKeys))
	for _, key := range meta.CitationKeys {
		order := meta.CitationOrder[key]
		anchor := document.BibAnchor(order)
		text := key
		if e, ok := meta.Bib.Lookup(key); ok {
			text = e.Formatted
			if text == "" {
				text = e.AuthorYear()
			}
		} else {
			meta.Warn.Warnf(texerr.Pos{}, "reader", "undefined citation key %q", key)
		}
		entries = append(entries, document.BibEntry{Anchor: anchor, Key: key, Text: text})
	}
	return document.Block{Kind: document.BibListKind, BibEntries: entries}
}
