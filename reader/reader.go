// Package reader implements the document reader: the large grammar,
// built on the walker, that recognises sectioning, inlines, lists,
// figures, tables, footnotes, citations, and cross-references,
// maintaining the counters and label/anchor/citation/media tables as it
// goes. It is the top of the pipeline: tokens -> atoms -> normalised
// atoms -> this package's semantic document.
package reader

import (
	"strconv"
	"strings"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/document"
)

// S is the walker state type every reader parser threads: one owned meta
// record per conversion, never a process-wide singleton.
type S = *document.Meta

// Read runs the full grammar over a filtered atom tree (the output of
// filter.NormaliseTree + Tables.ResolveTree) and produces the semantic
// document plus its meta state.
func Read(atoms []atom.Atom, meta *document.Meta) (*document.Document, error) {
	doc := &document.Document{Meta: meta}
	blocks, err := readBlocks(atoms, meta, nil, doc)
	if err != nil {
		return nil, err
	}
	if len(meta.CitationKeys) > 0 {
		blocks = append(blocks, buildBibList(meta))
	}
	doc.Blocks = blocks
	resolvePointers(doc, meta)
	return doc, nil
}

// These sets classify a builtin-environment Group name by the kind of
// block it produces.
var listGroups = map[string]bool{"itemize": true, "enumerate": true, "description": true}
var figureGroups = map[string]bool{"figure": true, "figure*": true}
var tableGroups = map[string]bool{"table": true, "table*": true}
var tabularGroups = map[string]bool{"tabular": true, "tabular*": true, "array": true}
var quoteGroups = map[string]bool{"quotation": true, "quote": true, "verse": true}
var transparentGroups = map[string]bool{
	"document": true, "center": true, "flushleft": true, "flushright": true,
	"abstract": true, "titlepage": true, "verbatim": true,
}

// sectionLevel maps a sectioning command name to its level (1-7).
var sectionLevel = map[string]int{
	"part": 1, "chapter": 2, "section": 3, "subsection": 4,
	"subsubsection": 5, "paragraph": 6, "subparagraph": 7,
}

// readBlocks folds a run of atoms at one structural level into blocks.
// path carries the ancestor \item path (outermost-first) so
// nested lists can number their anchors correctly; doc receives
// \title/\author/\date as a side effect, not as body blocks.
func readBlocks(atoms []atom.Atom, meta S, path []int, doc *document.Document) ([]document.Block, error) {
	var blocks []document.Block
	var para []atom.Atom

	flush := func() {
		if !hasContent(para) {
			para = nil
			return
		}
		inlines := readInlines(para, meta, document.Normal)
		para = nil
		if len(inlines) == 0 {
			return
		}
		blocks = append(blocks, document.Block{Kind: document.ParagraphKind, Inlines: inlines})
	}

	for _, a := range atoms {
		switch a.Kind {
		case atom.Par:
			flush()

		case atom.Command:
			if level, ok := sectionLevel[a.Name]; ok {
				flush()
				blocks = append(blocks, buildHeader(a, level, meta))
				continue
			}
			switch a.Name {
			case "frontmatter":
				flush()
				meta.Region = document.Front
				continue
			case "mainmatter":
				flush()
				meta.Region = document.Main
				continue
			case "appendix", "backmatter":
				// \appendix and \backmatter both land in the back
				// region; appendices are back matter in this model.
				flush()
				meta.Region = document.Back
				continue
			case "title", "subtitle":
				flush()
				body := argBody(a, 0)
				if a.Name == "title" {
					doc.Title = readInlines(body, meta, document.Normal)
				} else {
					doc.Subtitle = readInlines(body, meta, document.Normal)
				}
				continue
			case "author":
				flush()
				doc.Authors = append(doc.Authors, readInlines(argBody(a, 0), meta, document.Normal))
				continue
			case "date":
				flush()
				doc.Date = readInlines(argBody(a, 0), meta, document.Normal)
				continue
			}
			para = append(para, a)

		case atom.Group:
			switch {
			case listGroups[a.Name]:
				flush()
				blocks = append(blocks, readList(a, meta, path, doc))
			case figureGroups[a.Name]:
				flush()
				if b := readFigure(a, meta); b != nil {
					blocks = append(blocks, *b)
				}
			case tableGroups[a.Name]:
				flush()
				blocks = append(blocks, readTable(a, meta))
			case tabularGroups[a.Name]:
				flush()
				blocks = append(blocks, document.Block{Kind: document.SimpleTableKind, Rows: parseRows(a.Body, meta)})
			case quoteGroups[a.Name]:
				flush()
				blocks = append(blocks, document.Block{Kind: document.QuotationBlockKind, Inlines: readInlines(a.Body, meta, document.Normal)})
			case a.Name == "thebibliography":
				flush()
				// The bibliography list is built from the
				// citation-occurrence map (see buildBibList), not
				// from \bibitem markup.
			case transparentGroups[a.Name] || a.Name == "":
				flush()
				nested, err := readBlocks(a.Body, meta, path, doc)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, nested...)
			default:
				// Unknown environment at block level: recurse into its
				// body rather than silently discarding authored content.
				para = append(para, a)
			}

		default:
			para = append(para, a)
		}
	}
	flush()
	return blocks, nil
}

func hasContent(atoms []atom.Atom) bool {
	for _, a := range atoms {
		if a.Kind != atom.White && a.Kind != atom.Newline {
			return true
		}
	}
	return false
}

func buildHeader(cmd atom.Atom, level int, meta S) document.Block {
	starred := false
	var title []atom.Atom
	for _, arg := range cmd.Args {
		switch arg.Kind {
		case atom.StarArg:
			starred = true
		case atom.ObligatoryArg:
			title = arg.Body
		}
	}
	var anchor document.Anchor
	if starred {
		anchor = meta.NextPhantom()
	} else {
		anchor = meta.IncrementSection(level)
	}
	return document.Block{
		Kind:    document.HeaderKind,
		Level:   level,
		Anchor:  anchor,
		Inlines: readInlines(title, meta, document.Normal),
	}
}

// argBody returns the body of cmd's nth argument, or nil if it has fewer.
func argBody(cmd atom.Atom, n int) []atom.Atom {
	if n >= len(cmd.Args) {
		return nil
	}
	return cmd.Args[n].Body
}

func plainTextOf(atoms []atom.Atom) string {
	var b strings.Builder
	for _, a := range atoms {
		if a.Kind == atom.Plain {
			b.WriteString(a.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
