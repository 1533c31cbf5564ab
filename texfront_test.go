package texfront_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	texfront "github.com/texfront/texfront"
	"github.com/texfront/texfront/bibtex"
	"github.com/texfront/texfront/config"
	"github.com/texfront/texfront/document"
)

func convert(t *testing.T, src string, bib bibtex.Database) *texfront.Result {
	t.Helper()
	res, err := texfront.Convert("<test>", src, config.Default(), bib)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	return res
}

func firstHeader(t *testing.T, doc *document.Document) document.Block {
	t.Helper()
	for _, b := range doc.Blocks {
		if b.Kind == document.HeaderKind {
			return b
		}
	}
	t.Fatalf("no header block found")
	return document.Block{}
}

func TestSectionLabelRef(t *testing.T) {
	res := convert(t, `\section{Intro}\label{sec:intro}See \ref{sec:intro}.`, nil)
	doc := res.Document

	h := firstHeader(t, doc)
	if got := h.Anchor.ID(); got != "sec-1" {
		t.Fatalf("section anchor = %q, want %q", got, "sec-1")
	}

	var para document.Block
	found := false
	for _, b := range doc.Blocks {
		if b.Kind == document.ParagraphKind {
			para = b
			found = true
		}
	}
	if !found {
		t.Fatalf("no paragraph block found")
	}

	var ptr *document.Inline
	for i := range para.Inlines {
		if para.Inlines[i].Kind == document.PointerKind {
			ptr = &para.Inlines[i]
		}
	}
	if ptr == nil {
		t.Fatalf("no pointer inline found in paragraph")
	}
	if ptr.Resolved == nil {
		t.Fatalf("\\ref did not resolve")
	}
	if got := ptr.Resolved.ID(); got != "sec-1" {
		t.Fatalf("resolved anchor = %q, want %q", got, "sec-1")
	}
}

func TestChapterFigureLabelRef(t *testing.T) {
	res := convert(t, `\chapter{One}
\begin{figure}
\includegraphics{plot.png}
\caption{A plot}
\label{fig:plot}
\end{figure}
See figure \ref{fig:plot}.`, nil)
	doc := res.Document

	var fig *document.Block
	for i := range doc.Blocks {
		if doc.Blocks[i].Kind == document.FigureKind {
			fig = &doc.Blocks[i]
		}
	}
	if fig == nil {
		t.Fatalf("no figure block found")
	}
	if got := fig.Anchor.ID(); got != "figure-1-1" {
		t.Fatalf("figure anchor = %q, want %q", got, "figure-1-1")
	}

	found := false
	for _, b := range doc.Blocks {
		if b.Kind != document.ParagraphKind {
			continue
		}
		for _, in := range b.Inlines {
			if in.Kind == document.PointerKind && in.Resolved != nil && in.Resolved.ID() == "figure-1-1" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("\\ref{fig:plot} did not resolve to the figure anchor")
	}
}

func TestItemizeThreeItems(t *testing.T) {
	res := convert(t, `\begin{itemize}
\item one
\item two
\item three
\end{itemize}`, nil)
	doc := res.Document

	var list *document.Block
	for i := range doc.Blocks {
		if doc.Blocks[i].Kind == document.ListKind {
			list = &doc.Blocks[i]
		}
	}
	if list == nil {
		t.Fatalf("no list block found")
	}
	if len(list.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(list.Items))
	}
	if list.ListType != document.Unordered {
		t.Fatalf("list type = %v, want Unordered", list.ListType)
	}
}

func TestNestedFontStyleToggling(t *testing.T) {
	res := convert(t, `{\em one \rm two}`, nil)
	doc := res.Document

	var para *document.Block
	for i := range doc.Blocks {
		if doc.Blocks[i].Kind == document.ParagraphKind {
			para = &doc.Blocks[i]
		}
	}
	if para == nil {
		t.Fatalf("no paragraph block found")
	}
	if len(para.Inlines) == 0 || para.Inlines[0].Kind != document.FontStyleKind {
		t.Fatalf("expected leading FontStyle inline, got %#v", para.Inlines)
	}
	if para.Inlines[0].Style != document.Emph {
		t.Fatalf("outer style = %v, want Emph", para.Inlines[0].Style)
	}

	var innerSwitch *document.Inline
	for i := range para.Inlines[0].Children {
		if para.Inlines[0].Children[i].Kind == document.FontStyleKind {
			innerSwitch = &para.Inlines[0].Children[i]
		}
	}
	if innerSwitch == nil {
		t.Fatalf("expected a nested \\rm switch, got %#v", para.Inlines[0].Children)
	}
	if innerSwitch.Style != document.Normal {
		t.Fatalf("\\rm switch style = %v, want Normal", innerSwitch.Style)
	}
}

func TestCitationAndBibList(t *testing.T) {
	bib := bibtex.MapDatabase{
		"smith20": {Key: "smith20", Authors: []string{"Smith"}, Year: "2020", Formatted: "Smith, J. (2020)."},
	}
	res := convert(t, `As shown in \cite{smith20}.`, bib)
	doc := res.Document

	var cited bool
	for _, b := range doc.Blocks {
		if b.Kind != document.ParagraphKind {
			continue
		}
		for _, in := range b.Inlines {
			if in.Kind == document.CitationKind && len(in.Cite.Singles) == 1 && in.Cite.Singles[0].Key == "smith20" {
				cited = true
			}
		}
	}
	require.True(t, cited, "citation inline not found")

	var bibList *document.Block
	for i := range doc.Blocks {
		if doc.Blocks[i].Kind == document.BibListKind {
			bibList = &doc.Blocks[i]
		}
	}
	require.NotNil(t, bibList, "no bibliography list block emitted")
	require.Len(t, bibList.BibEntries, 1)
	require.Equal(t, "smith20", bibList.BibEntries[0].Key)
	require.Equal(t, "Smith, J. (2020).", bibList.BibEntries[0].Text)
}

func TestUndefinedCitationWarns(t *testing.T) {
	res := convert(t, `\cite{ghost}`, nil)
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a warning for an undefined citation key")
	}
}

func TestEmptyInput(t *testing.T) {
	res := convert(t, "", nil)
	if len(res.Document.Blocks) != 0 {
		t.Fatalf("expected no blocks for empty input, got %d", len(res.Document.Blocks))
	}
}

func TestCommentOnlyInput(t *testing.T) {
	res := convert(t, "% just a comment\n% another\n", nil)
	if len(res.Document.Blocks) != 0 {
		t.Fatalf("expected no blocks for a comment-only document, got %d", len(res.Document.Blocks))
	}
}

func TestBareParProducesNoEmptyParagraph(t *testing.T) {
	res := convert(t, `\par`, nil)
	if len(res.Document.Blocks) != 0 {
		t.Fatalf("expected a bare \\par to produce no blocks, got %d", len(res.Document.Blocks))
	}
}

func TestDoubleNewlineSplitsParagraphs(t *testing.T) {
	res := convert(t, "first\n\nsecond", nil)
	count := 0
	for _, b := range res.Document.Blocks {
		if b.Kind == document.ParagraphKind {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 paragraphs from a blank-line break, got %d", count)
	}
}

func TestLabelBeforeAnyElementBindsToDocumentAnchor(t *testing.T) {
	res := convert(t, `\label{top}Intro \ref{top}`, nil)
	var ptr *document.Inline
	for _, b := range res.Document.Blocks {
		if b.Kind != document.ParagraphKind {
			continue
		}
		for i := range b.Inlines {
			if b.Inlines[i].Kind == document.PointerKind {
				ptr = &b.Inlines[i]
			}
		}
	}
	if ptr == nil || ptr.Resolved == nil {
		t.Fatalf("expected \\ref{top} to resolve")
	}
	if ptr.Resolved.ID() != "" {
		t.Fatalf("anchor = %q, want the empty document-root anchor", ptr.Resolved.ID())
	}
}

func TestLatexMathDelimiters(t *testing.T) {
	res := convert(t, `inline \(x\) and display \[y\]`, nil)
	var maths []document.Inline
	for _, b := range res.Document.Blocks {
		if b.Kind != document.ParagraphKind {
			continue
		}
		for _, in := range b.Inlines {
			if in.Kind == document.MathKind {
				maths = append(maths, in)
			}
		}
	}
	if len(maths) != 2 {
		t.Fatalf("got %d math inlines, want 2", len(maths))
	}
	if maths[0].Math != document.InlineMath {
		t.Errorf("first math = %v, want InlineMath", maths[0].Math)
	}
	if maths[1].Math != document.DisplayMath {
		t.Errorf("second math = %v, want DisplayMath", maths[1].Math)
	}
}

func TestDiacriticResolution(t *testing.T) {
	res := convert(t, `caf\'{e}`, nil)
	var text string
	for _, b := range res.Document.Blocks {
		if b.Kind != document.ParagraphKind {
			continue
		}
		for _, in := range b.Inlines {
			if in.Kind == document.StrKind {
				text += in.Text
			}
		}
	}
	if text != "cafe\u0301" {
		t.Fatalf("text = %q, want cafe with a combining acute", text)
	}
}

func TestNestedFootnoteFlattening(t *testing.T) {
	res := convert(t, `outer\footnote{inner\footnote{deep note}}`, nil)
	var notes int
	for _, b := range res.Document.Blocks {
		if b.Kind != document.ParagraphKind {
			continue
		}
		for _, in := range b.Inlines {
			if in.Kind == document.NoteKind {
				notes++
			}
		}
	}
	if notes != 1 {
		t.Fatalf("expected exactly one top-level footnote occurrence, got %d", notes)
	}
	if len(res.Document.Meta.Notes) != 2 {
		t.Fatalf("expected the nested footnote to register its own counter entry, got %d notes", len(res.Document.Meta.Notes))
	}
}
