package reader

import (
	"testing"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/document"
	"github.com/texfront/texfront/texerr"
)

func newMeta() S {
	return document.NewMeta(nil, texerr.NewCollector(texerr.GetLogger("test")))
}

func plain(text string) atom.Atom { return atom.Atom{Kind: atom.Plain, Text: text} }

func cmd(name string, args ...atom.Arg) atom.Atom {
	return atom.Atom{Kind: atom.Command, Name: name, Args: args}
}

func oblig(body ...atom.Atom) atom.Arg {
	return atom.Arg{Kind: atom.ObligatoryArg, Body: body}
}

func TestReadFigureRequiresGraphicsAndCaption(t *testing.T) {
	meta := newMeta()
	group := atom.Atom{Kind: atom.Group, Name: "figure", Body: []atom.Atom{
		cmd("caption", oblig(plain("only a caption"))),
	}}
	if b := readFigure(group, meta); b != nil {
		t.Fatalf("expected a malformed figure (no \\includegraphics) to be dropped, got %#v", b)
	}
	if len(meta.Warn.Warnings()) != 1 {
		t.Fatalf("expected one warning for the malformed figure, got %d", len(meta.Warn.Warnings()))
	}
}

func TestReadFigureOrderIndependent(t *testing.T) {
	meta := newMeta()
	group := atom.Atom{Kind: atom.Group, Name: "figure", Body: []atom.Atom{
		cmd("label", oblig(plain("fig:a"))),
		cmd("caption", oblig(plain("a caption"))),
		cmd("includegraphics", oblig(plain("a.png"))),
	}}
	b := readFigure(group, meta)
	if b == nil {
		t.Fatalf("expected a well-formed figure")
	}
	if meta.Media[b.MediaID] != "a.png" {
		t.Fatalf("registered media = %q, want %q", meta.Media[b.MediaID], "a.png")
	}
	if _, ok := meta.ResolveLabel("fig:a"); !ok {
		t.Fatalf("expected \\label before \\caption/\\includegraphics to still bind")
	}
}

func TestReadListSplitsOnItem(t *testing.T) {
	meta := newMeta()
	group := atom.Atom{Kind: atom.Group, Name: "enumerate", Body: []atom.Atom{
		cmd("item"), plain("one"),
		cmd("item"), plain("two"),
	}}
	doc := &document.Document{}
	b := readList(group, meta, nil, doc)
	if b.ListType != document.Ordered {
		t.Fatalf("ListType = %v, want Ordered for enumerate", b.ListType)
	}
	if len(b.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(b.Items))
	}
}

func TestParseRowsMulticolumn(t *testing.T) {
	meta := newMeta()
	atoms := []atom.Atom{
		cmd("multicolumn", oblig(plain("2")), oblig(plain("c")), oblig(plain("spanned"))),
		{Kind: atom.AlignMark},
		plain("cell"),
		cmd("\\"),
		plain("r2c1"),
		{Kind: atom.AlignMark},
		plain("r2c2"),
	}
	rows := parseRows(atoms, meta)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if len(rows[0].Cells) != 2 || rows[0].Cells[0].Span != 2 {
		t.Fatalf("row 1 cells = %#v, want a spanning first cell", rows[0].Cells)
	}
	if len(rows[1].Cells) != 2 {
		t.Fatalf("row 2 cells = %#v, want 2 plain cells", rows[1].Cells)
	}
}

func TestBuildBibListFallsBackToKeyOnMissingEntry(t *testing.T) {
	meta := newMeta()
	meta.RegisterCitation("ghost")
	b := buildBibList(meta)
	if len(b.BibEntries) != 1 {
		t.Fatalf("got %d bib entries, want 1", len(b.BibEntries))
	}
	if b.BibEntries[0].Text != "ghost" {
		t.Fatalf("fallback text = %q, want the bare key %q", b.BibEntries[0].Text, "ghost")
	}
	if len(meta.Warn.Warnings()) != 1 {
		t.Fatalf("expected a warning for the undefined citation key")
	}
}
