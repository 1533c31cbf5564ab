package document_test

import (
	"testing"

	"github.com/texfront/texfront/bibtex"
	"github.com/texfront/texfront/document"
	"github.com/texfront/texfront/texerr"
)

func newMeta() *document.Meta {
	return document.NewMeta(nil, texerr.NewCollector(texerr.GetLogger("test")))
}

func TestIncrementSectionResetsDeeperCounters(t *testing.T) {
	m := newMeta()
	m.IncrementSection(2) // chapter 1
	m.IncrementSection(3) // section 1.1
	m.NextFigure()        // figure-1-1
	m.IncrementSection(2) // chapter 2: figure counter must reset

	a := m.NextFigure()
	if got := a.ID(); got != "figure-2-1" {
		t.Fatalf("figure anchor after chapter bump = %q, want %q", got, "figure-2-1")
	}
}

func TestBindLabelIgnoresDuplicate(t *testing.T) {
	m := newMeta()
	m.IncrementSection(2)
	first := m.CurrentAnchor
	if !m.BindLabel("dup") {
		t.Fatalf("expected first BindLabel to succeed")
	}
	m.IncrementSection(2)
	if m.BindLabel("dup") {
		t.Fatalf("expected duplicate BindLabel to be rejected")
	}
	got, ok := m.ResolveLabel("dup")
	if !ok || got.ID() != first.ID() {
		t.Fatalf("duplicate label rebinding should be ignored; got %q, want the first binding %q", got.ID(), first.ID())
	}
}

func TestRegisterCitationIsIdempotent(t *testing.T) {
	m := newMeta()
	first := m.RegisterCitation("smith20")
	second := m.RegisterCitation("jones99")
	again := m.RegisterCitation("smith20")
	if first != again {
		t.Fatalf("re-registering a citation key changed its order: %d vs %d", first, again)
	}
	if second != first+1 {
		t.Fatalf("second distinct key should get the next order: got %d, want %d", second, first+1)
	}
	if len(m.CitationKeys) != 2 {
		t.Fatalf("CitationKeys = %v, want 2 distinct keys", m.CitationKeys)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := newMeta()
	m.IncrementSection(2)
	m.BindLabel("a")
	m.RegisterCitation("k1")

	cp := m.Clone()
	cp.IncrementSection(2)
	cp.BindLabel("b")
	cp.RegisterCitation("k2")

	if _, ok := m.ResolveLabel("b"); ok {
		t.Fatalf("mutating the clone's labels leaked back into the original")
	}
	if len(m.CitationKeys) != 1 {
		t.Fatalf("mutating the clone's citations leaked back into the original: %v", m.CitationKeys)
	}
	if m.Chapter() != 1 {
		t.Fatalf("original chapter = %d, want 1 (unaffected by the clone's IncrementSection)", m.Chapter())
	}
	if cp.Chapter() != 2 {
		t.Fatalf("clone chapter = %d, want 2", cp.Chapter())
	}
}

func TestNewMetaDefaultsBibToEmptyDatabase(t *testing.T) {
	m := newMeta()
	if _, ok := m.Bib.Lookup("anything"); ok {
		t.Fatalf("expected the default empty database to find nothing")
	}
	withBib := document.NewMeta(bibtex.MapDatabase{"k": {Key: "k"}}, texerr.NewCollector(texerr.GetLogger("test")))
	if _, ok := withBib.Bib.Lookup("k"); !ok {
		t.Fatalf("expected the supplied database to be used as-is")
	}
}
