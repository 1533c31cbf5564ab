package filter_test

import (
	"reflect"
	"testing"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/filter"
)

func TestNormaliseConflatesAdjacentWhite(t *testing.T) {
	atoms := []atom.Atom{
		{Kind: atom.Plain, Text: "a"},
		{Kind: atom.White},
		{Kind: atom.White},
		{Kind: atom.Plain, Text: "b"},
	}
	out := filter.Normalise(atoms)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[1].Kind != atom.White {
		t.Errorf("out[1] = %v, want White", out[1])
	}
}

func TestNormaliseParAbsorbsSurroundingWhite(t *testing.T) {
	atoms := []atom.Atom{
		{Kind: atom.Plain, Text: "a"},
		{Kind: atom.White},
		{Kind: atom.Par},
		{Kind: atom.White},
		{Kind: atom.Plain, Text: "b"},
	}
	out := filter.Normalise(atoms)
	if len(out) != 3 {
		t.Fatalf("out = %v, want [Plain(a), Par, Plain(b)]", out)
	}
	if out[1].Kind != atom.Par {
		t.Errorf("out[1] = %v, want Par", out[1])
	}
}

func TestNormaliseDoesNotStripLeadingTrailingWhitespace(t *testing.T) {
	atoms := []atom.Atom{{Kind: atom.White}, {Kind: atom.Plain, Text: "a"}, {Kind: atom.White}}
	out := filter.Normalise(atoms)
	if len(out) != 3 {
		t.Fatalf("out = %v, want leading/trailing White preserved", out)
	}
}

func TestNormaliseIsIdempotent(t *testing.T) {
	atoms := []atom.Atom{
		{Kind: atom.White},
		{Kind: atom.Plain, Text: "a"},
		{Kind: atom.White},
		{Kind: atom.White},
		{Kind: atom.Par},
		{Kind: atom.White},
		{Kind: atom.Plain, Text: "b"},
		{Kind: atom.Newline},
	}
	once := filter.Normalise(atoms)
	twice := filter.Normalise(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Normalise is not idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestResolveSymbol(t *testing.T) {
	tables := filter.Default()
	atoms := []atom.Atom{{Kind: atom.Command, Name: "alpha"}}
	out := tables.ResolveTree(atoms)
	if len(out) != 1 || out[0].Kind != atom.Plain || out[0].Text != "α" {
		t.Fatalf("out = %v, want Plain(α)", out)
	}
}

func TestResolveDiacritic(t *testing.T) {
	tables := filter.Default()
	atoms := []atom.Atom{{
		Kind: atom.Command, Name: "'",
		Args: []atom.Arg{{Kind: atom.ObligatoryArg, Body: []atom.Atom{{Kind: atom.Plain, Text: "e"}}}},
	}}
	out := tables.ResolveTree(atoms)
	if len(out) != 1 || out[0].Kind != atom.Plain {
		t.Fatalf("out = %v, want a single Plain atom", out)
	}
	if got := []rune(out[0].Text); len(got) != 2 || got[0] != 'e' {
		t.Fatalf("out[0].Text = %q, want e followed by a combining acute", out[0].Text)
	}
}

func TestUnknownCommandLeftIntact(t *testing.T) {
	tables := filter.Default()
	atoms := []atom.Atom{{Kind: atom.Command, Name: "unknownthing"}}
	out := tables.ResolveTree(atoms)
	if len(out) != 1 || out[0].Kind != atom.Command || out[0].Name != "unknownthing" {
		t.Fatalf("out = %v, want the command left unresolved", out)
	}
}

func TestLigaturesLongestKeyPriority(t *testing.T) {
	tables := filter.Default()
	atoms := []atom.Atom{{Kind: atom.Plain, Text: "em---dash and en--dash"}}
	out := tables.ResolveTree(atoms)
	want := "em—dash and en–dash"
	if out[0].Text != want {
		t.Fatalf("out[0].Text = %q, want %q", out[0].Text, want)
	}
}

func TestCurlyQuoteLigatures(t *testing.T) {
	tables := filter.Default()
	atoms := []atom.Atom{{Kind: atom.Plain, Text: "``hi''"}}
	out := tables.ResolveTree(atoms)
	if out[0].Text != "“hi”" {
		t.Fatalf("out[0].Text = %q, want %q", out[0].Text, "“hi”")
	}
}
