package atom_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/token"
)

// ignoreAtomPos keeps diffs focused on structure, not source coordinates.
var ignoreAtomPos = cmpopts.IgnoreFields(atom.Atom{}, "Pos")

func TestBuiltinEnvironmentFoldsToNamedGroup(t *testing.T) {
	toks := []token.Token{
		token.NewCS("@begin:itemize", false, "<t>", 1, 1),
		ch('x', catcode.Letter),
		token.NewCS("@end:itemize", false, "<t>", 1, 1),
	}
	got, err := atom.Parse(toks, atom.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	want := []atom.Atom{
		{Kind: atom.Group, Name: "itemize", Body: []atom.Atom{
			{Kind: atom.Plain, Text: "x"},
		}},
	}
	if diff := cmp.Diff(want, got, ignoreAtomPos); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestCitationRegistryThreeArgArity(t *testing.T) {
	toks := []token.Token{
		token.NewCS("cite", false, "<t>", 1, 1),
		ch('[', catcode.Other), ch('p', catcode.Letter), ch(']', catcode.Other),
		ch('[', catcode.Other), ch('q', catcode.Letter), ch(']', catcode.Other),
		ch('{', catcode.Bgroup), ch('k', catcode.Letter), ch('}', catcode.Egroup),
	}
	got, err := atom.Parse(toks, atom.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Kind != atom.Command {
		t.Fatalf("Parse() = %#v, want a single Command atom", got)
	}
	if len(got[0].Args) != 3 {
		t.Fatalf("\\cite got %d args, want 3 (pre, post, keys)", len(got[0].Args))
	}
	want := []atom.Atom{{Kind: atom.Plain, Text: "k"}}
	if diff := cmp.Diff(want, got[0].Args[2].Body, ignoreAtomPos); diff != "" {
		t.Fatalf("key argument mismatch (-want +got):\n%s", diff)
	}
}
