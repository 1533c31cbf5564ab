package token_test

import (
	"testing"

	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/token"
)

func TestKey(t *testing.T) {
	cs := token.NewCS("section", false, "<test>", 1, 1)
	name, active := cs.Key()
	if name != "section" || active {
		t.Fatalf("Key() = %q,%v want section,false", name, active)
	}

	active_ := token.Token{Kind: token.Char, Rune: '~', Catcode: catcode.Active}
	name, active = active_.Key()
	if name != "~" || !active {
		t.Fatalf("Key() = %q,%v want ~,true", name, active)
	}
}

func TestEqualIgnoresPosition(t *testing.T) {
	a := token.NewCS("emph", false, "a.tex", 1, 1)
	b := token.NewCS("emph", false, "b.tex", 99, 7)
	if !a.Equal(b) {
		t.Fatal("tokens with same name/active but different position should be Equal")
	}
}

func TestDetokenizeRoundTrip(t *testing.T) {
	toks := []token.Token{
		token.NewCS("emph", false, "<s>", 0, 0),
		token.NewChar(' ', catcode.Space, "<s>", 0, 0),
		token.NewChar('h', catcode.Letter, "<s>", 0, 0),
		token.NewChar('i', catcode.Letter, "<s>", 0, 0),
	}
	got := token.Detokenize(toks, '\\')
	want := `\emph hi`
	if got != want {
		t.Fatalf("Detokenize() = %q, want %q", got, want)
	}
}

func TestDetokenizeControlWordBeforeLetter(t *testing.T) {
	toks := []token.Token{
		token.NewCS("alpha", false, "<s>", 0, 0),
		token.NewChar('x', catcode.Letter, "<s>", 0, 0),
	}
	got := token.Detokenize(toks, '\\')
	if got != `\alpha x` {
		t.Fatalf("Detokenize() = %q, want %q (space to avoid gluing)", got, `\alpha x`)
	}
}
