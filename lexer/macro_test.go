package lexer

import (
	"testing"

	"github.com/texfront/texfront/token"
)

func TestMacroTableCloneIsShallowAndIsolated(t *testing.T) {
	base := newMacroTable()
	base.Set("foo", false, &MacroCommand{Kind: UserMacroKind, Name: "foo"})

	clone := base.clone()
	clone.Set("bar", false, &MacroCommand{Kind: UserMacroKind, Name: "bar"})

	if _, ok := base.Get("bar", false); ok {
		t.Fatal("mutating the clone must not affect the base table")
	}
	if _, ok := clone.Get("foo", false); !ok {
		t.Fatal("clone should still see entries present at clone time")
	}
}

func TestEnvTableKeyedByNameSpelling(t *testing.T) {
	table := newEnvTable()
	nameToks := []token.Token{
		token.NewChar('f', 0, "", 0, 0),
		token.NewChar('o', 0, "", 0, 0),
		token.NewChar('o', 0, "", 0, 0),
	}
	env := &MacroEnv{NameTokens: nameToks}
	table.Set(envKeyOf(nameToks), env)

	got, ok := table.Get(nameToks)
	if !ok || got != env {
		t.Fatalf("Get(nameToks) = %v,%v want the stored env", got, ok)
	}
	if _, ok := table.GetByName("foo"); !ok {
		t.Fatal("GetByName(\"foo\") should find the same entry")
	}
}

func TestSentinelPredicates(t *testing.T) {
	if !IsNoValue([]token.Token{sentinelNoValue}) {
		t.Fatal("IsNoValue should recognize the no-value sentinel")
	}
	if !IsBooleanTrue([]token.Token{sentinelTrue}) {
		t.Fatal("IsBooleanTrue should recognize the true sentinel")
	}
	if !IsBooleanFalse([]token.Token{sentinelFalse}) {
		t.Fatal("IsBooleanFalse should recognize the false sentinel")
	}
	if IsNoValue([]token.Token{sentinelTrue}) {
		t.Fatal("IsNoValue must not match the true sentinel")
	}
}

func TestSubstituteParamsNesting(t *testing.T) {
	body := []token.Token{
		token.NewParam(1, 2, "", 0, 0),
		token.NewChar('x', 0, "", 0, 0),
	}
	out := substituteParams(body, [][]token.Token{{token.NewChar('A', 0, "", 0, 0)}})
	if len(out) != 2 || out[0].Kind != token.Param || out[0].Depth != 1 {
		t.Fatalf("nested param should decrement depth, not substitute: %v", out)
	}

	body2 := []token.Token{token.NewParam(1, 1, "", 0, 0)}
	out2 := substituteParams(body2, [][]token.Token{{token.NewChar('A', 0, "", 0, 0)}})
	if len(out2) != 1 || out2[0].Kind != token.Char || out2[0].Rune != 'A' {
		t.Fatalf("depth-1 param should substitute the argument tokens: %v", out2)
	}
}
