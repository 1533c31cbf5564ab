package walker_test

import (
	"testing"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/walker"
)

// counterState is the smallest possible Stateful[S] implementation: a
// single mutable counter, enough to prove a failed alternative really
// restores state rather than just focus.
type counterState struct{ n int }

func (c *counterState) Clone() *counterState {
	cp := *c
	return &cp
}

func plain(text string) atom.Atom { return atom.Atom{Kind: atom.Plain, Text: text} }

func command(name string, args ...atom.Arg) atom.Atom {
	return atom.Atom{Kind: atom.Command, Name: name, Args: args}
}

func obligatory(body ...atom.Atom) atom.Arg {
	return atom.Arg{Kind: atom.ObligatoryArg, Body: body}
}

func TestItemConsumesOneAtom(t *testing.T) {
	ctx := walker.New[*counterState]([]atom.Atom{plain("a"), plain("b")}, &counterState{})
	got, err := walker.Item[*counterState](ctx)
	if err != nil {
		t.Fatalf("Item() error: %v", err)
	}
	if got.Text != "a" {
		t.Fatalf("Item() = %q, want %q", got.Text, "a")
	}
	if len(ctx.Focus) != 1 || ctx.Focus[0].Text != "b" {
		t.Fatalf("unexpected remaining focus: %#v", ctx.Focus)
	}
}

func TestItemFailsAtEndOfGroup(t *testing.T) {
	ctx := walker.New[*counterState](nil, &counterState{})
	if _, err := walker.Item[*counterState](ctx); err == nil {
		t.Fatalf("expected Item() to fail on an empty focus")
	}
}

func TestChoiceRestoresStateOnFailure(t *testing.T) {
	// Both alternatives bump the counter before failing/succeeding; Choice
	// must restore the counter after the first (failing) attempt so the
	// second attempt starts from the original state, not a stray +1.
	alwaysFalse := func(atom.Atom) bool { return false }
	failing := func(ctx *walker.Context[*counterState]) (string, error) {
		ctx.State.n++
		_, err := walker.Satisfy[*counterState](alwaysFalse)(ctx)
		return "", err
	}
	succeeding := func(ctx *walker.Context[*counterState]) (string, error) {
		ctx.State.n++
		return "ok", nil
	}

	ctx := walker.New[*counterState]([]atom.Atom{plain("a")}, &counterState{n: 10})
	v, err := walker.Choice[*counterState, string](failing, succeeding)(ctx)
	if err != nil {
		t.Fatalf("Choice() error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("Choice() = %q, want %q", v, "ok")
	}
	if ctx.State.n != 11 {
		t.Fatalf("State.n = %d, want 11 (failing attempt's +1 should have been undone)", ctx.State.n)
	}
}

func TestManyCollectsUntilFailure(t *testing.T) {
	atoms := []atom.Atom{plain("a"), plain("b"), command("x")}
	ctx := walker.New[*counterState](atoms, &counterState{})
	isPlain := func(a atom.Atom) bool { return a.Kind == atom.Plain }
	got, err := walker.Many[*counterState](walker.Satisfy[*counterState](isPlain))(ctx)
	if err != nil {
		t.Fatalf("Many() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Many() collected %d atoms, want 2", len(got))
	}
	if len(ctx.Focus) != 1 || ctx.Focus[0].Name != "x" {
		t.Fatalf("Many() left unexpected focus: %#v", ctx.Focus)
	}
}

func TestInCmdRunsOverFirstArgument(t *testing.T) {
	cmd := command("label", obligatory(plain("fig:one")))
	ctx := walker.New[*counterState]([]atom.Atom{cmd}, &counterState{})
	readName := func(ctx *walker.Context[*counterState]) (string, error) {
		a, err := walker.Item[*counterState](ctx)
		if err != nil {
			return "", err
		}
		return a.Text, nil
	}
	got, err := walker.InCmd[*counterState, string]("label", readName)(ctx)
	if err != nil {
		t.Fatalf("InCmd() error: %v", err)
	}
	if got != "fig:one" {
		t.Fatalf("InCmd() = %q, want %q", got, "fig:one")
	}
	if len(ctx.Focus) != 0 {
		t.Fatalf("expected the command to be fully consumed, focus = %#v", ctx.Focus)
	}
}

func TestGoDownGoUp(t *testing.T) {
	group := atom.Atom{Kind: atom.Group, Name: "quote", Body: []atom.Atom{plain("hi")}}
	ctx := walker.New[*counterState]([]atom.Atom{group, plain("after")}, &counterState{})
	if err := walker.GoDown[*counterState](ctx); err != nil {
		t.Fatalf("GoDown() error: %v", err)
	}
	if len(ctx.Focus) != 1 || ctx.Focus[0].Text != "hi" {
		t.Fatalf("GoDown() focus = %#v, want the group body", ctx.Focus)
	}
	if _, err := walker.Item[*counterState](ctx); err != nil {
		t.Fatalf("Item() inside group error: %v", err)
	}
	if err := walker.SafeUp[*counterState](ctx); err != nil {
		t.Fatalf("SafeUp() error: %v", err)
	}
	if len(ctx.Focus) != 1 || ctx.Focus[0].Text != "after" {
		t.Fatalf("GoUp() focus = %#v, want the sibling after the group", ctx.Focus)
	}
}
