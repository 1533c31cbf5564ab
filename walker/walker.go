// Package walker implements the context walker: a backtracking
// parser-combinator library over atom trees. The "context" is a
// zipper-like focus (the atom list ahead) plus a stack of parent frames
// (the siblings following each entered container, and its structural tag),
// with a fixed product-type user state threaded alongside and restored on
// backtrack.
package walker

import (
	"fmt"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/texerr"
)

// Stateful is the constraint every user state type S must satisfy: a cheap,
// independent copy so a failing alternative restores focus and user
// state to the pre-attempt snapshot exactly. Document.Meta (the reader's
// state) implements this by returning a deep-enough copy of its counters
// and tables.
type Stateful[S any] interface {
	Clone() S
}

// frame is one entry of the parent stack: the siblings that follow the
// entered container at that level (restored as the focus by GoUp), and
// the container's tag ("Group:" plus the group name, "MathGroup",
// "SupScript" or "SubScript") — the tag is used only for diagnostics.
type frame struct {
	left []atom.Atom
	tag  string
}

// Context is the zipper-like cursor the whole walker operates on.
type Context[S Stateful[S]] struct {
	Focus   []atom.Atom
	parents []frame
	State   S
}

// New builds a Context positioned at the start of atoms with the given
// initial state.
func New[S Stateful[S]](atoms []atom.Atom, state S) *Context[S] {
	return &Context[S]{Focus: atoms, State: state}
}

// snapshot captures enough of ctx to restore it verbatim after a failed
// alternative: Focus and parents are plain slices (restoring the slice
// header is enough, since every combinator only ever shrinks Focus from
// the front, never mutates in place), and State is cloned.
type snapshot[S Stateful[S]] struct {
	focus   []atom.Atom
	parents []frame
	state   S
}

func save[S Stateful[S]](ctx *Context[S]) snapshot[S] {
	parents := make([]frame, len(ctx.parents))
	copy(parents, ctx.parents)
	return snapshot[S]{focus: ctx.Focus, parents: parents, state: ctx.State.Clone()}
}

func restore[S Stateful[S]](ctx *Context[S], snap snapshot[S]) {
	ctx.Focus = snap.focus
	ctx.parents = snap.parents
	ctx.State = snap.state
}

// Parser is a backtracking parser over a Context[S] yielding a T.
type Parser[S Stateful[S], T any] func(ctx *Context[S]) (T, error)

// ---- primitive parsers ---------------------------------------------------

// Item consumes one atom from the focus; fails with EndOfGroup if empty.
func Item[S Stateful[S]](ctx *Context[S]) (atom.Atom, error) {
	if len(ctx.Focus) == 0 {
		return atom.Atom{}, texerr.NewSoft(texerr.EndOfGroup, pos(ctx), "unexpected end of group")
	}
	a := ctx.Focus[0]
	ctx.Focus = ctx.Focus[1:]
	return a, nil
}

// Peek reports whether the focus-head satisfies p, without consuming it.
func Peek[S Stateful[S]](ctx *Context[S], p func(atom.Atom) bool) bool {
	if len(ctx.Focus) == 0 {
		return false
	}
	return p(ctx.Focus[0])
}

// Satisfy consumes the focus-head if it satisfies p, else fails with
// Unexpected.
func Satisfy[S Stateful[S]](p func(atom.Atom) bool) Parser[S, atom.Atom] {
	return func(ctx *Context[S]) (atom.Atom, error) {
		if len(ctx.Focus) == 0 {
			return atom.Atom{}, texerr.NewSoft(texerr.EndOfGroup, pos(ctx), "unexpected end of group")
		}
		a := ctx.Focus[0]
		if !p(a) {
			return atom.Atom{}, texerr.NewSoft(texerr.Unexpected, posOf(a), fmt.Sprintf("unexpected %v", a))
		}
		ctx.Focus = ctx.Focus[1:]
		return a, nil
	}
}

// containerBody extracts the descendable body of a, if it is a container
// (Group/MathGroup/SupScript/SubScript).
func containerBody(a atom.Atom) ([]atom.Atom, string, bool) {
	switch a.Kind {
	case atom.Group:
		return a.Body, "Group:" + a.Name, true
	case atom.MathGroupKind:
		return a.Body, "MathGroup", true
	case atom.SupScript:
		return a.Script, "SupScript", true
	case atom.SubScript:
		return a.Script, "SubScript", true
	}
	return nil, "", false
}

// GoDown descends into the focus-head's body, pushing a parent frame.
func GoDown[S Stateful[S]](ctx *Context[S]) error {
	if len(ctx.Focus) == 0 {
		return texerr.NewSoft(texerr.EndOfGroup, pos(ctx), "goDown at end of group")
	}
	body, tag, ok := containerBody(ctx.Focus[0])
	if !ok {
		return texerr.NewSoft(texerr.Unexpected, posOf(ctx.Focus[0]), "goDown: not a container")
	}
	ctx.parents = append(ctx.parents, frame{left: ctx.Focus[1:], tag: tag})
	ctx.Focus = body
	return nil
}

// GoUp restores the parent context, discarding any remaining focus.
func GoUp[S Stateful[S]](ctx *Context[S]) error {
	n := len(ctx.parents)
	if n == 0 {
		return texerr.NewSoft(texerr.Unexpected, pos(ctx), "goUp with no open container")
	}
	top := ctx.parents[n-1]
	ctx.parents = ctx.parents[:n-1]
	ctx.Focus = top.left
	return nil
}

// SafeUp is GoUp but requires the current focus to be fully consumed.
func SafeUp[S Stateful[S]](ctx *Context[S]) error {
	if len(ctx.Focus) != 0 {
		return texerr.NewSoft(texerr.Unexpected, pos(ctx), "safeUp: unconsumed atoms remain")
	}
	return GoUp(ctx)
}

// Eof succeeds only when the focus is fully consumed.
func Eof[S Stateful[S]](ctx *Context[S]) (struct{}, error) {
	if len(ctx.Focus) != 0 {
		return struct{}{}, texerr.NewSoft(texerr.Unexpected, pos(ctx), "expected end of input")
	}
	return struct{}{}, nil
}

// Eog ("end of group") is an alias of Eof at the current nesting level —
// the same check, named for readability at call sites that are explicitly
// draining a Group/Arg body.
func Eog[S Stateful[S]](ctx *Context[S]) (struct{}, error) {
	return Eof(ctx)
}

func pos[S Stateful[S]](ctx *Context[S]) texerr.Pos {
	if len(ctx.Focus) > 0 {
		return posOf(ctx.Focus[0])
	}
	return texerr.Pos{}
}

func posOf(a atom.Atom) texerr.Pos { return a.Pos }

// ---- command / group entry points ---------------------------------------

// isCommand matches a Command atom by name.
func isCommand(name string) func(atom.Atom) bool {
	return func(a atom.Atom) bool { return a.Kind == atom.Command && a.Name == name }
}

// runArg runs p over the nth argument's body (its own isolated Context, so
// p's backtracking never touches the outer context beyond the command
// atom already consumed).
func runArg[S Stateful[S]](ctx *Context[S], args []atom.Arg, n int, p Parser[S, any]) (any, error) {
	if n >= len(args) {
		return nil, texerr.NewSoft(texerr.Unexpected, pos(ctx), fmt.Sprintf("command has no argument #%d", n))
	}
	sub := &Context[S]{Focus: args[n].Body, State: ctx.State}
	v, err := p(sub)
	ctx.State = sub.State
	return v, err
}

// InCmd parses a command by name and runs p over its first mandatory
// argument's body.
func InCmd[S Stateful[S], T any](name string, p Parser[S, T]) Parser[S, T] {
	return func(ctx *Context[S]) (T, error) {
		var zero T
		cmd, err := Satisfy[S](isCommand(name))(ctx)
		if err != nil {
			return zero, err
		}
		v, err := runArg(ctx, cmd.Args, 0, wrapAny(p))
		if err != nil {
			return zero, err
		}
		return v.(T), nil
	}
}

// InCmd2 / InCmd3 run p1/p2(/p3) over the command's first two (or three)
// mandatory arguments, returning their results as a tuple-like struct.
type Pair[A, B any] struct {
	First  A
	Second B
}

type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func InCmd2[S Stateful[S], A, B any](name string, p1 Parser[S, A], p2 Parser[S, B]) Parser[S, Pair[A, B]] {
	return func(ctx *Context[S]) (Pair[A, B], error) {
		cmd, err := Satisfy[S](isCommand(name))(ctx)
		if err != nil {
			return Pair[A, B]{}, err
		}
		v1, err := runArg(ctx, cmd.Args, 0, wrapAny(p1))
		if err != nil {
			return Pair[A, B]{}, err
		}
		v2, err := runArg(ctx, cmd.Args, 1, wrapAny(p2))
		if err != nil {
			return Pair[A, B]{}, err
		}
		return Pair[A, B]{First: v1.(A), Second: v2.(B)}, nil
	}
}

func InCmd3[S Stateful[S], A, B, C any](name string, p1 Parser[S, A], p2 Parser[S, B], p3 Parser[S, C]) Parser[S, Triple[A, B, C]] {
	return func(ctx *Context[S]) (Triple[A, B, C], error) {
		cmd, err := Satisfy[S](isCommand(name))(ctx)
		if err != nil {
			return Triple[A, B, C]{}, err
		}
		v1, err := runArg(ctx, cmd.Args, 0, wrapAny(p1))
		if err != nil {
			return Triple[A, B, C]{}, err
		}
		v2, err := runArg(ctx, cmd.Args, 1, wrapAny(p2))
		if err != nil {
			return Triple[A, B, C]{}, err
		}
		v3, err := runArg(ctx, cmd.Args, 2, wrapAny(p3))
		if err != nil {
			return Triple[A, B, C]{}, err
		}
		return Triple[A, B, C]{First: v1.(A), Second: v2.(B), Third: v3.(C)}, nil
	}
}

// InCmdOpt2 parses a command whose first argument is optional (possibly
// absent) and second is mandatory, returning both — an absent optional
// argument is represented by a nil *A.
func InCmdOpt2[S Stateful[S], A, B any](name string, popt Parser[S, A], pmand Parser[S, B]) Parser[S, Pair[*A, B]] {
	return func(ctx *Context[S]) (Pair[*A, B], error) {
		cmd, err := Satisfy[S](isCommand(name))(ctx)
		if err != nil {
			return Pair[*A, B]{}, err
		}
		var optPtr *A
		argIdx := 0
		if len(cmd.Args) > 0 && cmd.Args[0].Kind == atom.OptionalArg {
			v, err := runArg(ctx, cmd.Args, 0, wrapAny(popt))
			if err != nil {
				return Pair[*A, B]{}, err
			}
			val := v.(A)
			optPtr = &val
			argIdx = 1
		}
		v2, err := runArg(ctx, cmd.Args, argIdx, wrapAny(pmand))
		if err != nil {
			return Pair[*A, B]{}, err
		}
		return Pair[*A, B]{First: optPtr, Second: v2.(B)}, nil
	}
}

// InCmdWithOpts runs p over every argument the command was actually called
// with (mandatory and optional alike, in order), returning their results.
func InCmdWithOpts[S Stateful[S], T any](name string, p Parser[S, T]) Parser[S, []T] {
	return func(ctx *Context[S]) ([]T, error) {
		cmd, err := Satisfy[S](isCommand(name))(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(cmd.Args))
		for i := range cmd.Args {
			v, err := runArg(ctx, cmd.Args, i, wrapAny(p))
			if err != nil {
				return nil, err
			}
			out = append(out, v.(T))
		}
		return out, nil
	}
}

// InCmdCheckStar parses a command and reports whether it carried a
// StarArg, without otherwise inspecting its arguments.
func InCmdCheckStar[S Stateful[S]](name string) Parser[S, bool] {
	return func(ctx *Context[S]) (bool, error) {
		cmd, err := Satisfy[S](isCommand(name))(ctx)
		if err != nil {
			return false, err
		}
		for _, a := range cmd.Args {
			if a.Kind == atom.StarArg {
				return true, nil
			}
		}
		return false, nil
	}
}

func wrapAny[S Stateful[S], T any](p Parser[S, T]) Parser[S, any] {
	return func(ctx *Context[S]) (any, error) { return p(ctx) }
}

// ---- group / script entry points ------------------------------------

// InGrp parses a Group atom named name and runs p over its body.
func InGrp[S Stateful[S], T any](name string, p Parser[S, T]) Parser[S, T] {
	return func(ctx *Context[S]) (T, error) {
		var zero T
		if len(ctx.Focus) == 0 || ctx.Focus[0].Kind != atom.Group || ctx.Focus[0].Name != name {
			return zero, texerr.NewSoft(texerr.Unexpected, pos(ctx), fmt.Sprintf("expected Group(%s)", name))
		}
		body := ctx.Focus[0].Body
		ctx.Focus = ctx.Focus[1:]
		sub := &Context[S]{Focus: body, State: ctx.State}
		v, err := p(sub)
		ctx.State = sub.State
		return v, err
	}
}

// InGrpChoice tries InGrp for each name in names, in order.
func InGrpChoice[S Stateful[S], T any](names []string, p Parser[S, T]) Parser[S, T] {
	ps := make([]Parser[S, T], len(names))
	for i, n := range names {
		ps[i] = InGrp[S](n, p)
	}
	return Choice(ps...)
}

// InMathGrp parses a MathGroup atom and runs p over its body.
func InMathGrp[S Stateful[S], T any](p Parser[S, T]) Parser[S, T] {
	return func(ctx *Context[S]) (T, error) {
		var zero T
		if len(ctx.Focus) == 0 || ctx.Focus[0].Kind != atom.MathGroupKind {
			return zero, texerr.NewSoft(texerr.Unexpected, pos(ctx), "expected a math group")
		}
		body := ctx.Focus[0].Body
		ctx.Focus = ctx.Focus[1:]
		sub := &Context[S]{Focus: body, State: ctx.State}
		v, err := p(sub)
		ctx.State = sub.State
		return v, err
	}
}

// InSubScript and InSupScript parse a SubScript/SupScript atom and run p
// over its script body.
func InSubScript[S Stateful[S], T any](p Parser[S, T]) Parser[S, T] {
	return inScript[S](atom.SubScript, p)
}

func InSupScript[S Stateful[S], T any](p Parser[S, T]) Parser[S, T] {
	return inScript[S](atom.SupScript, p)
}

func inScript[S Stateful[S], T any](kind atom.Kind, p Parser[S, T]) Parser[S, T] {
	return func(ctx *Context[S]) (T, error) {
		var zero T
		if len(ctx.Focus) == 0 || ctx.Focus[0].Kind != kind {
			return zero, texerr.NewSoft(texerr.Unexpected, pos(ctx), "expected a script atom")
		}
		body := ctx.Focus[0].Script
		ctx.Focus = ctx.Focus[1:]
		sub := &Context[S]{Focus: body, State: ctx.State}
		v, err := p(sub)
		ctx.State = sub.State
		return v, err
	}
}

// OptNested tries p at the current level; on failure, descends into the
// first container atom in focus and retries there.
func OptNested[S Stateful[S], T any](p Parser[S, T]) Parser[S, T] {
	return func(ctx *Context[S]) (T, error) {
		snap := save(ctx)
		v, err := p(ctx)
		if err == nil {
			return v, nil
		}
		restore(ctx, snap)
		if len(ctx.Focus) == 0 {
			var zero T
			return zero, err
		}
		body, tag, ok := containerBody(ctx.Focus[0])
		if !ok {
			var zero T
			return zero, err
		}
		rest := ctx.Focus[1:]
		ctx.parents = append(ctx.parents, frame{left: rest, tag: tag})
		ctx.Focus = body
		v, err2 := p(ctx)
		if err2 != nil {
			restore(ctx, snap)
			var zero T
			return zero, err2
		}
		if uperr := GoUp(ctx); uperr != nil {
			restore(ctx, snap)
			var zero T
			return zero, uperr
		}
		return v, nil
	}
}

// ---- generic combinators --------------------------------------------------

// Choice tries each parser in order, backtracking the context between
// attempts, and returns the first success.
func Choice[S Stateful[S], T any](ps ...Parser[S, T]) Parser[S, T] {
	return func(ctx *Context[S]) (T, error) {
		var zero T
		var lastErr error
		for _, p := range ps {
			snap := save(ctx)
			v, err := p(ctx)
			if err == nil {
				return v, nil
			}
			restore(ctx, snap)
			lastErr = err
		}
		if lastErr == nil {
			lastErr = texerr.NewSoft(texerr.Unexpected, pos(ctx), "choice: no alternatives")
		}
		return zero, lastErr
	}
}

// Count runs p exactly n times, collecting results; fails (and restores)
// if any attempt fails.
func Count[S Stateful[S], T any](n int, p Parser[S, T]) Parser[S, []T] {
	return func(ctx *Context[S]) ([]T, error) {
		snap := save(ctx)
		out := make([]T, 0, n)
		for i := 0; i < n; i++ {
			v, err := p(ctx)
			if err != nil {
				restore(ctx, snap)
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// Many runs p zero or more times until it fails, restoring the context to
// just after the last success.
func Many[S Stateful[S], T any](p Parser[S, T]) Parser[S, []T] {
	return func(ctx *Context[S]) ([]T, error) {
		var out []T
		for {
			snap := save(ctx)
			v, err := p(ctx)
			if err != nil {
				restore(ctx, snap)
				return out, nil
			}
			out = append(out, v)
		}
	}
}

// SepBy runs p zero or more times, separated by sep; SepEndBy additionally
// allows (but does not require) a trailing separator.
func SepBy[S Stateful[S], T, U any](p Parser[S, T], sep Parser[S, U]) Parser[S, []T] {
	return func(ctx *Context[S]) ([]T, error) {
		snap := save(ctx)
		first, err := p(ctx)
		if err != nil {
			restore(ctx, snap)
			return nil, nil
		}
		out := []T{first}
		for {
			snap := save(ctx)
			if _, err := sep(ctx); err != nil {
				restore(ctx, snap)
				return out, nil
			}
			v, err := p(ctx)
			if err != nil {
				restore(ctx, snap)
				return out, nil
			}
			out = append(out, v)
		}
	}
}

func SepEndBy[S Stateful[S], T, U any](p Parser[S, T], sep Parser[S, U]) Parser[S, []T] {
	return func(ctx *Context[S]) ([]T, error) {
		out, _ := SepBy(p, sep)(ctx)
		snap := save(ctx)
		if _, err := sep(ctx); err != nil {
			restore(ctx, snap)
		}
		return out, nil
	}
}

// List runs bullet before every element of the list produced by p,
// e.g. itemize's repeated \item markers.
func List[S Stateful[S], B, T any](bullet Parser[S, B], p Parser[S, T]) Parser[S, []T] {
	item := func(ctx *Context[S]) (T, error) {
		if _, err := bullet(ctx); err != nil {
			var zero T
			return zero, err
		}
		return p(ctx)
	}
	return Many[S](item)
}
