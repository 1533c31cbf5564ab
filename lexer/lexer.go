// Package lexer implements the catcode-driven lexer with integrated macro
// expander: a demand-driven token stream that executes a small interpreter
// for TeX's definitional primitives while it scans. Because any input can
// reassign catcodes or redefine commands midstream, lexing, expansion, and
// primitive execution are interleaved in a single state machine rather
// than layered as separate passes.
package lexer

import (
	"errors"
	"fmt"

	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/config"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

// Pos is an alias for texerr.Pos so callers don't need to import texerr
// just to build one.
type Pos = texerr.Pos

// ErrEOF is returned by the low-level token reader at true end of input
// (all open files exhausted, pushback buffer empty). It is not itself a
// fatal error; callers translate an ErrEOF encountered mid-construct
// (unterminated group, unterminated conditional, argument parse hitting
// EOF) into a texerr.FatalError with the right message.
var ErrEOF = errors.New("lexer: end of input")

// Lexer is the single-threaded, synchronous lexer/expander. One Lexer
// exists per document conversion.
type Lexer struct {
	opts config.Options
	log  texerr.Logger
	warn *texerr.Collector

	cats   *catcode.Table
	macros *MacroTable
	envs   *EnvTable
	scopes []scope

	srcStack []*source

	pushback       []token.Token
	lookahead      []token.Token
	expansionStack []expansionMarker

	condStack []condFrame

	// builtinEnvs names the structural environments that get
	// lexer-level group scoping and synthetic begin/end markers instead of
	// user-macro splicing.
	builtinEnvs map[string]bool
	envStack    []envFrame

	// counters backs \newcounter/\setcounter/\addtocounter/\value.
	// Counters are a lexer-global, not scoped by group — TeX
	// counters are never restored on group close in practice, and nothing
	// in this profile's grammar relies on that edge case.
	counters map[string]int

	maxDepth int

	// expandOff > 0 suspends macro/active-character expansion so a
	// primitive can capture literal, unexpanded tokens from the stream: \def's
	// parameter text and body, \newenvironment's start/end code, and the
	// branch bodies of \IfBooleanTF/\IfNoValueTF.
	expandOff int

	// paramMode > 0 makes a ParamPrefix character produce a Param token
	// instead of an Other character — active only while capturing a macro
	// body or parameter text.
	paramMode int
}

// rawCapture runs fn with expansion (and, if withParams, '#'-as-Param
// recognition) suspended, then restores the previous state even if fn
// returns an error.
func (l *Lexer) rawCapture(withParams bool, fn func() error) error {
	l.expandOff++
	if withParams {
		l.paramMode++
	}
	defer func() {
		l.expandOff--
		if withParams {
			l.paramMode--
		}
	}()
	return fn()
}

type expansionMarker struct{ remaining int }

// New creates a Lexer ready to read doc under name, starting from the
// plain-TeX catcode regime plus any opts.CatcodeOverrides, and with the
// LaTeX-profile primitive and environment tables installed.
func New(name, doc string, opts config.Options, warn *texerr.Collector) *Lexer {
	cats := catcode.NewPlainTeX()
	for _, o := range opts.CatcodeOverrides {
		if len(o.Char) == 0 {
			continue
		}
		r := []rune(o.Char)[0]
		if cc, ok := parseCatcodeName(o.Catcode); ok {
			cats.Set(r, cc)
		}
	}

	maxDepth := opts.MaxMacroDepth
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxMacroDepth
	}

	l := &Lexer{
		opts:        opts,
		log:         texerr.GetLogger("lexer"),
		warn:        warn,
		cats:        cats,
		macros:      newMacroTable(),
		envs:        newEnvTable(),
		srcStack:    []*source{newSource(name, doc)},
		maxDepth:    maxDepth,
		counters:    make(map[string]int),
		builtinEnvs: make(map[string]bool),
	}
	installPrimitives(l)
	installBuiltinEnvironments(l)
	return l
}

func parseCatcodeName(name string) (catcode.Catcode, bool) {
	names := map[string]catcode.Catcode{
		"Escape": catcode.Escape, "Bgroup": catcode.Bgroup, "Egroup": catcode.Egroup,
		"MathShift": catcode.MathShift, "AlignTab": catcode.AlignTab, "Eol": catcode.Eol,
		"ParamPrefix": catcode.ParamPrefix, "Supscript": catcode.Supscript, "Subscript": catcode.Subscript,
		"Ignored": catcode.Ignored, "Space": catcode.Space, "Letter": catcode.Letter,
		"Other": catcode.Other, "Active": catcode.Active, "Comment": catcode.Comment, "Invalid": catcode.Invalid,
	}
	cc, ok := names[name]
	return cc, ok
}

// pos returns the current source position for diagnostics.
func (l *Lexer) pos() Pos {
	if len(l.srcStack) == 0 {
		return Pos{}
	}
	s := l.srcStack[len(l.srcStack)-1]
	return Pos{File: s.file, Line: s.line, Col: s.col}
}

// Next returns the next fully-expanded token, or ErrEOF at true end of
// input, or a *texerr.FatalError on a lexer-fatal condition.
func (l *Lexer) Next() (token.Token, error) {
	return l.consume()
}

func (l *Lexer) peekN(n int) (token.Token, error) {
	for len(l.lookahead) <= n {
		t, err := l.rawNext()
		if err != nil {
			return token.Token{}, err
		}
		l.lookahead = append(l.lookahead, t)
	}
	return l.lookahead[n], nil
}

func (l *Lexer) consume() (token.Token, error) {
	if len(l.lookahead) > 0 {
		t := l.lookahead[0]
		l.lookahead = l.lookahead[1:]
		return t, nil
	}
	return l.rawNext()
}

// rawNext drains the pushback queue (re-dispatching any control sequence
// found there, since a macro body may reference further macros and
// expansion must be re-entrant) before falling back to fresh character
// input.
func (l *Lexer) rawNext() (token.Token, error) {
	for {
		if len(l.pushback) > 0 {
			t := l.pushback[0]
			l.pushback = l.pushback[1:]
			l.noteDrained(1)
			out, emit, err := l.redispatch(t)
			if err != nil {
				return token.Token{}, err
			}
			if emit {
				return out, nil
			}
			continue
		}
		if len(l.srcStack) == 0 {
			if l.expandOff == 0 {
				if l.groupDepth() > 0 {
					return token.Token{}, texerr.NewFatal(l.pos(), "lexer", "unterminated group at end of input")
				}
				if len(l.condStack) > 0 {
					return token.Token{}, texerr.NewFatal(l.pos(), "lexer", "unterminated conditional at end of input")
				}
				if len(l.envStack) > 0 {
					return token.Token{}, texerr.NewFatal(l.pos(), "lexer", fmt.Sprintf("\\begin{%s} never closed", l.envStack[len(l.envStack)-1].name))
				}
			}
			return token.Token{}, ErrEOF
		}
		out, emit, err := l.step()
		if err == ErrEOF {
			continue
		}
		if err != nil {
			return token.Token{}, err
		}
		if emit {
			return out, nil
		}
	}
}

// redispatch re-examines an already-tokenized, pending token: control
// sequences and active characters are looked up and possibly expanded
// again; group delimiters still drive the scope stack; everything else is
// emitted as-is.
func (l *Lexer) redispatch(t token.Token) (token.Token, bool, error) {
	switch {
	case l.expandOff > 0 && (t.Kind == token.ControlSeq || (t.Kind == token.Char && t.Catcode == catcode.Active)):
		return t, true, nil
	case t.Kind == token.ControlSeq:
		return l.dispatchControlSequence(t.Name, t.Active, t.File, t.Line, t.Col)
	case t.Kind == token.Char && t.Catcode == catcode.Active:
		return l.dispatchControlSequence(string(t.Rune), true, t.File, t.Line, t.Col)
	case t.IsBgroup():
		if l.expandOff == 0 {
			l.pushScope()
		}
		return t, true, nil
	case t.IsEgroup():
		if l.expandOff == 0 {
			if !l.popScope() {
				return token.Token{}, false, texerr.NewFatal(l.pos(), "lexer", "unmatched group-close")
			}
		}
		return t, true, nil
	default:
		return t, true, nil
	}
}

// pushFront enqueues freshly produced tokens (from macro expansion or a
// primitive splicing code into the input) at the front of the pushback
// queue, and records an expansion marker so macro recursion depth can
// be bounded without a real call stack: the marker is popped once exactly
// as many tokens as were pushed have been drained.
func (l *Lexer) pushFront(toks []token.Token) error {
	if len(toks) == 0 {
		return nil
	}
	if len(l.expansionStack) >= l.maxDepth {
		return texerr.NewFatal(l.pos(), "lexer", "macro recursion depth exceeded")
	}
	buf := make([]token.Token, 0, len(toks)+len(l.pushback))
	buf = append(buf, toks...)
	buf = append(buf, l.pushback...)
	l.pushback = buf
	l.expansionStack = append(l.expansionStack, expansionMarker{remaining: len(toks)})
	return nil
}

func (l *Lexer) noteDrained(n int) {
	for n > 0 && len(l.expansionStack) > 0 {
		top := len(l.expansionStack) - 1
		if l.expansionStack[top].remaining > n {
			l.expansionStack[top].remaining -= n
			n = 0
		} else {
			n -= l.expansionStack[top].remaining
			l.expansionStack = l.expansionStack[:top]
		}
	}
}

func (l *Lexer) dispatchControlSequence(name string, active bool, file string, line, col int) (token.Token, bool, error) {
	cmd, ok := l.macros.Get(name, active)
	if !ok {
		return token.NewCS(name, active, file, line, col), true, nil
	}
	switch cmd.Kind {
	case PrimitiveKind:
		return l.execPrimitive(cmd.Primitive, Pos{File: file, Line: line, Col: col})
	case ImplicitCharKind:
		return token.NewChar(cmd.ImplicitRune, catcode.Catcode(cmd.ImplicitCat), file, line, col), true, nil
	case UserMacroKind:
		args, err := l.parseArgList(cmd.ArgSpec, Pos{File: file, Line: line, Col: col})
		if err != nil {
			return token.Token{}, false, err
		}
		body := substituteParams(cmd.Body, args)
		if err := l.pushFront(body); err != nil {
			return token.Token{}, false, err
		}
		return token.Token{}, false, nil
	}
	return token.Token{}, false, nil
}
