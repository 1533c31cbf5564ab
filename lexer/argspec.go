package lexer

import (
	"fmt"

	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

// ArgKind tags the variant of Arg.
type ArgKind int

const (
	Mandatory ArgKind = iota
	Until
	UntilCatcode
	Delimited
	OptionalGroup
	OptionalGroupByCatcode
	OptionalToken
	LiteralToken
)

// Arg is one entry of a macro's or environment's argument specification,
// the complete contract between a definition and its call sites.
type Arg struct {
	Kind ArgKind

	Seq        []token.Token   // Until
	Cat        catcode.Catcode // UntilCatcode, OptionalGroupByCatcode
	Open       token.Token     // Delimited, OptionalGroup
	Close      token.Token     // Delimited, OptionalGroup
	Default    []token.Token   // Delimited, OptionalGroup: nil means "no default" (use NoValue sentinel)
	HasDefault bool
	Tok        token.Token // OptionalToken, LiteralToken
}

// Sentinel tokens substituted for absent optional arguments and boolean
// markers. These are plain control-sequence tokens with names no real TeX
// source can produce (an '@' followed by reserved text), so they can
// never collide with user-level macros, and \IfNoValueTF / \IfBooleanTF
// simply pattern-match a single-token argument against them.
var (
	sentinelNoValue = token.NewCS("@texfront@novalue", false, "", 0, 0)
	sentinelTrue    = token.NewCS("@texfront@true", false, "", 0, 0)
	sentinelFalse   = token.NewCS("@texfront@false", false, "", 0, 0)
)

func IsNoValue(toks []token.Token) bool {
	return len(toks) == 1 && toks[0].Equal(sentinelNoValue)
}

func IsBooleanTrue(toks []token.Token) bool {
	return len(toks) == 1 && toks[0].Equal(sentinelTrue)
}

func IsBooleanFalse(toks []token.Token) bool {
	return len(toks) == 1 && toks[0].Equal(sentinelFalse)
}

// parseArgList consumes one argument per entry of spec, in order, from
// the (expanded) token stream.
func (l *Lexer) parseArgList(spec []Arg, callPos Pos) ([][]token.Token, error) {
	out := make([][]token.Token, len(spec))
	for i, a := range spec {
		toks, err := l.parseOneArg(a, callPos)
		if err != nil {
			return nil, err
		}
		out[i] = toks
	}
	return out, nil
}

func (l *Lexer) parseOneArg(a Arg, callPos Pos) ([]token.Token, error) {
	switch a.Kind {
	case Mandatory:
		return l.parseMandatoryArg()
	case Until:
		return l.readUntilSeq(a.Seq)
	case UntilCatcode:
		return l.readUntilCatcode(a.Cat)
	case Delimited:
		return l.parseDelimited(a.Open, a.Close, a.Default, a.HasDefault)
	case OptionalGroup, OptionalGroupByCatcode:
		return l.parseOptionalGroup(a.Open, a.Close, a.Default, a.HasDefault)
	case OptionalToken:
		return l.parseOptionalToken(a.Tok)
	case LiteralToken:
		return l.parseLiteralToken(a.Tok, callPos)
	}
	return nil, fmt.Errorf("unknown argument kind %d", a.Kind)
}

func (l *Lexer) parseMandatoryArg() ([]token.Token, error) {
	for {
		t, err := l.peekN(0)
		if err != nil {
			return nil, err
		}
		if t.IsSpace() {
			l.consume()
			continue
		}
		break
	}
	t, err := l.consume()
	if err != nil {
		return nil, err
	}
	if t.IsCS("par") {
		return nil, texerr.NewFatal(l.pos(), "lexer", "missing mandatory argument: found \\par")
	}
	if t.IsBgroup() {
		return l.readBalancedExpanded()
	}
	return []token.Token{t}, nil
}

// readBalancedExpanded reads fully-expanded tokens up to (and consuming,
// but not returning) the group-close matching an already-consumed
// group-open, tracking nested groups.
func (l *Lexer) readBalancedExpanded() ([]token.Token, error) {
	depth := 1
	var out []token.Token
	for {
		t, err := l.consume()
		if err != nil {
			return nil, texerr.Wrap(l.pos(), "lexer", err)
		}
		if t.IsBgroup() {
			depth++
			out = append(out, t)
			continue
		}
		if t.IsEgroup() {
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, t)
			continue
		}
		out = append(out, t)
	}
}

func (l *Lexer) readUntilSeq(seq []token.Token) ([]token.Token, error) {
	var out []token.Token
	for {
		if len(seq) > 0 {
			matched := true
			for i, want := range seq {
				got, err := l.peekN(i)
				if err != nil {
					return nil, err
				}
				if !got.Equal(want) {
					matched = false
					break
				}
			}
			if matched {
				for range seq {
					l.consume()
				}
				return out, nil
			}
		}
		t, err := l.consume()
		if err != nil {
			return nil, texerr.Wrap(l.pos(), "lexer", err)
		}
		out = append(out, t)
	}
}

func (l *Lexer) readUntilCatcode(cc catcode.Catcode) ([]token.Token, error) {
	var out []token.Token
	for {
		t, err := l.peekN(0)
		if err != nil {
			return nil, texerr.Wrap(l.pos(), "lexer", err)
		}
		if t.Kind == token.Char && t.Catcode == cc {
			l.consume()
			return out, nil
		}
		l.consume()
		out = append(out, t)
	}
}

func (l *Lexer) parseDelimited(open, close token.Token, def []token.Token, hasDefault bool) ([]token.Token, error) {
	t, err := l.peekN(0)
	if err != nil {
		return nil, err
	}
	if !t.Equal(open) {
		if hasDefault {
			return def, nil
		}
		return []token.Token{sentinelNoValue}, nil
	}
	l.consume()
	depth := 1
	var out []token.Token
	for {
		t, err := l.consume()
		if err != nil {
			return nil, texerr.Wrap(l.pos(), "lexer", err)
		}
		if t.Equal(open) {
			depth++
			out = append(out, t)
			continue
		}
		if t.Equal(close) {
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, t)
			continue
		}
		out = append(out, t)
	}
}

func (l *Lexer) parseOptionalGroup(open, close token.Token, def []token.Token, hasDefault bool) ([]token.Token, error) {
	return l.parseDelimited(open, close, def, hasDefault)
}

func (l *Lexer) parseOptionalToken(tok token.Token) ([]token.Token, error) {
	t, err := l.peekN(0)
	if err != nil {
		return nil, err
	}
	if t.Equal(tok) {
		l.consume()
		return []token.Token{sentinelTrue}, nil
	}
	return []token.Token{sentinelFalse}, nil
}

func (l *Lexer) parseLiteralToken(tok token.Token, callPos Pos) ([]token.Token, error) {
	t, err := l.consume()
	if err != nil {
		return nil, texerr.Wrap(callPos, "lexer", err)
	}
	if !t.Equal(tok) {
		return nil, texerr.NewFatal(l.pos(), "lexer", fmt.Sprintf("expected literal token %s, got %s", tok, t))
	}
	return nil, nil
}

// substituteParams performs body substitution: a Param(i,1) is replaced by the i-th
// supplied argument's token list; a Param(i,n>1) becomes Param(i,n-1) (the
// nested-macro parameter encoding); every other body token is copied
// verbatim.
func substituteParams(body []token.Token, args [][]token.Token) []token.Token {
	out := make([]token.Token, 0, len(body))
	for _, t := range body {
		if t.Kind == token.Param {
			if t.Depth > 1 {
				out = append(out, token.NewParam(t.Index, t.Depth-1, t.File, t.Line, t.Col))
				continue
			}
			if t.Index >= 1 && t.Index <= len(args) {
				out = append(out, args[t.Index-1]...)
				continue
			}
			// Out-of-range parameter reference: copy through rather than
			// panic; malformed user input, not our invariant to enforce.
			out = append(out, t)
			continue
		}
		out = append(out, t)
	}
	return out
}
