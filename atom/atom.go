// Package atom implements the structural parser: a pure function lifting
// the lexer's flat token stream into TeX's nested structural shape (plain
// text runs, commands with argument lists, groups, math groups, scripts),
// driven by a static argument-spec registry for the commands whose
// argument shape the parser itself must know.
package atom

import (
	"fmt"
	"strings"

	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

// Kind tags the variant of Atom.
type Kind int

const (
	Plain Kind = iota
	Command
	Group
	MathGroupKind
	SupScript
	SubScript
	AlignMark
	White
	Newline
	Par
)

// MathType distinguishes inline from display math.
type MathType int

const (
	InlineMath MathType = iota
	DisplayMath
)

// ArgKind tags the variant of Arg.
type ArgKind int

const (
	ObligatoryArg ArgKind = iota
	OptionalArg
	StarArg
)

// Arg is one entry of a Command or Group's argument list.
type Arg struct {
	Kind ArgKind
	Body []Atom // empty for StarArg
}

// Atom is the tagged variant produced by Parse. Only the fields relevant
// to Kind are meaningful.
type Atom struct {
	Kind Kind

	// Plain
	Text string

	// Command
	Name   string
	Active bool
	Args   []Arg

	// Group (Name/Args reused from Command when the group follows one)
	Body []Atom

	// MathGroupKind
	Math MathType

	// SupScript/SubScript
	Script []Atom

	Pos texerr.Pos
}

func (a Atom) String() string {
	switch a.Kind {
	case Plain:
		return fmt.Sprintf("Plain(%q)", a.Text)
	case Command:
		return fmt.Sprintf("Command(%s, %d args)", a.Name, len(a.Args))
	case Group:
		return fmt.Sprintf("Group(%s, %d atoms)", a.Name, len(a.Body))
	case MathGroupKind:
		return fmt.Sprintf("MathGroup(%v, %d atoms)", a.Math, len(a.Body))
	case SupScript:
		return "SupScript"
	case SubScript:
		return "SubScript"
	case AlignMark:
		return "AlignMark"
	case White:
		return "White"
	case Newline:
		return "Newline"
	case Par:
		return "Par"
	}
	return "?"
}

// Registry maps a command name to the argument specification the
// structural parser consults to fold following groups/brackets into its
// Args list. Commands absent from the registry default to zero arguments;
// the reader decides what to do with anything that follows them.
type Registry struct {
	specs map[string][]ArgKind
}

// NewRegistry builds the argument-spec registry for sectioning, font
// styles, and the handful of core commands whose argument shape the
// structural parser — not just the reader — must know, because a
// mandatory-argument group must be folded into the Command's Args rather
// than left as a sibling Group atom.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string][]ArgKind)}
	sectioning := []string{
		"part", "chapter", "section", "subsection", "subsubsection",
		"paragraph", "subparagraph",
	}
	for _, name := range sectioning {
		r.specs[name] = []ArgKind{StarArg, OptionalArg, ObligatoryArg}
	}
	fontStyles := []string{"textbf", "textit", "texttt", "textsc", "emph", "underline"}
	for _, name := range fontStyles {
		r.specs[name] = []ArgKind{ObligatoryArg}
	}
	oneArg := []string{
		"caption", "label", "ref", "pageref", "autoref", "footnote",
		"item", "href", "url", "includegraphics",
		"textsuperscript", "textsubscript",
	}
	for _, name := range oneArg {
		r.specs[name] = []ArgKind{ObligatoryArg}
	}
	r.specs["item"] = []ArgKind{OptionalArg}
	r.specs["href"] = []ArgKind{ObligatoryArg, ObligatoryArg}
	r.specs["includegraphics"] = []ArgKind{OptionalArg, ObligatoryArg}

	citeFamily := []string{
		"cite", "parencite", "textcite", "citeauthor", "citeyear",
		"cites", "parencites",
	}
	for _, name := range citeFamily {
		r.specs[name] = []ArgKind{OptionalArg, OptionalArg, ObligatoryArg}
	}

	r.specs["multicolumn"] = []ArgKind{ObligatoryArg, ObligatoryArg, ObligatoryArg}

	// Diacritic commands must fold their argument at the structural level so
	// the filter's resolution pass sees Command+Arg, not a Command
	// followed by a sibling group.
	diacritics := []string{"'", "`", "^", "\"", "~", "c", "v", "=", "."}
	for _, name := range diacritics {
		r.specs[name] = []ArgKind{ObligatoryArg}
	}
	r.specs["t"] = []ArgKind{ObligatoryArg, ObligatoryArg}
	return r
}

// Lookup returns the registered argument-kind sequence for name, or nil if
// name is not in the registry (zero arguments).
func (r *Registry) Lookup(name string) []ArgKind {
	return r.specs[name]
}

// Set registers (or overrides) name's argument-kind sequence, for commands
// that are missing from the static table NewRegistry builds.
func (r *Registry) Set(name string, kinds []ArgKind) {
	r.specs[name] = kinds
}

// parser holds the cursor over the token slice being folded into atoms.
type parser struct {
	toks []token.Token
	pos  int
	reg  *Registry
}

// Parse lifts toks into an atom list.
func Parse(toks []token.Token, reg *Registry) ([]Atom, error) {
	p := &parser{toks: toks, reg: reg}
	atoms, err := p.parseUntil(nil)
	if err != nil {
		return nil, err
	}
	return atoms, nil
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token.Token, bool) {
	if p.eof() {
		return token.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

// parseUntil reads atoms until EOF or, when stop is non-nil, until a token
// satisfying stop is found (left unconsumed so the caller can inspect it —
// used for group-close and the synthetic @end: markers).
func (p *parser) parseUntil(stop func(token.Token) bool) ([]Atom, error) {
	var out []Atom
	var plain []rune
	var plainPos texerr.Pos

	flush := func() {
		if len(plain) > 0 {
			out = append(out, Atom{Kind: Plain, Text: string(plain), Pos: plainPos})
			plain = nil
		}
	}

	for !p.eof() {
		t, _ := p.peek()
		if stop != nil && stop(t) {
			flush()
			return out, nil
		}

		switch {
		case t.IsEgroup():
			flush()
			return out, nil

		case t.IsBgroup():
			flush()
			p.advance()
			body, err := p.parseUntil(func(tk token.Token) bool { return tk.IsEgroup() })
			if err != nil {
				return nil, err
			}
			if !p.eof() && p.toks[p.pos].IsEgroup() {
				p.advance()
			} else {
				return nil, texerr.NewFatal(pos(t), "atom", "unterminated group")
			}
			out = append(out, Atom{Kind: Group, Body: body, Pos: pos(t)})

		case t.Kind == token.Char && t.Catcode == catcode.MathShift:
			flush()
			atom, err := p.parseMathGroup(t)
			if err != nil {
				return nil, err
			}
			out = append(out, atom)

		case t.Kind == token.Char && t.Catcode == catcode.Supscript:
			flush()
			p.advance()
			body, err := p.parseScriptBody()
			if err != nil {
				return nil, err
			}
			out = append(out, Atom{Kind: SupScript, Script: body, Pos: pos(t)})

		case t.Kind == token.Char && t.Catcode == catcode.Subscript:
			flush()
			p.advance()
			body, err := p.parseScriptBody()
			if err != nil {
				return nil, err
			}
			out = append(out, Atom{Kind: SubScript, Script: body, Pos: pos(t)})

		case t.Kind == token.Char && t.Catcode == catcode.AlignTab:
			flush()
			p.advance()
			out = append(out, Atom{Kind: AlignMark, Pos: pos(t)})

		case t.IsSpace():
			flush()
			p.advance()
			out = append(out, Atom{Kind: White, Pos: pos(t)})

		case t.IsCS("par"):
			flush()
			p.advance()
			out = append(out, Atom{Kind: Par, Pos: pos(t)})

		case t.Kind == token.ControlSeq && strings.HasPrefix(t.Name, "@texfront@mathopen:"):
			flush()
			p.advance()
			math, err := p.parseDelimitedMath(t)
			if err != nil {
				return nil, err
			}
			out = append(out, math)

		case t.Kind == token.ControlSeq && strings.HasPrefix(t.Name, "@texfront@mathclose:"):
			flush()
			return nil, texerr.NewFatal(pos(t), "atom", "math close delimiter without matching open")

		case t.Kind == token.ControlSeq && strings.HasPrefix(t.Name, "@begin:"):
			flush()
			name := strings.TrimPrefix(t.Name, "@begin:")
			p.advance()
			endMarker := "@end:" + name
			body, err := p.parseUntil(func(tk token.Token) bool {
				return tk.Kind == token.ControlSeq && tk.Name == endMarker
			})
			if err != nil {
				return nil, err
			}
			end, ok := p.peek()
			if !ok || end.Kind != token.ControlSeq || end.Name != endMarker {
				return nil, texerr.NewFatal(pos(t), "atom", fmt.Sprintf("unterminated environment %q", name))
			}
			p.advance()
			out = append(out, Atom{Kind: Group, Name: name, Body: body, Pos: pos(t)})

		case t.Kind == token.ControlSeq || (t.Kind == token.Char && t.Catcode == catcode.Active):
			flush()
			atom, err := p.parseCommand()
			if err != nil {
				return nil, err
			}
			out = append(out, atom)

		case t.Kind == token.Char && (t.Catcode == catcode.Letter || t.Catcode == catcode.Other):
			if len(plain) == 0 {
				plainPos = pos(t)
			}
			plain = append(plain, t.Rune)
			p.advance()

		default:
			// Unhandled catcode in this position (e.g. a stray Ignored);
			// drop it rather than fail the whole parse.
			p.advance()
		}
	}
	flush()
	return out, nil
}

func (p *parser) parseScriptBody() ([]Atom, error) {
	if p.eof() {
		return nil, texerr.NewFatal(texerr.Pos{}, "atom", "script marker at end of input")
	}
	t, _ := p.peek()
	if t.IsBgroup() {
		p.advance()
		body, err := p.parseUntil(func(tk token.Token) bool { return tk.IsEgroup() })
		if err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, texerr.NewFatal(pos(t), "atom", "unterminated script group")
		}
		p.advance()
		return body, nil
	}
	// A single ungrouped token is the script body (TeX's shorthand x^2).
	single := p.advance()
	atoms, err := (&parser{toks: []token.Token{single}, reg: p.reg}).parseUntil(nil)
	return atoms, err
}

// parseDelimitedMath folds a \(..\) or \[..\] run (already lexed into
// synthetic mathopen/mathclose markers) into a MathGroup atom: '(' opens
// inline math closed by ')', '[' opens display math closed by ']'.
func (p *parser) parseDelimitedMath(open token.Token) (Atom, error) {
	delim := strings.TrimPrefix(open.Name, "@texfront@mathopen:")
	mt := InlineMath
	closeName := "@texfront@mathclose:)"
	if delim == "[" {
		mt = DisplayMath
		closeName = "@texfront@mathclose:]"
	}
	body, err := p.parseUntil(func(tk token.Token) bool {
		return tk.Kind == token.ControlSeq && tk.Name == closeName
	})
	if err != nil {
		return Atom{}, err
	}
	t, ok := p.peek()
	if !ok || t.Kind != token.ControlSeq || t.Name != closeName {
		return Atom{}, texerr.NewFatal(pos(open), "atom", "unterminated math group")
	}
	p.advance()
	return Atom{Kind: MathGroupKind, Math: mt, Body: body, Pos: pos(open)}, nil
}

// parseMathGroup folds a run beginning with MathShift into a MathGroup
// atom: a doubled '$$' opens DisplayMath, a single '$' opens InlineMath,
// closed by the matching form.
func (p *parser) parseMathGroup(open token.Token) (Atom, error) {
	p.advance()
	display := false
	if t, ok := p.peek(); ok && t.Kind == token.Char && t.Catcode == catcode.MathShift {
		display = true
		p.advance()
	}
	closeCount := 1
	if display {
		closeCount = 2
	}
	body, err := p.parseUntil(func(tk token.Token) bool {
		return tk.Kind == token.Char && tk.Catcode == catcode.MathShift
	})
	if err != nil {
		return Atom{}, err
	}
	for i := 0; i < closeCount; i++ {
		if p.eof() {
			return Atom{}, texerr.NewFatal(pos(open), "atom", "unterminated math group")
		}
		t, _ := p.peek()
		if t.Kind != token.Char || t.Catcode != catcode.MathShift {
			return Atom{}, texerr.NewFatal(pos(open), "atom", "unterminated math group")
		}
		p.advance()
	}
	mt := InlineMath
	if display {
		mt = DisplayMath
	}
	return Atom{Kind: MathGroupKind, Math: mt, Body: body, Pos: pos(open)}, nil
}

// parseCommand folds a control-sequence/active-character token into a
// Command atom, then consumes following groups/brackets per the registry's
// argument-kind sequence for its name.
func (p *parser) parseCommand() (Atom, error) {
	t := p.advance()
	name := t.Name
	if t.Kind == token.Char {
		name = string(t.Rune)
	}
	cmd := Atom{Kind: Command, Name: name, Active: t.Active, Pos: pos(t)}

	// The registry describes control sequences only; an active character
	// sharing a spelling with one (the active '~' vs the \~ diacritic) must
	// not swallow following atoms as arguments.
	var kinds []ArgKind
	if !t.Active {
		kinds = p.reg.Lookup(name)
	}
	for _, k := range kinds {
		arg, ok, err := p.consumeArg(k)
		if err != nil {
			return Atom{}, err
		}
		if !ok {
			// A missing optional/star argument just means this command
			// call omitted it; a later mandatory argument can still
			// follow (e.g. \section{Title} with no star or [short]).
			if k == ObligatoryArg {
				break
			}
			continue
		}
		cmd.Args = append(cmd.Args, arg)
	}
	return cmd, nil
}

func (p *parser) consumeArg(kind ArgKind) (Arg, bool, error) {
	switch kind {
	case StarArg:
		if t, ok := p.peek(); ok && t.Kind == token.Char && t.Rune == '*' {
			p.advance()
			return Arg{Kind: StarArg}, true, nil
		}
		return Arg{}, false, nil
	case OptionalArg:
		t, ok := p.peek()
		if !ok || t.Kind != token.Char || t.Rune != '[' {
			return Arg{}, false, nil
		}
		p.advance()
		body, err := p.parseUntil(func(tk token.Token) bool { return tk.Kind == token.Char && tk.Rune == ']' })
		if err != nil {
			return Arg{}, false, err
		}
		end, ok := p.peek()
		if !ok || end.Kind != token.Char || end.Rune != ']' {
			return Arg{}, false, texerr.NewFatal(pos(t), "atom", "unterminated optional argument")
		}
		p.advance()
		return Arg{Kind: OptionalArg, Body: body}, true, nil
	case ObligatoryArg:
		t, ok := p.peek()
		if !ok {
			return Arg{}, false, texerr.NewFatal(texerr.Pos{}, "atom", "missing mandatory argument at end of input")
		}
		if t.IsBgroup() {
			p.advance()
			body, err := p.parseUntil(func(tk token.Token) bool { return tk.IsEgroup() })
			if err != nil {
				return Arg{}, false, err
			}
			if p.eof() {
				return Arg{}, false, texerr.NewFatal(pos(t), "atom", "unterminated argument group")
			}
			p.advance()
			return Arg{Kind: ObligatoryArg, Body: body}, true, nil
		}
		single := p.advance()
		body, err := (&parser{toks: []token.Token{single}, reg: p.reg}).parseUntil(nil)
		if err != nil {
			return Arg{}, false, err
		}
		return Arg{Kind: ObligatoryArg, Body: body}, true, nil
	}
	return Arg{}, false, nil
}

func pos(t token.Token) texerr.Pos {
	return texerr.Pos{File: t.File, Line: t.Line, Col: t.Col}
}
