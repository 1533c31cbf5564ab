// Package token defines the TeX token model: the alphabet produced by
// the lexer/expander and consumed by the structural parser.
package token

import (
	"fmt"
	"strings"

	"github.com/texfront/texfront/catcode"
)

// Kind distinguishes the three token shapes.
type Kind int

const (
	// Char is a character token carrying (Char, Catcode).
	Char Kind = iota
	// ControlSeq is a control-sequence token carrying (name, active-flag).
	ControlSeq
	// Param is a parameter token carrying (index, nesting-depth).
	Param
)

// Token is a tagged variant. Only the fields relevant to Kind are
// meaningful; zero value elsewhere.
type Token struct {
	Kind Kind

	// Char tokens.
	Rune    rune
	Catcode catcode.Catcode

	// ControlSeq tokens.
	Name   string
	Active bool

	// Param tokens.
	Index int
	Depth int

	// Source position, threaded through for diagnostics.
	File string
	Line int
	Col  int
}

// NewChar builds a character token.
func NewChar(r rune, cc catcode.Catcode, file string, line, col int) Token {
	return Token{Kind: Char, Rune: r, Catcode: cc, File: file, Line: line, Col: col}
}

// NewCS builds a control-sequence token. An active character is represented
// as a one-character-named, Active-flagged control sequence so that catcode
// table and macro table share a single lookup key shape (name, active).
func NewCS(name string, active bool, file string, line, col int) Token {
	return Token{Kind: ControlSeq, Name: name, Active: active, File: file, Line: line, Col: col}
}

// NewParam builds a parameter token (used only inside macro bodies).
func NewParam(index, depth int, file string, line, col int) Token {
	return Token{Kind: Param, Index: index, Depth: depth, File: file, Line: line, Col: col}
}

// Key returns the (name, active) lookup key shared by the macro table, the
// macro-environment table, and the catcode-active lookup.
func (t Token) Key() (string, bool) {
	switch t.Kind {
	case ControlSeq:
		return t.Name, t.Active
	case Char:
		if t.Catcode == catcode.Active {
			return string(t.Rune), true
		}
	}
	return "", false
}

// IsBgroup/IsEgroup/IsSpace are the small predicates the lexer and parser
// both need repeatedly.
func (t Token) IsBgroup() bool { return t.Kind == Char && t.Catcode == catcode.Bgroup }
func (t Token) IsEgroup() bool { return t.Kind == Char && t.Catcode == catcode.Egroup }
func (t Token) IsSpace() bool  { return t.Kind == Char && t.Catcode == catcode.Space }

// IsCS reports whether t is the named, non-active control sequence.
func (t Token) IsCS(name string) bool {
	return t.Kind == ControlSeq && !t.Active && t.Name == name
}

// Equal reports structural equality, ignoring source position: re-lexed
// token streams compare equal modulo whitespace, not modulo position.
func (t Token) Equal(o Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Char:
		return t.Rune == o.Rune && t.Catcode == o.Catcode
	case ControlSeq:
		return t.Name == o.Name && t.Active == o.Active
	case Param:
		return t.Index == o.Index && t.Depth == o.Depth
	}
	return false
}

func (t Token) String() string {
	switch t.Kind {
	case Char:
		return fmt.Sprintf("Char(%q,%s)", t.Rune, t.Catcode)
	case ControlSeq:
		if t.Active {
			return fmt.Sprintf("Active(%q)", t.Name)
		}
		return fmt.Sprintf("CS(%s)", t.Name)
	case Param:
		return fmt.Sprintf("Param(#%d,%d)", t.Index, t.Depth)
	}
	return "?"
}

// Detokenize reproduces the characters that would re-lex into toks, given
// the current escape character: re-lexing Detokenize(toks) and refiltering
// yields the same atom tree modulo whitespace normalisation.
func Detokenize(toks []Token, escape rune) string {
	var b strings.Builder
	for i, t := range toks {
		switch t.Kind {
		case Char:
			b.WriteRune(t.Rune)
		case ControlSeq:
			if t.Active {
				b.WriteString(t.Name)
				continue
			}
			b.WriteRune(escape)
			b.WriteString(t.Name)
			// A control word (letters) needs a terminating space unless
			// followed by a non-letter, so re-lexing doesn't glue it to
			// the next token.
			if len(t.Name) > 0 && isAsciiLetter(rune(t.Name[len(t.Name)-1])) {
				if i+1 < len(toks) {
					nt := toks[i+1]
					if nt.Kind == Char && isAsciiLetter(nt.Rune) {
						b.WriteByte(' ')
					}
				}
			}
		case Param:
			for d := 0; d < t.Depth; d++ {
				b.WriteByte('#')
			}
			b.WriteString(fmt.Sprintf("%d", t.Index))
		}
	}
	return b.String()
}

func isAsciiLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
