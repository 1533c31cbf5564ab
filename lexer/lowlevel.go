package lexer

import (
	"fmt"

	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

func (l *Lexer) curSource() *source {
	if len(l.srcStack) == 0 {
		return nil
	}
	return l.srcStack[len(l.srcStack)-1]
}

// nextRune consumes the next character from the current input, popping
// exhausted spliced files (\input/\include) until one yields a
// character or the whole stack is empty.
func (l *Lexer) nextRune() (rune, bool) {
	for len(l.srcStack) > 0 {
		s := l.curSource()
		if r, ok := s.next(); ok {
			return r, true
		}
		l.srcStack = l.srcStack[:len(l.srcStack)-1]
	}
	return 0, false
}

func (l *Lexer) peekRune() (rune, bool) {
	if s := l.curSource(); s != nil {
		return s.peek()
	}
	return 0, false
}

// pushInput splices name's contents at the current read point, for
// \input/\include: per-file state isolation covers only line
// numbers — catcode and macro state persist globally.
func (l *Lexer) pushInput(name, contents string) {
	l.srcStack = append(l.srcStack, newSource(name, contents))
}

// step performs one iteration of the per-character reading dispatch:
// read one character, consult its catcode, and either emit a token,
// consume silently (comments, ignored characters), or trigger expansion
// (pushed onto the pushback queue, handled by the caller's loop).
func (l *Lexer) step() (token.Token, bool, error) {
	startLine, startCol := 0, 0
	if s := l.curSource(); s != nil {
		startLine, startCol = s.line, s.col
	}
	file := ""
	if s := l.curSource(); s != nil {
		file = s.file
	}

	r, ok := l.nextRune()
	if !ok {
		return token.Token{}, false, ErrEOF
	}
	cc := l.cats.Of(r)

	switch cc {
	case catcode.Escape:
		name, active := l.readControlSequenceName()
		if l.expandOff > 0 {
			return token.NewCS(name, active, file, startLine, startCol), true, nil
		}
		return l.dispatchControlSequence(name, active, file, startLine, startCol)

	case catcode.Active:
		if l.expandOff > 0 {
			return token.NewCS(string(r), true, file, startLine, startCol), true, nil
		}
		return l.dispatchControlSequence(string(r), true, file, startLine, startCol)

	case catcode.Bgroup:
		if l.expandOff == 0 {
			l.pushScope()
		}
		return token.NewChar(r, catcode.Bgroup, file, startLine, startCol), true, nil

	case catcode.Egroup:
		if l.expandOff == 0 {
			if !l.popScope() {
				return token.Token{}, false, l.fatal("unmatched group-close '}'")
			}
		}
		return token.NewChar(r, catcode.Egroup, file, startLine, startCol), true, nil

	case catcode.Comment:
		l.skipLineComment()
		return token.Token{}, false, nil

	case catcode.Eol:
		return l.handleEol(r, file, startLine, startCol)

	case catcode.Space:
		l.collapseSpaces()
		return token.NewChar(' ', catcode.Space, file, startLine, startCol), true, nil

	case catcode.ParamPrefix:
		// Only while capturing a macro's parameter text or body (paramMode
		// > 0, toggled via rawCapture) does '#' introduce a Param token;
		// otherwise it behaves as Other.
		if l.paramMode > 0 {
			if r2, ok := l.peekRune(); ok {
				if l.cats.Of(r2) == catcode.ParamPrefix {
					l.nextRune()
					return token.NewChar('#', catcode.Other, file, startLine, startCol), true, nil
				}
				if r2 >= '1' && r2 <= '9' {
					l.nextRune()
					return token.NewParam(int(r2-'0'), 1, file, startLine, startCol), true, nil
				}
			}
		}
		return token.NewChar(r, catcode.Other, file, startLine, startCol), true, nil

	case catcode.Ignored:
		return token.Token{}, false, nil

	case catcode.Invalid:
		l.warn.Warnf(l.pos(), "lexer", "invalid character %q dropped", r)
		return token.Token{}, false, nil

	default: // Letter, Other, MathShift, Supscript, Subscript, AlignTab
		return token.NewChar(r, cc, file, startLine, startCol), true, nil
	}
}

// readControlSequenceName reads the name following an Escape character: a
// single non-letter character, or a maximal run of Letter characters
// (optionally followed by collapsing trailing space).
func (l *Lexer) readControlSequenceName() (string, bool) {
	r, ok := l.peekRune()
	if !ok {
		return "", false
	}
	if l.cats.Of(r) != catcode.Letter {
		l.nextRune()
		return string(r), false
	}
	name := ""
	for {
		r, ok := l.peekRune()
		if !ok || l.cats.Of(r) != catcode.Letter {
			break
		}
		l.nextRune()
		name += string(r)
	}
	// Collapse a single run of following spaces (TeX's control-word rule).
	for {
		r, ok := l.peekRune()
		if !ok || l.cats.Of(r) != catcode.Space {
			break
		}
		l.nextRune()
	}
	return name, false
}

// skipLineComment discards a '%' comment through end of line; the leading
// spaces of the following line are collapsed by the normal Space handling
// once reading resumes.
func (l *Lexer) skipLineComment() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		if l.cats.Of(r) == catcode.Eol {
			return
		}
		l.nextRune()
	}
}

// handleEol implements TeX's two-newline rule: within a run, a
// single newline becomes a Space token; two or more (a blank line, possibly
// with only spaces between the newlines) emit a single \par control
// sequence instead.
func (l *Lexer) handleEol(first rune, file string, line, col int) (token.Token, bool, error) {
	sawSecondEol := false
	for {
		r, ok := l.peekRune()
		if !ok {
			break
		}
		cc := l.cats.Of(r)
		if cc == catcode.Space {
			l.nextRune()
			continue
		}
		if cc == catcode.Eol {
			l.nextRune()
			sawSecondEol = true
			continue
		}
		break
	}
	if sawSecondEol {
		return token.NewCS("par", false, file, line, col), true, nil
	}
	return token.NewChar(' ', catcode.Space, file, line, col), true, nil
}

func (l *Lexer) collapseSpaces() {
	for {
		r, ok := l.peekRune()
		if !ok || l.cats.Of(r) != catcode.Space {
			return
		}
		l.nextRune()
	}
}

func (l *Lexer) fatal(msg string) error {
	return l.fatalf("%s", msg)
}

func (l *Lexer) fatalf(format string, args ...any) error {
	return texerr.NewFatal(l.pos(), "lexer", fmt.Sprintf(format, args...))
}
