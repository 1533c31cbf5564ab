package lexer_test

import (
	"testing"
	"time"

	"github.com/texfront/texfront/config"
	"github.com/texfront/texfront/lexer"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

func newLexer(t *testing.T, doc string) *lexer.Lexer {
	t.Helper()
	opts := config.Default()
	return lexer.New("<test>", doc, opts, texerr.NewCollector(texerr.GetLogger("test")))
}

func drain(t *testing.T, l *lexer.Lexer) []token.Token {
	t.Helper()
	var out []token.Token
	for {
		tok, err := l.Next()
		if err == lexer.ErrEOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		out = append(out, tok)
	}
}

func detok(toks []token.Token) string {
	return token.Detokenize(toks, '\\')
}

func TestPlainTextTokens(t *testing.T) {
	l := newLexer(t, "ab cd")
	toks := drain(t, l)
	if got := detok(toks); got != "ab cd" {
		t.Fatalf("detok = %q, want %q", got, "ab cd")
	}
}

func TestGroupScoping(t *testing.T) {
	// \x is defined only inside the group; once it closes, \x is undefined
	// again and passes through as a bare control-sequence token.
	l := newLexer(t, "{\\def\\x{in}\\x}\\x")
	toks := drain(t, l)
	if len(toks) == 0 {
		t.Fatalf("expected at least one token")
	}
	last := toks[len(toks)-1]
	if last.Kind != token.ControlSeq || last.Name != "x" || last.Active {
		t.Fatalf("expected trailing undefined \\x token, got %v", last)
	}
	if got := detok(toks); got != "{in}\\x" {
		t.Fatalf("detok = %q, want %q", got, "{in}\\x")
	}
}

func TestDefAndExpand(t *testing.T) {
	l := newLexer(t, "\\def\\greet#1{hello #1!}\\greet{world}")
	toks := drain(t, l)
	if got := detok(toks); got != "hello world!" {
		t.Fatalf("detok = %q, want %q", got, "hello world!")
	}
}

func TestLetAlias(t *testing.T) {
	l := newLexer(t, "\\def\\a{X}\\let\\b=\\a \\b")
	toks := drain(t, l)
	if got := detok(toks); got != "X" {
		t.Fatalf("detok = %q, want %q", got, "X")
	}
}

func TestNewcommandWithOptionalArg(t *testing.T) {
	l := newLexer(t, "\\newcommand{\\greet}[2][hi]{#1, #2!}\\greet{world}\\greet[yo]{world}")
	toks := drain(t, l)
	if got := detok(toks); got != "hi, world!yo, world!" {
		t.Fatalf("detok = %q, want %q", got, "hi, world!yo, world!")
	}
}

func TestConditionalTrueBranch(t *testing.T) {
	l := newLexer(t, "\\iftrue A\\else B\\fi")
	toks := drain(t, l)
	if got := detok(toks); got != "A" {
		t.Fatalf("detok = %q, want %q", got, "A")
	}
}

func TestConditionalFalseBranch(t *testing.T) {
	l := newLexer(t, "\\iffalse A\\else B\\fi")
	toks := drain(t, l)
	if got := detok(toks); got != "B" {
		t.Fatalf("detok = %q, want %q", got, "B")
	}
}

func TestBuiltinEnvironmentMarkers(t *testing.T) {
	l := newLexer(t, "\\begin{itemize}x\\end{itemize}")
	toks := drain(t, l)
	if len(toks) < 2 {
		t.Fatalf("expected at least begin/end markers, got %d tokens", len(toks))
	}
	first, last := toks[0], toks[len(toks)-1]
	if first.Kind != token.ControlSeq || first.Name != "@begin:itemize" {
		t.Fatalf("expected leading @begin:itemize marker, got %v", first)
	}
	if last.Kind != token.ControlSeq || last.Name != "@end:itemize" {
		t.Fatalf("expected trailing @end:itemize marker, got %v", last)
	}
}

func TestNewenvironmentSplicesCode(t *testing.T) {
	l := newLexer(t, "\\newenvironment{loud}{[}{]}\\begin{loud}hi\\end{loud}")
	toks := drain(t, l)
	if got := detok(toks); got != "[hi]" {
		t.Fatalf("detok = %q, want %q", got, "[hi]")
	}
}

func TestVerbReadsRaw(t *testing.T) {
	l := newLexer(t, "\\verb|\\notamacro|")
	toks := drain(t, l)
	if got := detok(toks); got != "\\notamacro" {
		t.Fatalf("detok = %q, want %q", got, "\\notamacro")
	}
}

func TestDatePrimitivesUseConfiguredClock(t *testing.T) {
	fixed := time.Date(2026, time.July, 29, 13, 0, 0, 0, time.UTC)
	opts := config.Default()
	opts.Clock = func() time.Time { return fixed }
	l := lexer.New("<test>", "\\year", opts, texerr.NewCollector(texerr.GetLogger("test")))
	toks := drain(t, l)
	if got := detok(toks); got != "2026" {
		t.Fatalf("detok = %q, want %q", got, "2026")
	}
}

func TestCounterPrimitives(t *testing.T) {
	l := newLexer(t, "\\newcounter{foo}\\setcounter{foo}{3}\\addtocounter{foo}{2}\\value{foo}")
	toks := drain(t, l)
	if got := detok(toks); got != "5" {
		t.Fatalf("detok = %q, want %q", got, "5")
	}
}

func TestUnmatchedEgroupIsFatal(t *testing.T) {
	l := newLexer(t, "}")
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected a fatal error for an unmatched group-close")
	}
}

func TestUnterminatedConditionalIsFatal(t *testing.T) {
	l := newLexer(t, "\\iftrue x")
	if _, err := drainErr(l); err == nil {
		t.Fatalf("expected a fatal error for an unterminated conditional")
	}
}

func TestUnterminatedBegingroupIsFatal(t *testing.T) {
	l := newLexer(t, "\\begingroup x")
	if _, err := drainErr(l); err == nil {
		t.Fatalf("expected a fatal error for an unclosed \\begingroup")
	}
}

func TestMathDelimiterMarkers(t *testing.T) {
	l := newLexer(t, "\\(x\\)")
	toks := drain(t, l)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want open/x/close", len(toks))
	}
	if toks[0].Name != "@texfront@mathopen:(" || toks[2].Name != "@texfront@mathclose:)" {
		t.Fatalf("unexpected delimiter markers: %v / %v", toks[0], toks[2])
	}
}

func TestMismatchedEndIsFatal(t *testing.T) {
	l := newLexer(t, "\\begin{itemize}\\end{enumerate}")
	_, err := drainErr(l)
	if err == nil {
		t.Fatalf("expected a fatal error for a mismatched \\end")
	}
}

func drainErr(l *lexer.Lexer) ([]token.Token, error) {
	var out []token.Token
	for {
		tok, err := l.Next()
		if err == lexer.ErrEOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
}
