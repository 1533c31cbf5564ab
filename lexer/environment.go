package lexer

import (
	"fmt"

	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

// envFrame records one open \begin...\end pair so \end can be matched
// against the innermost open environment and dispatched the same way it
// was opened.
type envFrame struct {
	name    string
	builtin bool
}

// installBuiltinEnvironments registers the structural environment names
// (itemize, enumerate, figure, table, quotation, ...) that the structural
// parser recognizes as Group atoms rather than macro splices.
func installBuiltinEnvironments(l *Lexer) {
	names := []string{
		"document",
		"itemize", "enumerate", "description",
		"figure", "figure*", "table", "table*",
		"tabular", "tabular*", "array",
		"quotation", "quote", "verse",
		"center", "flushleft", "flushright",
		"abstract",
		"titlepage",
		"thebibliography",
		"verbatim",
	}
	for _, n := range names {
		l.builtinEnvs[n] = true
	}
}

// execBegin implements \begin{name}...: a built-in structural name gets a
// pushed scope and a synthetic @begin:name marker for the structural
// parser to fold into a Group atom; a user-defined environment
// parses its arguments and splices start-code with no lexer-level scoping
// (the documented simplification relative to full TeX: a user
// \newenvironment never gets its own group unless its start-code happens to
// contain one).
func (l *Lexer) execBegin(pos Pos) (token.Token, bool, error) {
	nameToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(nameToks)

	if l.builtinEnvs[name] {
		l.pushScope()
		l.envStack = append(l.envStack, envFrame{name: name, builtin: true})
		return token.NewCS("@begin:"+name, false, pos.File, pos.Line, pos.Col), true, nil
	}

	env, ok := l.envs.GetByName(name)
	if !ok {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("unknown environment %q", name))
	}
	args, err := l.parseArgList(env.ArgSpec, pos)
	if err != nil {
		return token.Token{}, false, err
	}
	l.envStack = append(l.envStack, envFrame{name: name, builtin: false})
	if err := l.pushFront(substituteParams(env.StartCode, args)); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}

// execEnd implements \end{name}: it must match the innermost open
// environment by name — a mismatch is an error, the same footing as an
// unbalanced group-close.
func (l *Lexer) execEnd(pos Pos) (token.Token, bool, error) {
	nameToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(nameToks)

	n := len(l.envStack)
	if n == 0 {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("\\end{%s} without matching \\begin", name))
	}
	top := l.envStack[n-1]
	if top.name != name {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("\\end{%s} does not match open \\begin{%s}", name, top.name))
	}
	l.envStack = l.envStack[:n-1]

	if top.builtin {
		if !l.popScope() {
			return token.Token{}, false, texerr.NewFatal(pos, "lexer", "unmatched group-close at \\end")
		}
		return token.NewCS("@end:"+name, false, pos.File, pos.Line, pos.Col), true, nil
	}

	env, ok := l.envs.GetByName(name)
	if !ok {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("unknown environment %q at \\end", name))
	}
	if err := l.pushFront(env.EndCode); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}
