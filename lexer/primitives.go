package lexer

import (
	"fmt"
	"strconv"

	"github.com/texfront/texfront/catcode"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

// condFrame is one entry of the conditional-nesting stack. A frame exists on
// the stack only while its true-branch is being (or was) read normally; an
// \iffalse whose false-branch runs straight to \fi never pushes one, and
// execElse pops the frame itself before raw-skipping to the matching \fi,
// which is consumed by the skip and never reaches execFi.
type condFrame struct {
	active bool
}

// installPrimitives populates l's macro table with the definitional and
// control primitives, plus the implicit-char bindings \bgroup/\egroup.
// The table is per-Lexer because primitives close over l via
// execPrimitive's switch, but the set of names is fixed.
func installPrimitives(l *Lexer) {
	prim := func(name string) { l.macros.Set(name, false, &MacroCommand{Kind: PrimitiveKind, Primitive: name}) }

	prim("begingroup")
	prim("endgroup")
	prim("begin")
	prim("end")

	prim("def")
	prim("let")
	prim("catcode")
	prim("newcommand")
	prim("renewcommand")
	prim("providecommand")
	prim("DeclareRobustCommand")
	prim("newenvironment")
	prim("renewenvironment")
	prim("NewDocumentCommand")
	prim("RenewDocumentCommand")
	prim("ProvideDocumentCommand")
	prim("DeclareDocumentCommand")
	prim("NewDocumentEnvironment")
	prim("RenewDocumentEnvironment")
	prim("ProvideDocumentEnvironment")
	prim("DeclareDocumentEnvironment")

	prim("iftrue")
	prim("iffalse")
	prim("else")
	prim("fi")
	prim("IfBooleanTF")
	prim("IfNoValueTF")

	prim("input")
	prim("include")

	prim("year")
	prim("month")
	prim("day")
	prim("time")

	prim("meaning")
	prim("char")
	prim("number")
	prim("undefined")

	prim("(")
	prim(")")
	prim("[")
	prim("]")

	prim("newcounter")
	prim("setcounter")
	prim("addtocounter")
	prim("value")
	prim("verb")

	l.macros.Set("bgroup", false, &MacroCommand{Kind: ImplicitCharKind, ImplicitRune: '{', ImplicitCat: int(catcode.Bgroup)})
	l.macros.Set("egroup", false, &MacroCommand{Kind: ImplicitCharKind, ImplicitRune: '}', ImplicitCat: int(catcode.Egroup)})
}

// execPrimitive runs the named primitive. It returns (tok, emit, err) in the
// same shape as dispatchControlSequence: emit=false and a nil token mean
// "nothing to emit this round, the caller's loop should request another
// token" (e.g. after pushFront splicing, or after a pure side effect like
// \def).
func (l *Lexer) execPrimitive(name string, pos Pos) (token.Token, bool, error) {
	switch name {
	case "begingroup", "endgroup":
		return l.execExplicitGroup(name, pos)
	case "begin":
		return l.execBegin(pos)
	case "end":
		return l.execEnd(pos)

	case "def":
		return l.execDef(pos)
	case "let":
		return l.execLet(pos)
	case "catcode":
		return l.execCatcode(pos)

	case "newcommand", "renewcommand", "providecommand", "DeclareRobustCommand":
		return l.execNewcommand(name, pos)
	case "newenvironment", "renewenvironment":
		return l.execNewenvironment(name, pos)

	case "NewDocumentCommand", "RenewDocumentCommand", "ProvideDocumentCommand", "DeclareDocumentCommand":
		return l.execXparseCommand(name, pos)
	case "NewDocumentEnvironment", "RenewDocumentEnvironment", "ProvideDocumentEnvironment", "DeclareDocumentEnvironment":
		return l.execXparseEnvironment(name, pos)

	case "iftrue":
		return l.execIf(true, pos)
	case "iffalse":
		return l.execIf(false, pos)
	case "else":
		return l.execElse(pos)
	case "fi":
		return l.execFi(pos)
	case "IfBooleanTF":
		return l.execIfBooleanTF(pos)
	case "IfNoValueTF":
		return l.execIfNoValueTF(pos)

	case "input", "include":
		return l.execInputInclude(pos)

	case "year", "month", "day", "time":
		return l.execDateField(name, pos)

	case "meaning":
		return l.execMeaning(pos)
	case "char":
		return l.execChar(pos)
	case "number":
		return l.execNumber(pos)
	case "undefined":
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\undefined invoked")

	case "(", "[":
		return token.NewCS("@texfront@mathopen:"+name, false, pos.File, pos.Line, pos.Col), true, nil
	case ")", "]":
		return token.NewCS("@texfront@mathclose:"+name, false, pos.File, pos.Line, pos.Col), true, nil

	case "newcounter":
		return l.execNewcounter(pos)
	case "setcounter":
		return l.execSetcounter(pos)
	case "addtocounter":
		return l.execAddtocounter(pos)
	case "value":
		return l.execValue(pos)
	case "verb":
		return l.execVerb(pos)
	}
	return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("unimplemented primitive \\%s", name))
}

// execExplicitGroup implements \begingroup/\endgroup: a group boundary with
// no associated delimiter token, otherwise identical to Bgroup/Egroup.
func (l *Lexer) execExplicitGroup(name string, pos Pos) (token.Token, bool, error) {
	if name == "begingroup" {
		l.pushScope()
		return token.Token{}, false, nil
	}
	if !l.popScope() {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\endgroup without matching \\begingroup")
	}
	return token.Token{}, false, nil
}

// ---- \def, \let, \catcode ----------------------------------------------

// execDef implements \def<cs><param text>{<body>}: the name, parameter
// text, and body are all read with expansion suspended.
func (l *Lexer) execDef(pos Pos) (token.Token, bool, error) {
	var name string
	var active bool
	var argSpec []Arg
	var body []token.Token
	err := l.rawCapture(true, func() error {
		t, err := l.consume()
		if err != nil {
			return texerr.Wrap(pos, "lexer", err)
		}
		if t.Kind != token.ControlSeq {
			return texerr.NewFatal(pos, "lexer", "\\def requires a control sequence name")
		}
		name, active = t.Name, t.Active

		spec, err := l.scanParamText()
		if err != nil {
			return err
		}
		argSpec = spec

		b, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return token.Token{}, false, err
	}
	l.macros.Set(name, active, &MacroCommand{Kind: UserMacroKind, Name: name, Active: active, ArgSpec: argSpec, Body: body})
	return token.Token{}, false, nil
}

// scanParamText reads the raw parameter text between a \def name and its
// opening brace, translating each #n it finds into a Mandatory Arg (TeX's
// plain \def parameter text can also contain literal delimiter tokens
// between parameters; we support the common #1#2... run, which is all the
// LaTeX-profile authoring surface requires).
func (l *Lexer) scanParamText() ([]Arg, error) {
	var spec []Arg
	for {
		t, err := l.peekN(0)
		if err != nil {
			return nil, err
		}
		if t.IsBgroup() {
			return spec, nil
		}
		l.consume()
		if t.Kind == token.Param {
			spec = append(spec, Arg{Kind: Mandatory})
		}
		// Any other raw token in the parameter text is a delimiter we
		// don't model structurally; dropping it keeps scanning simple and
		// matches the LaTeX-profile subset this front end targets.
	}
}

// scanBracedBody consumes the opening Bgroup (not yet read) and returns the
// raw tokens up to the matching Egroup, without braces.
func (l *Lexer) scanBracedBody() ([]token.Token, error) {
	t, err := l.consume()
	if err != nil {
		return nil, err
	}
	if !t.IsBgroup() {
		return nil, texerr.NewFatal(l.pos(), "lexer", "expected '{' to start macro body")
	}
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

// execLet implements \let<cs>=<token> (optional '=' and one optional
// leading space, per TeX): the target becomes an alias that behaves exactly
// like the source at the time of the \let (a shallow copy of the current
// binding, or an ImplicitCharKind for a plain character).
func (l *Lexer) execLet(pos Pos) (token.Token, bool, error) {
	var name string
	var active bool
	var bound MacroCommand
	err := l.rawCapture(false, func() error {
		t, err := l.consume()
		if err != nil {
			return texerr.Wrap(pos, "lexer", err)
		}
		if t.Kind != token.ControlSeq {
			return texerr.NewFatal(pos, "lexer", "\\let requires a control sequence name")
		}
		name, active = t.Name, t.Active

		eq, err := l.peekN(0)
		if err != nil {
			return err
		}
		if eq.Kind == token.Char && eq.Rune == '=' {
			l.consume()
		}
		sp, err := l.peekN(0)
		if err != nil {
			return err
		}
		if sp.IsSpace() {
			l.consume()
		}

		src, err := l.consume()
		if err != nil {
			return texerr.Wrap(pos, "lexer", err)
		}
		switch src.Kind {
		case token.ControlSeq:
			if cmd, ok := l.macros.Get(src.Name, src.Active); ok {
				bound = *cmd
			} else {
				bound = MacroCommand{Kind: UserMacroKind, Name: src.Name, Active: src.Active}
			}
		case token.Char:
			bound = MacroCommand{Kind: ImplicitCharKind, ImplicitRune: src.Rune, ImplicitCat: int(src.Catcode)}
		default:
			return texerr.NewFatal(l.pos(), "lexer", "\\let source must be a control sequence or character")
		}
		return nil
	})
	if err != nil {
		return token.Token{}, false, err
	}
	cp := bound
	l.macros.Set(name, active, &cp)
	return token.Token{}, false, nil
}

// execCatcode implements \catcode<char>=<number>: sets the catcode of char
// in the current (innermost) scope.
func (l *Lexer) execCatcode(pos Pos) (token.Token, bool, error) {
	ch, err := l.consume()
	if err != nil {
		return token.Token{}, false, texerr.Wrap(pos, "lexer", err)
	}
	if ch.Kind != token.Char {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\catcode requires a character")
	}
	if err := l.skipEquals(); err != nil {
		return token.Token{}, false, err
	}
	numToks, err := l.readDigits()
	if err != nil {
		return token.Token{}, false, err
	}
	n, convErr := strconv.Atoi(string(numToks))
	if convErr != nil || !catcode.Valid(catcode.Catcode(n)) {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "invalid \\catcode value")
	}
	l.cats.Set(ch.Rune, catcode.Catcode(n))
	return token.Token{}, false, nil
}

func (l *Lexer) skipEquals() error {
	t, err := l.peekN(0)
	if err != nil {
		return err
	}
	if t.Kind == token.Char && t.Rune == '=' {
		l.consume()
	}
	return nil
}

func (l *Lexer) readDigits() (string, error) {
	var out []rune
	for {
		t, err := l.peekN(0)
		if err != nil {
			if len(out) > 0 {
				return string(out), nil
			}
			return "", err
		}
		if t.Kind != token.Char || t.Rune < '0' || t.Rune > '9' {
			break
		}
		l.consume()
		out = append(out, t.Rune)
	}
	if len(out) == 0 {
		return "", texerr.NewFatal(l.pos(), "lexer", "expected a number")
	}
	return string(out), nil
}

// ---- \newcommand family / \newenvironment family -----------------------

// clashMode is one of the four definition modes: New errors on a
// duplicate, Renew errors if absent, Provide silently skips if defined,
// Declare is unconditional.
type clashMode int

const (
	clashNew clashMode = iota
	clashRenew
	clashProvide
	clashDeclare
)

func clashModeOf(primitive string) clashMode {
	switch primitive {
	case "newcommand", "newenvironment", "NewDocumentCommand", "NewDocumentEnvironment":
		return clashNew
	case "renewcommand", "renewenvironment", "RenewDocumentCommand", "RenewDocumentEnvironment":
		return clashRenew
	case "providecommand", "ProvideDocumentCommand", "ProvideDocumentEnvironment":
		return clashProvide
	case "DeclareRobustCommand", "DeclareDocumentCommand", "DeclareDocumentEnvironment":
		return clashDeclare
	}
	return clashDeclare
}

// execNewcommand implements \newcommand{\name}[nargs][default]{body} and its
// renew/provide/Declare siblings: clash behaviour is governed by
// mode, argument count by an optional [nargs] and optional [default] that
// make the first argument OptionalGroup-shaped when default is present.
func (l *Lexer) execNewcommand(primitive string, pos Pos) (token.Token, bool, error) {
	name, active, err := l.readCommandNameArg(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	if err := l.checkClash(clashModeOf(primitive), name, active, pos); err == errSkip {
		return l.skipRestOfDefinition(pos)
	} else if err != nil {
		return token.Token{}, false, err
	}

	nargs, hasDefault, def, err := l.readBracketCountAndDefault(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	spec := starArgSpecFromCount(nargs, hasDefault, def)

	var body []token.Token
	capErr := l.rawCapture(true, func() error {
		b, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if capErr != nil {
		return token.Token{}, false, capErr
	}

	l.macros.Set(name, active, &MacroCommand{
		Kind: UserMacroKind, Name: name, Active: active, ArgSpec: spec, Body: body,
		Robust: primitive == "DeclareRobustCommand",
	})
	return token.Token{}, false, nil
}

var errSkip = fmt.Errorf("lexer: skip (provide-mode clash)")

// checkClash enforces the definition-mode clash table. It returns errSkip when the
// caller (provide mode, target already defined) should consume and discard
// the rest of the definition without installing anything.
func (l *Lexer) checkClash(mode clashMode, name string, active bool, pos Pos) error {
	_, defined := l.macros.Get(name, active)
	switch mode {
	case clashNew:
		if defined {
			return texerr.NewFatal(pos, "lexer", fmt.Sprintf("\\newcommand: \\%s already defined", name))
		}
	case clashRenew:
		if !defined {
			return texerr.NewFatal(pos, "lexer", fmt.Sprintf("\\renewcommand: \\%s not defined", name))
		}
	case clashProvide:
		if defined {
			return errSkip
		}
	case clashDeclare:
		// unconditional
	}
	return nil
}

// skipRestOfDefinition discards a trailing [..][..]{..} run (for provide
// mode skipping an existing definition) without interpreting it.
func (l *Lexer) skipRestOfDefinition(pos Pos) (token.Token, bool, error) {
	err := l.rawCapture(true, func() error {
		for {
			t, err := l.peekN(0)
			if err != nil {
				return err
			}
			if t.Kind == token.Char && t.Rune == '[' {
				if _, err := l.parseDelimited(
					token.NewChar('[', catcode.Other, "", 0, 0),
					token.NewChar(']', catcode.Other, "", 0, 0),
					nil, false,
				); err != nil {
					return err
				}
				continue
			}
			break
		}
		_, err := l.scanBracedBody()
		return err
	})
	return token.Token{}, false, err
}

// readCommandNameArg reads a {\name} (or bare \name) argument naming the
// command being (re)defined. Read with expansion suspended: for
// \renewcommand/\ProvideDocumentCommand the target is, by definition,
// already a macro, and expanding it here would run it instead of naming it.
func (l *Lexer) readCommandNameArg(pos Pos) (string, bool, error) {
	var toks []token.Token
	err := l.rawCapture(false, func() error {
		t, err := l.parseMandatoryArg()
		toks = t
		return err
	})
	if err != nil {
		return "", false, err
	}
	if len(toks) != 1 || toks[0].Kind != token.ControlSeq {
		return "", false, texerr.NewFatal(pos, "lexer", "expected a single control sequence name")
	}
	return toks[0].Name, toks[0].Active, nil
}

// readBracketCountAndDefault reads the optional [<nargs>][<default>] pair
// common to \newcommand and \newenvironment.
func (l *Lexer) readBracketCountAndDefault(pos Pos) (nargs int, hasDefault bool, def []token.Token, err error) {
	bracket := token.NewChar('[', catcode.Other, "", 0, 0)
	closeBracket := token.NewChar(']', catcode.Other, "", 0, 0)

	t, err := l.peekN(0)
	if err != nil {
		return 0, false, nil, err
	}
	if !(t.Kind == token.Char && t.Rune == '[') {
		return 0, false, nil, nil
	}
	nargsToks, err := l.parseDelimited(bracket, closeBracket, nil, false)
	if err != nil {
		return 0, false, nil, err
	}
	n, convErr := strconv.Atoi(tokensToPlainString(nargsToks))
	if convErr != nil {
		return 0, false, nil, texerr.NewFatal(pos, "lexer", "malformed argument count")
	}
	nargs = n

	t2, err := l.peekN(0)
	if err != nil {
		return 0, false, nil, err
	}
	if t2.Kind == token.Char && t2.Rune == '[' {
		defToks, err := l.parseDelimited(bracket, closeBracket, nil, false)
		if err != nil {
			return 0, false, nil, err
		}
		return nargs, true, defToks, nil
	}
	return nargs, false, nil, nil
}

func tokensToPlainString(toks []token.Token) string {
	var out []rune
	for _, t := range toks {
		if t.Kind == token.Char {
			out = append(out, t.Rune)
		}
	}
	return string(out)
}

// starArgSpecFromCount builds the Arg list for an \newcommand-style [nargs]
// declaration: the first argument is OptionalGroup-shaped when a [default]
// was given, every remaining argument is Mandatory.
func starArgSpecFromCount(nargs int, hasDefault bool, def []token.Token) []Arg {
	spec := make([]Arg, 0, nargs)
	start := 0
	if hasDefault && nargs > 0 {
		spec = append(spec, Arg{
			Kind: OptionalGroup,
			Open: token.NewChar('[', catcode.Other, "", 0, 0), Close: token.NewChar(']', catcode.Other, "", 0, 0),
			Default: def, HasDefault: true,
		})
		start = 1
	}
	for i := start; i < nargs; i++ {
		spec = append(spec, Arg{Kind: Mandatory})
	}
	return spec
}

// execNewenvironment implements \newenvironment{name}[nargs][default]{begin}{end}.
func (l *Lexer) execNewenvironment(primitive string, pos Pos) (token.Token, bool, error) {
	nameToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(nameToks)

	mode := clashModeOf(primitive)
	_, defined := l.envs.GetByName(name)
	switch mode {
	case clashNew:
		if defined {
			return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("\\newenvironment: %s already defined", name))
		}
	case clashRenew:
		if !defined {
			return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("\\renewenvironment: %s not defined", name))
		}
	}

	nargs, hasDefault, def, err := l.readBracketCountAndDefault(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	spec := starArgSpecFromCount(nargs, hasDefault, def)

	var startCode, endCode []token.Token
	capErr := l.rawCapture(true, func() error {
		sc, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		startCode = sc
		ec, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		endCode = ec
		return nil
	})
	if capErr != nil {
		return token.Token{}, false, capErr
	}

	l.envs.Set(name, &MacroEnv{NameTokens: nameToks, ArgSpec: spec, StartCode: startCode, EndCode: endCode})
	return token.Token{}, false, nil
}

// ---- xparse argspec mini-language ---------------------------------------

// parseXparseArgSpec reads an xparse argument-specification string (the
// mandatory {spec} argument of \NewDocumentCommand and friends) and
// translates its letters into Arg entries. Only the subset the
// LaTeX-profile grammar exercises is supported: m (Mandatory), o
// (OptionalGroup [..], no default), O{default} (OptionalGroup with
// default), s (OptionalToken '*'). v and b are accepted but simplified to
// Mandatory, since this front end never needs xparse's verbatim/body
// argument-catcode tricks.
func parseXparseArgSpec(spec string) []Arg {
	var out []Arg
	i := 0
	for i < len(spec) {
		c := spec[i]
		i++
		switch c {
		case ' ':
			continue
		case 'm':
			out = append(out, Arg{Kind: Mandatory})
		case 'v', 'b':
			out = append(out, Arg{Kind: Mandatory})
		case 's':
			out = append(out, Arg{Kind: OptionalToken, Tok: token.NewChar('*', catcode.Other, "", 0, 0)})
		case 'o':
			out = append(out, Arg{
				Kind: OptionalGroup,
				Open: token.NewChar('[', catcode.Other, "", 0, 0), Close: token.NewChar(']', catcode.Other, "", 0, 0),
			})
		case 'O':
			if i < len(spec) && spec[i] == '{' {
				depth := 1
				j := i + 1
				for j < len(spec) && depth > 0 {
					if spec[j] == '{' {
						depth++
					} else if spec[j] == '}' {
						depth--
					}
					j++
				}
				defLit := spec[i+1 : j-1]
				var def []token.Token
				for _, r := range defLit {
					def = append(def, token.NewChar(r, catcode.Other, "", 0, 0))
				}
				i = j
				out = append(out, Arg{
					Kind: OptionalGroup,
					Open: token.NewChar('[', catcode.Other, "", 0, 0), Close: token.NewChar(']', catcode.Other, "", 0, 0),
					Default: def, HasDefault: true,
				})
			}
		}
	}
	return out
}

// execXparseCommand implements \NewDocumentCommand{\name}{argspec}{body}
// and its Renew/Provide/Declare siblings.
func (l *Lexer) execXparseCommand(primitive string, pos Pos) (token.Token, bool, error) {
	name, active, err := l.readCommandNameArg(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	if err := l.checkClash(clashModeOf(primitive), name, active, pos); err == errSkip {
		err2 := l.rawCapture(true, func() error {
			if _, err := l.parseMandatoryArg(); err != nil {
				return err
			}
			_, err := l.scanBracedBody()
			return err
		})
		return token.Token{}, false, err2
	} else if err != nil {
		return token.Token{}, false, err
	}

	specToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	spec := parseXparseArgSpec(tokensToPlainString(specToks))

	var body []token.Token
	capErr := l.rawCapture(true, func() error {
		b, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if capErr != nil {
		return token.Token{}, false, capErr
	}

	l.macros.Set(name, active, &MacroCommand{Kind: UserMacroKind, Name: name, Active: active, ArgSpec: spec, Body: body})
	return token.Token{}, false, nil
}

// execXparseEnvironment implements \NewDocumentEnvironment{name}{argspec}{begin}{end}.
func (l *Lexer) execXparseEnvironment(primitive string, pos Pos) (token.Token, bool, error) {
	nameToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(nameToks)

	mode := clashModeOf(primitive)
	_, defined := l.envs.GetByName(name)
	if mode == clashNew && defined {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("environment %s already defined", name))
	}
	if mode == clashRenew && !defined {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("environment %s not defined", name))
	}
	if mode == clashProvide && defined {
		err := l.rawCapture(true, func() error {
			if _, err := l.parseMandatoryArg(); err != nil {
				return err
			}
			if _, err := l.scanBracedBody(); err != nil {
				return err
			}
			_, err := l.scanBracedBody()
			return err
		})
		return token.Token{}, false, err
	}

	specToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	spec := parseXparseArgSpec(tokensToPlainString(specToks))

	var startCode, endCode []token.Token
	capErr := l.rawCapture(true, func() error {
		sc, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		startCode = sc
		ec, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		endCode = ec
		return nil
	})
	if capErr != nil {
		return token.Token{}, false, capErr
	}

	l.envs.Set(name, &MacroEnv{NameTokens: nameToks, ArgSpec: spec, StartCode: startCode, EndCode: endCode})
	return token.Token{}, false, nil
}

// ---- conditionals --------------------------------------------------------

// execIf pushes a condFrame only when its true-branch is (or becomes, via
// \else) the branch being read normally; an \iffalse whose false-branch
// runs straight to \fi with no \else never pushes one, since there is
// nothing left for execFi to close — the \fi was already consumed raw by
// the skip. Nested \if../\fi pairs inside a skipped branch are skipped
// whole.
func (l *Lexer) execIf(cond bool, pos Pos) (token.Token, bool, error) {
	if cond {
		l.condStack = append(l.condStack, condFrame{active: true})
		return token.Token{}, false, nil
	}
	stoppedAtElse, err := l.skipToElseOrFi(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	if stoppedAtElse {
		l.condStack = append(l.condStack, condFrame{active: true})
	}
	return token.Token{}, false, nil
}

// execElse only ever fires while reading a true-branch normally (a false
// branch's \else, if any, was already consumed raw by execIf's skip). It
// pops the open frame and skips the else-branch straight through to \fi —
// that \fi is consumed raw too, so no frame remains for execFi to close.
func (l *Lexer) execElse(pos Pos) (token.Token, bool, error) {
	n := len(l.condStack)
	if n == 0 {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\else without matching \\if")
	}
	l.condStack = l.condStack[:n-1]
	if err := l.skipToFi(pos); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}

// execFi closes a frame still open because its true-branch ran to \fi with
// no intervening \else.
func (l *Lexer) execFi(pos Pos) (token.Token, bool, error) {
	n := len(l.condStack)
	if n == 0 {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\fi without matching \\if")
	}
	l.condStack = l.condStack[:n-1]
	return token.Token{}, false, nil
}

// skipToElseOrFi discards raw tokens (expansion suspended, so nested
// \if../\fi are recognized by name rather than executed) until a matching
// \else or \fi at the same nesting depth, reporting which one was found.
func (l *Lexer) skipToElseOrFi(pos Pos) (bool, error) {
	return l.skipConditionalBody(pos, true)
}

func (l *Lexer) skipToFi(pos Pos) error {
	_, err := l.skipConditionalBody(pos, false)
	return err
}

// skipConditionalBody is the shared raw-skip helper; stopAtElse controls
// whether an \else at depth 0 also terminates the skip, and its bool
// result reports whether it was an \else (true) or a \fi (false) that
// stopped it.
func (l *Lexer) skipConditionalBody(pos Pos, stopAtElse bool) (bool, error) {
	depth := 0
	stoppedAtElse := false
	err := l.rawCapture(false, func() error {
		for {
			t, err := l.consume()
			if err != nil {
				return texerr.Wrap(pos, "lexer", err)
			}
			if t.Kind != token.ControlSeq {
				continue
			}
			switch {
			case isIfPrimitive(t.Name):
				depth++
			case t.Name == "fi":
				if depth == 0 {
					return nil
				}
				depth--
			case t.Name == "else" && depth == 0 && stopAtElse:
				stoppedAtElse = true
				return nil
			}
		}
	})
	return stoppedAtElse, err
}

func isIfPrimitive(name string) bool {
	return name == "iftrue" || name == "iffalse"
}

// execIfBooleanTF and execIfNoValueTF implement xparse's sentinel-matching
// conditionals: each reads the sentinel-bearing argument, then the
// true-branch and false-branch bodies (raw), splicing the taken branch.
func (l *Lexer) execIfBooleanTF(pos Pos) (token.Token, bool, error) {
	return l.execSentinelTF(pos, func(toks []token.Token) bool { return IsBooleanTrue(toks) })
}

func (l *Lexer) execIfNoValueTF(pos Pos) (token.Token, bool, error) {
	return l.execSentinelTF(pos, func(toks []token.Token) bool { return IsNoValue(toks) })
}

func (l *Lexer) execSentinelTF(pos Pos, match func([]token.Token) bool) (token.Token, bool, error) {
	toks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	var trueBody, falseBody []token.Token
	capErr := l.rawCapture(true, func() error {
		tb, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		trueBody = tb
		fb, err := l.scanBracedBody()
		if err != nil {
			return err
		}
		falseBody = fb
		return nil
	})
	if capErr != nil {
		return token.Token{}, false, capErr
	}
	if match(toks) {
		if err := l.pushFront(trueBody); err != nil {
			return token.Token{}, false, err
		}
	} else {
		if err := l.pushFront(falseBody); err != nil {
			return token.Token{}, false, err
		}
	}
	return token.Token{}, false, nil
}

// ---- \input / \include ---------------------------------------------------

func (l *Lexer) execInputInclude(pos Pos) (token.Token, bool, error) {
	toks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(toks)
	contents, loadErr := l.opts.LoadFile(name)
	if loadErr != nil {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("cannot open %q: %v", name, loadErr))
	}
	l.log.Debugf("splicing %q into the input stream", name)
	l.pushInput(name, contents)
	return token.Token{}, false, nil
}

// ---- date / introspection primitives -------------------------------------

func (l *Lexer) execDateField(name string, pos Pos) (token.Token, bool, error) {
	now := l.opts.Now()
	var n int
	switch name {
	case "year":
		n = now.Year()
	case "month":
		n = int(now.Month())
	case "day":
		n = now.Day()
	case "time":
		n = now.Hour()*60 + now.Minute()
	}
	if err := l.pushFront(digitTokens(n, pos)); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}

func digitTokens(n int, pos Pos) []token.Token {
	s := strconv.Itoa(n)
	out := make([]token.Token, 0, len(s))
	for _, r := range s {
		out = append(out, token.NewChar(r, catcode.Other, pos.File, pos.Line, pos.Col))
	}
	return out
}

func (l *Lexer) execMeaning(pos Pos) (token.Token, bool, error) {
	var raw token.Token
	err := l.rawCapture(false, func() error {
		t, err := l.consume()
		if err != nil {
			return err
		}
		raw = t
		return nil
	})
	if err != nil {
		return token.Token{}, false, texerr.Wrap(pos, "lexer", err)
	}
	var s string
	switch raw.Kind {
	case token.ControlSeq:
		if cmd, ok := l.macros.Get(raw.Name, raw.Active); ok {
			s = meaningOf(cmd)
		} else {
			s = "undefined"
		}
	default:
		s = raw.String()
	}
	out := make([]token.Token, 0, len(s))
	for _, r := range s {
		out = append(out, token.NewChar(r, catcode.Other, pos.File, pos.Line, pos.Col))
	}
	if err := l.pushFront(out); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}

func meaningOf(cmd *MacroCommand) string {
	switch cmd.Kind {
	case PrimitiveKind:
		return "primitive \\" + cmd.Primitive
	case ImplicitCharKind:
		return fmt.Sprintf("the character %c", cmd.ImplicitRune)
	default:
		return "macro:->" + token.Detokenize(cmd.Body, '\\')
	}
}

func (l *Lexer) execChar(pos Pos) (token.Token, bool, error) {
	digits, err := l.readDigits()
	if err != nil {
		return token.Token{}, false, texerr.Wrap(pos, "lexer", err)
	}
	n, convErr := strconv.Atoi(digits)
	if convErr != nil {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "malformed \\char argument")
	}
	return token.NewChar(rune(n), catcode.Other, pos.File, pos.Line, pos.Col), true, nil
}

func (l *Lexer) execNumber(pos Pos) (token.Token, bool, error) {
	digits, err := l.readDigits()
	if err != nil {
		return token.Token{}, false, texerr.Wrap(pos, "lexer", err)
	}
	var out []token.Token
	for _, r := range digits {
		out = append(out, token.NewChar(r, catcode.Other, pos.File, pos.Line, pos.Col))
	}
	if err := l.pushFront(out); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}

// ---- counters and \verb --------------------------------------------------

func (l *Lexer) execNewcounter(pos Pos) (token.Token, bool, error) {
	toks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(toks)
	if _, ok := l.counters[name]; ok {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("counter %q already defined", name))
	}
	l.counters[name] = 0
	return token.Token{}, false, nil
}

func (l *Lexer) execSetcounter(pos Pos) (token.Token, bool, error) {
	name, n, err := l.readCounterNameAndNumber(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	l.counters[name] = n
	return token.Token{}, false, nil
}

func (l *Lexer) execAddtocounter(pos Pos) (token.Token, bool, error) {
	name, n, err := l.readCounterNameAndNumber(pos)
	if err != nil {
		return token.Token{}, false, err
	}
	l.counters[name] += n
	return token.Token{}, false, nil
}

func (l *Lexer) readCounterNameAndNumber(pos Pos) (string, int, error) {
	nameToks, err := l.parseMandatoryArg()
	if err != nil {
		return "", 0, err
	}
	name := tokensToPlainString(nameToks)
	if _, ok := l.counters[name]; !ok {
		return "", 0, texerr.NewFatal(pos, "lexer", fmt.Sprintf("unknown counter %q", name))
	}
	numToks, err := l.parseMandatoryArg()
	if err != nil {
		return "", 0, err
	}
	s := tokensToPlainString(numToks)
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return "", 0, texerr.NewFatal(pos, "lexer", "malformed counter value")
	}
	return name, n, nil
}

func (l *Lexer) execValue(pos Pos) (token.Token, bool, error) {
	nameToks, err := l.parseMandatoryArg()
	if err != nil {
		return token.Token{}, false, err
	}
	name := tokensToPlainString(nameToks)
	n, ok := l.counters[name]
	if !ok {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", fmt.Sprintf("unknown counter %q", name))
	}
	if err := l.pushFront(digitTokens(n, pos)); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}

// execVerb implements \verb<delim>...<delim>: the delimiter is the very
// next character (commonly '|'), and everything up to its next occurrence
// is read as raw characters, none of them catcode-dispatched.
func (l *Lexer) execVerb(pos Pos) (token.Token, bool, error) {
	delim, ok := l.nextRune()
	if !ok {
		return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\verb at end of input")
	}
	var body []rune
	for {
		r, ok := l.nextRune()
		if !ok {
			return token.Token{}, false, texerr.NewFatal(pos, "lexer", "\\verb: missing closing delimiter")
		}
		if r == delim {
			break
		}
		body = append(body, r)
	}
	var out []token.Token
	for _, r := range body {
		out = append(out, token.NewChar(r, catcode.Other, pos.File, pos.Line, pos.Col))
	}
	if err := l.pushFront(out); err != nil {
		return token.Token{}, false, err
	}
	return token.Token{}, false, nil
}
