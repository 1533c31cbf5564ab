package lexer

import "github.com/texfront/texfront/token"

// MacroKind tags the variant of MacroCommand.
type MacroKind int

const (
	UserMacroKind MacroKind = iota
	PrimitiveKind
	ImplicitCharKind
)

// MacroCommand is the tagged variant stored in the macro table, keyed by
// (name, active).
type MacroCommand struct {
	Kind MacroKind

	// UserMacroKind
	Name     string
	Active   bool
	ArgSpec  []Arg
	Body     []token.Token
	Robust   bool // \DeclareRobustCommand: inert under \protect, no behavioral difference here

	// PrimitiveKind
	Primitive string

	// ImplicitCharKind (the result of e.g. \let\x=a)
	ImplicitRune rune
	ImplicitCat  int
}

// macroKey is the (name, active) lookup key.
type macroKey struct {
	name   string
	active bool
}

// MacroTable maps (name, active) to MacroCommand.
type MacroTable struct {
	m map[macroKey]*MacroCommand
}

func newMacroTable() *MacroTable {
	return &MacroTable{m: make(map[macroKey]*MacroCommand)}
}

func (t *MacroTable) Get(name string, active bool) (*MacroCommand, bool) {
	c, ok := t.m[macroKey{name, active}]
	return c, ok
}

func (t *MacroTable) Set(name string, active bool, cmd *MacroCommand) {
	t.m[macroKey{name, active}] = cmd
}

func (t *MacroTable) Delete(name string, active bool) {
	delete(t.m, macroKey{name, active})
}

// clone is a shallow copy: MacroCommand values are immutable once stored
// (a redefinition replaces the pointer, never mutates the pointee), so a
// shallow map copy is sufficient to let group-scope restore work.
func (t *MacroTable) clone() *MacroTable {
	cp := newMacroTable()
	for k, v := range t.m {
		cp.m[k] = v
	}
	return cp
}

// MacroEnv is a user-defined environment: name tokens, argument spec,
// start-code, end-code. Keyed by the token sequence spelling the
// environment name so it survives an active-character rename of the
// identifier.
type MacroEnv struct {
	NameTokens []token.Token
	ArgSpec    []Arg
	StartCode  []token.Token
	EndCode    []token.Token
}

// EnvTable maps an environment-name spelling to its MacroEnv.
type EnvTable struct {
	m map[string]*MacroEnv
}

func newEnvTable() *EnvTable {
	return &EnvTable{m: make(map[string]*MacroEnv)}
}

func envKeyOf(nameTokens []token.Token) string {
	s := ""
	for _, t := range nameTokens {
		switch t.Kind {
		case token.Char:
			s += string(t.Rune)
		case token.ControlSeq:
			s += t.Name
		}
	}
	return s
}

func (t *EnvTable) Get(nameTokens []token.Token) (*MacroEnv, bool) {
	e, ok := t.m[envKeyOf(nameTokens)]
	return e, ok
}

func (t *EnvTable) GetByName(name string) (*MacroEnv, bool) {
	e, ok := t.m[name]
	return e, ok
}

func (t *EnvTable) Set(name string, env *MacroEnv) {
	t.m[name] = env
}

func (t *EnvTable) clone() *EnvTable {
	cp := newEnvTable()
	for k, v := range t.m {
		cp.m[k] = v
	}
	return cp
}
