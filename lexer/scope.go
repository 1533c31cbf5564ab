package lexer

import "github.com/texfront/texfront/catcode"

// scope is one entry of the group-scope stack: the shadowed bindings for
// catcodes, macros, and environments restored on group close. Pushed on
// Bgroup, popped on Egroup; every push snapshots the tables currently in
// effect so changes made inside the group are invisible once it closes.
type scope struct {
	cats *catcode.Table
	macs *MacroTable
	envs *EnvTable
}

func (l *Lexer) pushScope() {
	l.scopes = append(l.scopes, scope{cats: l.cats, macs: l.macros, envs: l.envs})
	l.cats = l.cats.Clone()
	l.macros = l.macros.clone()
	l.envs = l.envs.clone()
}

// popScope restores the tables in effect before the matching pushScope.
// Returns false if there is no open scope (unbalanced Egroup).
func (l *Lexer) popScope() bool {
	n := len(l.scopes)
	if n == 0 {
		return false
	}
	top := l.scopes[n-1]
	l.scopes = l.scopes[:n-1]
	l.cats = top.cats
	l.macros = top.macs
	l.envs = top.envs
	return true
}

func (l *Lexer) groupDepth() int { return len(l.scopes) }
