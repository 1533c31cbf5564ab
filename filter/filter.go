// Package filter implements the syntactic filter: two passes over an
// atom tree — whitespace normalisation, then symbol/diacritic/ligature
// resolution — run between the structural parser and the context walker.
package filter

import (
	"sort"
	"strings"

	"github.com/texfront/texfront/atom"
)

// Normalise runs the whitespace-normalisation pass over atoms,
// one structural level at a time (it does not recurse into Group/MathGroup
// bodies implicitly — callers that want it applied throughout the tree
// call NormaliseTree).
func Normalise(atoms []atom.Atom) []atom.Atom {
	out := make([]atom.Atom, 0, len(atoms))
	for _, a := range atoms {
		switch a.Kind {
		case atom.White:
			if len(out) > 0 && out[len(out)-1].Kind == atom.White {
				continue // conflate adjacent White
			}
			out = append(out, a)
		case atom.Newline:
			if len(out) > 0 && out[len(out)-1].Kind == atom.White {
				out[len(out)-1] = a // Eol immediately after White consumes the White
				continue
			}
			out = append(out, a)
		case atom.Par:
			// A Par absorbs all surrounding White/Par: drop any trailing
			// White/Par already emitted, then drop any immediately
			// following ones by marking them for the next iterations via
			// a one-element lookback (handled below by skipping them when
			// encountered, since they'd otherwise conflate against Par).
			for len(out) > 0 && (out[len(out)-1].Kind == atom.White || out[len(out)-1].Kind == atom.Par) {
				out = out[:len(out)-1]
			}
			out = append(out, a)
		default:
			out = append(out, a)
		}
	}
	// A second compaction pass removes White/Newline atoms that directly
	// follow a Par (the "surrounding" half of "absorbs all surrounding
	// White/Par" that the single forward pass above can't see yet).
	compacted := out[:0:0]
	for _, a := range out {
		if len(compacted) > 0 && compacted[len(compacted)-1].Kind == atom.Par &&
			(a.Kind == atom.White || a.Kind == atom.Newline || a.Kind == atom.Par) {
			continue
		}
		compacted = append(compacted, a)
	}
	return compacted
}

// NormaliseTree applies Normalise at every structural level: the top
// level, and recursively inside every Group, Command argument, MathGroup,
// SupScript, and SubScript body. Whitespace never conflates across a
// structural boundary; each boundary gets its own pass.
func NormaliseTree(atoms []atom.Atom) []atom.Atom {
	normalised := Normalise(atoms)
	for i := range normalised {
		a := &normalised[i]
		switch a.Kind {
		case atom.Group, atom.MathGroupKind:
			a.Body = NormaliseTree(a.Body)
		case atom.SupScript, atom.SubScript:
			a.Script = NormaliseTree(a.Script)
		case atom.Command:
			for j := range a.Args {
				a.Args[j].Body = NormaliseTree(a.Args[j].Body)
			}
		}
	}
	return normalised
}

// Tables bundles the symbol, diacritic, and double-diacritic lookup
// tables plus the ligature replacement table, all populated with the
// standard LaTeX-profile entries by Default().
type Tables struct {
	Symbols          map[string]string
	Diacritics       map[string]rune
	DoubleDiacritics map[string]rune
	ligatureKeys     []string // longest-first, for priority matching
	Ligatures        map[string]string
}

// Default returns the standard symbol/diacritic/ligature tables.
func Default() *Tables {
	t := &Tables{
		Symbols: map[string]string{
			"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ",
			"epsilon": "ε", "zeta": "ζ", "eta": "η", "theta": "θ",
			"lambda": "λ", "mu": "μ", "pi": "π", "sigma": "σ",
			"phi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",
			"infty": "∞", "ldots": "…", "dots": "…",
			"textbackslash": "\\", "S": "§", "P": "¶",
			"~": "\u00a0", // the active non-breaking space
		},
		Diacritics: map[string]rune{
			"'":  '́', // acute
			"`":  '̀', // grave
			"^":  '̂', // circumflex
			"\"": '̈', // diaeresis
			"~":  '̃', // tilde
			"c":  '̧', // cedilla
			"v":  '̌', // caron
			"=":  '̄', // macron
			".":  '̇', // dot above
		},
		DoubleDiacritics: map[string]rune{
			"t": '͡', // double inverted breve (tie)
		},
		Ligatures: map[string]string{
			"``":  "“",
			"''":  "”",
			"---": "—",
			"--":  "–",
			"?`":  "¿",
			"!`":  "¡",
		},
	}
	t.ligatureKeys = make([]string, 0, len(t.Ligatures))
	for k := range t.Ligatures {
		t.ligatureKeys = append(t.ligatureKeys, k)
	}
	sort.Slice(t.ligatureKeys, func(i, j int) bool { return len(t.ligatureKeys[i]) > len(t.ligatureKeys[j]) })
	return t
}

// ResolveTree runs the symbol/diacritic/ligature pass over the whole
// atom tree, recursively.
func (t *Tables) ResolveTree(atoms []atom.Atom) []atom.Atom {
	out := make([]atom.Atom, 0, len(atoms))
	i := 0
	for i < len(atoms) {
		a := atoms[i]
		switch a.Kind {
		case atom.Plain:
			a.Text = t.applyLigatures(a.Text)
			out = append(out, a)
			i++

		case atom.Command:
			if resolved, consumed, ok := t.resolveCommand(atoms, i); ok {
				out = append(out, resolved)
				i += consumed
				continue
			}
			a.Args = t.resolveArgs(a.Args)
			out = append(out, a)
			i++

		case atom.Group, atom.MathGroupKind:
			a.Body = t.ResolveTree(a.Body)
			out = append(out, a)
			i++

		case atom.SupScript, atom.SubScript:
			a.Script = t.ResolveTree(a.Script)
			out = append(out, a)
			i++

		default:
			out = append(out, a)
			i++
		}
	}
	return out
}

func (t *Tables) resolveArgs(args []atom.Arg) []atom.Arg {
	out := make([]atom.Arg, len(args))
	for i, a := range args {
		a.Body = t.ResolveTree(a.Body)
		out[i] = a
	}
	return out
}

// resolveCommand attempts to resolve atoms[i] (a Command) as a symbol,
// single diacritic, or double diacritic. It returns the
// replacement Plain atom, how many source atoms it consumed (1 for a
// zero-arg symbol; more only when an argument was folded in by the
// structural parser as a sibling Group rather than a Command.Arg — the
// registry binds diacritic commands with explicit Args, so consumed is
// always 1 in this implementation), and whether resolution applied.
func (t *Tables) resolveCommand(atoms []atom.Atom, i int) (atom.Atom, int, bool) {
	a := atoms[i]

	if sym, ok := t.Symbols[a.Name]; ok && len(a.Args) == 0 {
		return atom.Atom{Kind: atom.Plain, Text: sym, Pos: a.Pos}, 1, true
	}

	if mark, ok := t.Diacritics[a.Name]; ok && len(a.Args) == 1 {
		text := plainTextOf(a.Args[0].Body)
		return atom.Atom{Kind: atom.Plain, Text: insertCombining(text, mark), Pos: a.Pos}, 1, true
	}

	if mark, ok := t.DoubleDiacritics[a.Name]; ok && len(a.Args) == 2 {
		first := plainTextOf(a.Args[0].Body)
		second := plainTextOf(a.Args[1].Body)
		return atom.Atom{Kind: atom.Plain, Text: insertCombining(first, mark) + second, Pos: a.Pos}, 1, true
	}

	return atom.Atom{}, 0, false
}

// insertCombining inserts mark after the first rune of s plus any
// combining marks immediately following it, so stacked accents keep
// their order.
func insertCombining(s string, mark rune) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return string(mark)
	}
	i := 1
	for i < len(runes) && isCombining(runes[i]) {
		i++
	}
	var b strings.Builder
	b.WriteString(string(runes[:i]))
	b.WriteRune(mark)
	b.WriteString(string(runes[i:]))
	return b.String()
}

func isCombining(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
}

func plainTextOf(atoms []atom.Atom) string {
	var b strings.Builder
	for _, a := range atoms {
		if a.Kind == atom.Plain {
			b.WriteString(a.Text)
		}
	}
	return b.String()
}

// applyLigatures replaces every longest-match occurrence of a ligature key
// in s, longest key first.
func (t *Tables) applyLigatures(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		matched := false
		for _, key := range t.ligatureKeys {
			if strings.HasPrefix(s[i:], key) {
				b.WriteString(t.Ligatures[key])
				i += len(key)
				matched = true
				break
			}
		}
		if !matched {
			r := []rune(s[i:])[0]
			b.WriteRune(r)
			i += len(string(r))
		}
	}
	return b.String()
}
