package reader

import (
	"strings"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/document"
)

// fontSwitchStyle maps a no-argument font-switching command to the style
// it applies; such a switch affects all following siblings until the end
// of the enclosing group. Only \em is a toggle (\em inside emphasis
// switches back to upright); the rest are absolute.
func fontSwitchStyle(name string, current document.FontStyleTag) (document.FontStyleTag, bool) {
	switch name {
	case "em":
		if current == document.Emph {
			return document.Normal, true
		}
		return document.Emph, true
	case "rm":
		return document.Normal, true
	case "bf":
		return document.Bold, true
	case "it":
		return document.Italic, true
	case "sc":
		return document.SmallCaps, true
	case "tt":
		return document.Teletype, true
	}
	return document.Normal, false
}

// groupedFontStyle maps an argument-taking font command (\emph, \textbf,
// \textit, ...) to the style of the FontStyle inline it produces.
func groupedFontStyle(name string) (document.FontStyleTag, bool) {
	switch name {
	case "emph":
		return document.Emph, true
	case "textbf":
		return document.Bold, true
	case "textit":
		return document.Italic, true
	case "textsc":
		return document.SmallCaps, true
	case "texttt":
		return document.Teletype, true
	case "underline":
		return document.Underline, true
	}
	return document.Normal, false
}

// readInlines folds a run of atoms into inlines. style is the
// ambient font style a bare font-switch command (\em, \rm, ...) toggles
// away from; it resets to Normal at the entry of every math group, script,
// and the argument bodies of the commands recognised here (a grouped font
// command passes its own style). Plain groups and the arguments of an
// unrecognised command keep the ambient style.
func readInlines(atoms []atom.Atom, meta S, style document.FontStyleTag) []document.Inline {
	var out []document.Inline
	for i := 0; i < len(atoms); i++ {
		a := atoms[i]
		switch a.Kind {
		case atom.Plain:
			if a.Text != "" {
				out = append(out, document.Inline{Kind: document.StrKind, Text: a.Text})
			}

		case atom.White:
			out = append(out, document.Inline{Kind: document.SpaceKind})

		case atom.Newline:
			out = append(out, document.Inline{Kind: document.SpaceKind})

		case atom.Par:
			continue // paragraphs are split before readInlines ever runs

		case atom.MathGroupKind:
			mt := document.InlineMath
			if a.Math == atom.DisplayMath {
				mt = document.DisplayMath
			}
			out = append(out, document.Inline{Kind: document.MathKind, Math: mt, MathBody: readInlines(a.Body, meta, document.Normal)})

		case atom.SupScript:
			out = append(out, document.Inline{Kind: document.SupScriptKind, Script: readInlines(a.Script, meta, document.Normal)})

		case atom.SubScript:
			out = append(out, document.Inline{Kind: document.SubScriptKind, Script: readInlines(a.Script, meta, document.Normal)})

		case atom.Group:
			// An unnamed brace group or `center` wrapper reached at
			// inline level is transparent: its content joins the
			// surrounding run at the same ambient style, which is what
			// lets a bare \em inside it keep toggling correctly to the
			// end of *this* group, as in `{\em one\rm two}`.
			out = append(out, readInlines(a.Body, meta, style)...)

		case atom.Command:
			if newStyle, ok := fontSwitchStyle(a.Name, style); ok {
				// Consumes every remaining sibling as its child and
				// ends this call.
				rest := readInlines(atoms[i+1:], meta, newStyle)
				out = append(out, document.Inline{Kind: document.FontStyleKind, Style: newStyle, Children: rest})
				return out
			}
			out = append(out, inlineForCommand(a, meta, style)...)
		}
	}
	return out
}

// inlineForCommand dispatches a single Command atom to its inline
// production, or recurses into its argument bodies when the command is
// unrecognised: unknown commands within an inline context are dropped,
// but their argument contents are recursed into.
func inlineForCommand(a atom.Atom, meta S, style document.FontStyleTag) []document.Inline {
	if fs, ok := groupedFontStyle(a.Name); ok {
		return []document.Inline{{
			Kind:     document.FontStyleKind,
			Style:    fs,
			Children: readInlines(argBody(a, 0), meta, fs),
		}}
	}

	switch a.Name {
	case "textsuperscript":
		return []document.Inline{{Kind: document.SupScriptKind, Script: readInlines(argBody(a, 0), meta, document.Normal)}}
	case "textsubscript":
		return []document.Inline{{Kind: document.SubScriptKind, Script: readInlines(argBody(a, 0), meta, document.Normal)}}

	case "label":
		meta.BindLabel(plainTextOf(argBody(a, 0)))
		return nil

	case "ref", "pageref", "autoref":
		return []document.Inline{{Kind: document.PointerKind, Label: plainTextOf(argBody(a, 0))}}

	case "footnote":
		mark, text := meta.NextNote()
		body, _ := readBlocks(argBody(a, 0), meta, nil, &document.Document{})
		meta.Notes[text.ID()] = body
		return []document.Inline{{Kind: document.NoteKind, NoteAnchor: mark, NoteBody: body}}

	case "href":
		url := plainTextOf(argBody(a, 0))
		text := plainTextOf(argBody(a, 1))
		if text == "" {
			text = url
		}
		return []document.Inline{{Kind: document.PointerKind, External: &document.ExternalResource{Text: text, URL: url}}}

	case "url":
		u := plainTextOf(argBody(a, 0))
		return []document.Inline{{Kind: document.PointerKind, External: &document.ExternalResource{Text: u, URL: u}}}

	case "cite", "parencite", "textcite", "citeauthor", "citeyear", "cites", "parencites":
		return []document.Inline{citationInline(a, meta)}
	}

	var out []document.Inline
	for _, arg := range a.Args {
		out = append(out, readInlines(arg.Body, meta, style)...)
	}
	return out
}

func citeModeOf(name string) document.CiteMode {
	switch name {
	case "parencite":
		return document.Parencite
	case "textcite":
		return document.Textcite
	case "citeauthor":
		return document.Citeauthor
	case "citeyear":
		return document.Citeyear
	case "cites":
		return document.Cites
	case "parencites":
		return document.Parencites
	default:
		return document.Cite
	}
}

// citationInline builds a Citation inline. The registry
// (atom.NewRegistry) gives every citation command up to two optional
// arguments followed by the mandatory key list; when only one bracket is
// present it is the postnote, matching the biblatex `\cite[postnote]{key}`
// convention.
func citationInline(a atom.Atom, meta S) document.Inline {
	var pre, post, keysArg []atom.Atom
	switch len(a.Args) {
	case 1:
		keysArg = argBody(a, 0)
	case 2:
		post = argBody(a, 0)
		keysArg = argBody(a, 1)
	case 3:
		pre = argBody(a, 0)
		post = argBody(a, 1)
		keysArg = argBody(a, 2)
	}

	keys := splitKeys(plainTextOf(keysArg))
	singles := make([]document.CiteSingle, 0, len(keys))
	for _, k := range keys {
		meta.RegisterCitation(k)
		singles = append(singles, document.CiteSingle{Key: k})
	}

	return document.Inline{
		Kind: document.CitationKind,
		Cite: document.MultiCite{
			Mode:     citeModeOf(a.Name),
			Prenote:  readInlines(pre, meta, document.Normal),
			Postnote: readInlines(post, meta, document.Normal),
			Singles:  singles,
		},
	}
}

func splitKeys(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
