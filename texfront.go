// Package texfront is the TeX front-end pipeline: a pure function from a
// LaTeX source string to the semantic document model, wiring the lexer,
// structural parser, syntactic filter, and document reader in sequence.
//
// The multi-file splitter, the HTML/XML emitters, and the CLI that wires
// Convert to a command line are external collaborators; they consume the
// *document.Document this package returns but are not implemented here.
package texfront

import (
	"github.com/kr/pretty"

	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/bibtex"
	"github.com/texfront/texfront/config"
	"github.com/texfront/texfront/document"
	"github.com/texfront/texfront/filter"
	"github.com/texfront/texfront/lexer"
	"github.com/texfront/texfront/reader"
	"github.com/texfront/texfront/texerr"
	"github.com/texfront/texfront/token"
)

// Result is the output of a single conversion: the semantic document plus
// every warning collected along the way. Warnings never make Convert
// fail; only a fatal error does that.
type Result struct {
	Document *document.Document
	Warnings []texerr.Warning
}

// Convert runs the whole pipeline over src: tokens -> atoms -> filtered
// atoms -> semantic document. name identifies src for diagnostics (a
// filename, or "<string>" for an in-memory source). bib is the external
// bibliography; a nil bib is treated as an empty database, so every \cite
// still produces a Citation inline, just with an undefined-key warning
// attached.
func Convert(name, src string, opts config.Options, bib bibtex.Database) (*Result, error) {
	warn := texerr.NewCollector(texerr.GetLogger("texfront"))

	toks, err := lexAll(name, src, opts, warn)
	if err != nil {
		return nil, err
	}

	atoms, err := atom.Parse(toks, atom.NewRegistry())
	if err != nil {
		return nil, texerr.Wrap(texerr.Pos{File: name}, "atom", err)
	}
	if opts.Verbose {
		log := texerr.GetLogger("atom")
		log.Debugf("atom tree for %s:\n%s", name, pretty.Sprint(atoms))
	}

	atoms = filter.NormaliseTree(atoms)
	atoms = filter.Default().ResolveTree(atoms)

	meta := document.NewMeta(bib, warn)
	doc, err := reader.Read(atoms, meta)
	if err != nil {
		return nil, texerr.Wrap(texerr.Pos{File: name}, "reader", err)
	}

	return &Result{Document: doc, Warnings: warn.Warnings()}, nil
}

// lexAll drains the lexer into a flat token slice, stopping at
// lexer.ErrEOF; any other error is fatal.
func lexAll(name, src string, opts config.Options, warn *texerr.Collector) ([]token.Token, error) {
	lx := lexer.New(name, src, opts, warn)
	var toks []token.Token
	for {
		t, err := lx.Next()
		if err == lexer.ErrEOF {
			return toks, nil
		}
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
	}
}
