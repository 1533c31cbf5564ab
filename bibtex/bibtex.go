// Package bibtex describes the shape of the BibTeX subsystem as the front
// end consumes it: a keyed entry lookup plus a formatted citation string.
// No `.bib` grammar lives here — the bibliography parser and formatter are
// external collaborators; this package only gives the reader's citation
// handling and the document meta something concrete to depend on, and
// tests something concrete to fake.
package bibtex

// CiteKey identifies a bibliography entry, e.g. the "smith20" in
// \cite{smith20}.
type CiteKey = string

// Entry is one bibliographic record as the core needs to see it: enough to
// render an author-year citation and a bibliography list entry. The actual
// field set (title, journal, pages, ...) lives in the external formatter;
// this core only ever reads the two fields it renders inline.
type Entry struct {
	Key     CiteKey
	Authors []string
	Year    string
	// Formatted is the external formatter's full rendering of the entry
	// (what ends up in the bibliography list); the core treats it as an
	// opaque string it places into a document.BibList entry.
	Formatted string
}

// Database is the interface the core's citation component consumes. An
// external collaborator constructs one by parsing a .bib file; tests fake
// it with MapDatabase.
type Database interface {
	// Lookup returns the entry for key, or ok=false if key is undefined.
	Lookup(key CiteKey) (Entry, bool)
}

// MapDatabase is the simplest Database: a fixed map, used by tests and by
// a caller that has already parsed its own bibliography into memory.
type MapDatabase map[CiteKey]Entry

func (m MapDatabase) Lookup(key CiteKey) (Entry, bool) {
	e, ok := m[key]
	return e, ok
}

// AuthorYear renders the short inline form ("Smith 2020") a Citation
// inline's text content falls back to when no external formatter is
// consulted.
func (e Entry) AuthorYear() string {
	if len(e.Authors) == 0 {
		return e.Year
	}
	name := e.Authors[0]
	if len(e.Authors) > 1 {
		name += " et al."
	}
	if e.Year == "" {
		return name
	}
	return name + " " + e.Year
}
