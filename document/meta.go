package document

import (
	"github.com/texfront/texfront/bibtex"
	"github.com/texfront/texfront/texerr"
)

// sectionLevels is the number of sectioning levels (part..subparagraph,
// levels 1-7); index 0 is unused so levels can be indexed directly.
const sectionLevels = 8

// Meta is the single owned record threaded by the walker — never a
// process-wide singleton, so two documents can convert simultaneously
// given separate Meta values. *Meta satisfies walker.Stateful[*Meta] via
// Clone, so every backtracking attempt gets its own independent copy and a
// failed alternative's counter increments and table writes are undone
// exactly like its focus position.
type Meta struct {
	Region Region

	// sectionNumbers[1..7] is the current section-number tuple.
	sectionNumbers [sectionLevels]int

	// Per-chapter counters, reset to 0 by IncrementSection(2).
	figureCounter int
	tableCounter  int
	noteCounter   int
	itemCounter   int

	phantomCounter   int
	citationOrderCtr int

	// CurrentAnchor is the most recently registered element anchor, the
	// one \label{key} binds. Starts as DocumentAnchor so a \label before
	// any element binds to the document root.
	CurrentAnchor Anchor

	// Labels maps a user-chosen label name to the anchor it was bound to.
	// A label absent from this map at resolve time is unresolved.
	Labels map[string]Anchor

	// AnchorFiles maps an anchor ID to the output file it lives in, for
	// the multi-file splitter.
	AnchorFiles map[string]string

	// Media maps a registered media ID to the source filename
	// (\includegraphics argument).
	Media     map[int]string
	nextMedia int

	// Notes maps a footnote's anchor ID to its body, so a renderer can
	// look up a footnote independent of its inline occurrence.
	Notes map[string][]Block

	// CitationOrder maps a citation key to its first-occurrence global
	// index; re-registration is a no-op.
	CitationOrder map[string]int
	// CitationKeys lists keys in first-occurrence order, the order a
	// BibList is rendered in.
	CitationKeys []string

	Bib bibtex.Database

	// Warn is an append-only diagnostic side channel. It is
	// intentionally NOT deep-copied by Clone: warnings are never "undone"
	// by a failed backtracking attempt, the same way a real compiler's
	// lexer doesn't un-print a warning it already emitted. The reader only
	// calls Warnf from committed productions (after a top-level choice has
	// already succeeded), which keeps this from over-reporting on
	// discarded alternatives in practice.
	Warn *texerr.Collector
}

// NewMeta builds an empty Meta ready for a fresh conversion; a Meta
// exists for exactly one document.
func NewMeta(bib bibtex.Database, warn *texerr.Collector) *Meta {
	if bib == nil {
		bib = bibtex.MapDatabase{}
	}
	return &Meta{
		Region:        Main,
		CurrentAnchor: DocumentAnchor,
		Labels:        make(map[string]Anchor),
		AnchorFiles:   make(map[string]string),
		Media:         make(map[int]string),
		Notes:         make(map[string][]Block),
		CitationOrder: make(map[string]int),
		Bib:           bib,
		Warn:          warn,
	}
}

// Clone returns an independent copy for the walker's backtracking
// save/restore (walker.Stateful[*Meta]). Every map is copied; Bib and Warn
// are shared (Bib is read-only; Warn is append-only by design, see above).
func (m *Meta) Clone() *Meta {
	cp := &Meta{
		Region:           m.Region,
		sectionNumbers:   m.sectionNumbers,
		figureCounter:    m.figureCounter,
		tableCounter:     m.tableCounter,
		noteCounter:      m.noteCounter,
		itemCounter:      m.itemCounter,
		phantomCounter:   m.phantomCounter,
		citationOrderCtr: m.citationOrderCtr,
		nextMedia:        m.nextMedia,
		CurrentAnchor:    m.CurrentAnchor,
		Bib:              m.Bib,
		Warn:             m.Warn,
	}
	cp.Labels = make(map[string]Anchor, len(m.Labels))
	for k, v := range m.Labels {
		cp.Labels[k] = v
	}
	cp.AnchorFiles = cloneStringMap(m.AnchorFiles)
	cp.Media = make(map[int]string, len(m.Media))
	for k, v := range m.Media {
		cp.Media[k] = v
	}
	cp.Notes = make(map[string][]Block, len(m.Notes))
	for k, v := range m.Notes {
		cp.Notes[k] = v
	}
	cp.CitationOrder = cloneIntMap(m.CitationOrder)
	cp.CitationKeys = append([]string(nil), m.CitationKeys...)
	return cp
}

func cloneIntMap(m map[string]int) map[string]int {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneStringMap(m map[string]string) map[string]string {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Chapter returns the current chapter number (sectionNumbers[2]).
func (m *Meta) Chapter() int { return m.sectionNumbers[2] }

// IncrementSection bumps the counter at level (1..7), zeroes every deeper
// level, and — if level is the chapter level (2) — resets the
// figure/table/note/item counters. It returns the anchor for the newly
// numbered section.
func (m *Meta) IncrementSection(level int) Anchor {
	m.sectionNumbers[level]++
	for l := level + 1; l < sectionLevels; l++ {
		m.sectionNumbers[l] = 0
	}
	if level == 2 {
		m.figureCounter = 0
		m.tableCounter = 0
		m.noteCounter = 0
		m.itemCounter = 0
	}
	numbers := append([]int(nil), m.sectionNumbers[1:]...)
	a := Anchor{Kind: SectionAnchorKind, Region: m.Region, Numbers: numbers}
	m.CurrentAnchor = a
	return a
}

// NextPhantom assigns the next phantom (unnumbered) section anchor, used
// by the starred sectioning variants.
func (m *Meta) NextPhantom() Anchor {
	m.phantomCounter++
	a := Anchor{Kind: PhantomAnchorKind, Region: m.Region, Phantom: m.phantomCounter}
	m.CurrentAnchor = a
	return a
}

// NextFigure/NextTable/NextNote/NextItem each assign and return the next
// anchor in their family, scoped to the current chapter.
func (m *Meta) NextFigure() Anchor {
	m.figureCounter++
	a := Anchor{Kind: FigureAnchorKind, Chapter: m.Chapter(), Seq: m.figureCounter}
	m.CurrentAnchor = a
	return a
}

func (m *Meta) NextTable() Anchor {
	m.tableCounter++
	a := Anchor{Kind: TableAnchorKind, Chapter: m.Chapter(), Seq: m.tableCounter}
	m.CurrentAnchor = a
	return a
}

// NextNote assigns a footnote's marker anchor and its paired body anchor.
// Each call assigns a fresh pair regardless of nesting depth, which is
// what flattens nested footnotes into independent entries.
func (m *Meta) NextNote() (mark, text Anchor) {
	m.noteCounter++
	mark = Anchor{Kind: NoteAnchorKind, Chapter: m.Chapter(), Seq: m.noteCounter, NoteSub: NoteMark}
	text = Anchor{Kind: NoteAnchorKind, Chapter: m.Chapter(), Seq: m.noteCounter, NoteSub: NoteText}
	m.CurrentAnchor = mark
	return mark, text
}

// NextItem assigns an item anchor nested under path (outermost-first).
func (m *Meta) NextItem(path []int) Anchor {
	m.itemCounter++
	a := Anchor{Kind: ItemAnchorKind, Chapter: m.Chapter(), Path: append([]int(nil), path...)}
	m.CurrentAnchor = a
	return a
}

// RegisterMedia assigns a fresh media ID for filename and returns it.
func (m *Meta) RegisterMedia(filename string) int {
	m.nextMedia++
	m.Media[m.nextMedia] = filename
	return m.nextMedia
}

// BindLabel binds key to the current anchor. A duplicate name is ignored
// (the first binding wins); reports whether the binding was newly made.
func (m *Meta) BindLabel(key string) bool {
	if _, exists := m.Labels[key]; exists {
		return false
	}
	m.Labels[key] = m.CurrentAnchor
	return true
}

// ResolveLabel looks up key in the label map.
func (m *Meta) ResolveLabel(key string) (Anchor, bool) {
	a, ok := m.Labels[key]
	return a, ok
}

// RegisterCitation assigns key its first-occurrence global order if this
// is the first time key is seen; re-registering an existing key is a
// no-op. Returns the (possibly pre-existing) order.
func (m *Meta) RegisterCitation(key string) int {
	if order, ok := m.CitationOrder[key]; ok {
		return order
	}
	m.citationOrderCtr++
	m.CitationOrder[key] = m.citationOrderCtr
	m.CitationKeys = append(m.CitationKeys, key)
	return m.citationOrderCtr
}

// BibAnchor returns the bibliography-entry anchor for a registered
// citation order.
func BibAnchor(order int) Anchor {
	return Anchor{Kind: BibAnchorKind, Order: order}
}
