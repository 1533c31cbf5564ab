// Package document implements the semantic document model: blocks,
// inlines, anchors, and the meta state (counters, label/anchor/citation/
// media tables) the reader threads through the whole grammar. Every node
// type is a closed tagged variant, so consumers pattern-match exhaustively
// instead of going through visitor dispatch.
package document

import (
	"fmt"
	"strings"
)

// Region is the current book region, switched by
// \frontmatter/\mainmatter/\appendix/\backmatter.
type Region int

const (
	Main Region = iota
	Front
	Back
)

func (r Region) String() string {
	switch r {
	case Front:
		return "front"
	case Back:
		return "back"
	default:
		return "main"
	}
}

// AnchorKind tags the variant of Anchor.
type AnchorKind int

const (
	DocumentAnchorKind AnchorKind = iota
	SectionAnchorKind
	PhantomAnchorKind
	FigureAnchorKind
	TableAnchorKind
	NoteAnchorKind
	ItemAnchorKind
	BibAnchorKind
)

// NoteSub distinguishes a footnote's own marker anchor (note-C-N) from its
// body's secondary anchor (notetext-C-N).
type NoteSub int

const (
	NoteMark NoteSub = iota
	NoteText
)

// Anchor is a stable identity for a referenceable element (section,
// figure, table, note, item, bibliography entry, or the document root).
// Assigned exactly once at creation and never mutated.
type Anchor struct {
	Kind AnchorKind

	Region Region // Section/Phantom

	// SectionAnchorKind: the section-number tuple, levels 1..7
	// (part..subparagraph); ID() drops leading and trailing zero entries.
	Numbers []int

	// PhantomAnchorKind: the running unnumbered-section counter value.
	Phantom int

	// FigureAnchorKind/TableAnchorKind/NoteAnchorKind/ItemAnchorKind:
	// chapter number.
	Chapter int
	// FigureAnchorKind/TableAnchorKind/NoteAnchorKind: intra-chapter
	// sequence number.
	Seq int
	// NoteAnchorKind: which of the pair (marker vs. body) this is.
	NoteSub NoteSub

	// ItemAnchorKind: outermost-first nesting sequence, e.g. [2,1] for the
	// first sub-item of the second item.
	Path []int

	// BibAnchorKind: global first-occurrence citation order.
	Order int
}

// DocumentAnchor is the document root anchor: its ID is the empty string,
// and it is the fallback when `\label` appears before any numbered
// element is registered.
var DocumentAnchor = Anchor{Kind: DocumentAnchorKind}

// ID renders the anchor's identifier. External tooling (the renderers and
// the multi-file splitter) consumes these strings directly, so the format
// here is load-bearing, not cosmetic.
func (a Anchor) ID() string {
	switch a.Kind {
	case DocumentAnchorKind:
		return ""
	case SectionAnchorKind:
		trimmed := trimZeros(a.Numbers)
		parts := make([]string, len(trimmed))
		for i, n := range trimmed {
			parts[i] = fmt.Sprintf("%d", n)
		}
		prefix := "sec-"
		switch a.Region {
		case Front:
			prefix = "sec-front-"
		case Back:
			prefix = "sec-back-"
		}
		return prefix + strings.Join(parts, "-")
	case PhantomAnchorKind:
		switch a.Region {
		case Front:
			return fmt.Sprintf("sec-front-unnumbered-%d", a.Phantom)
		case Back:
			return fmt.Sprintf("sec-back-unnumbered-%d", a.Phantom)
		default:
			return fmt.Sprintf("sec-unnumbered-%d", a.Phantom)
		}
	case FigureAnchorKind:
		return fmt.Sprintf("figure-%d-%d", a.Chapter, a.Seq)
	case TableAnchorKind:
		return fmt.Sprintf("table-%d-%d", a.Chapter, a.Seq)
	case NoteAnchorKind:
		if a.NoteSub == NoteText {
			return fmt.Sprintf("notetext-%d-%d", a.Chapter, a.Seq)
		}
		return fmt.Sprintf("note-%d-%d", a.Chapter, a.Seq)
	case ItemAnchorKind:
		parts := make([]string, len(a.Path))
		for i, n := range a.Path {
			parts[i] = fmt.Sprintf("%d", n)
		}
		return "item-" + fmt.Sprintf("%d", a.Chapter) + "-" + strings.Join(parts, "-")
	case BibAnchorKind:
		return fmt.Sprintf("bib-%d", a.Order)
	}
	return ""
}

// trimZeros drops unused shallower levels and trailing zero entries from a
// section-number tuple: a document that opens with \section and no
// enclosing \chapter has no meaningful part/chapter component, so a bare
// \section renders as sec-1 rather than sec-0-1. At least one entry is
// always kept.
func trimZeros(numbers []int) []int {
	start := 0
	for start < len(numbers)-1 && numbers[start] == 0 {
		start++
	}
	end := len(numbers)
	for end > start+1 && numbers[end-1] == 0 {
		end--
	}
	return numbers[start:end]
}
