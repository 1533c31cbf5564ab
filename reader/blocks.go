package reader

import (
	"github.com/texfront/texfront/atom"
	"github.com/texfront/texfront/document"
	"github.com/texfront/texfront/walker"
)

// flattenOneLevel expands any unnamed brace group or `center` wrapper
// directly into its body (figures commonly sit inside \centering or
// center groups), so the scan below sees \includegraphics/\caption
// regardless of how many cosmetic wrapper groups surround them.
func flattenOneLevel(atoms []atom.Atom) []atom.Atom {
	var out []atom.Atom
	for _, a := range atoms {
		if a.Kind == atom.Group && (a.Name == "" || a.Name == "center") {
			out = append(out, flattenOneLevel(a.Body)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

func isNamedCommand(name string) func(atom.Atom) bool {
	return func(a atom.Atom) bool { return a.Kind == atom.Command && a.Name == name }
}

// readFigure reads a `figure`/`figure*` group containing \includegraphics
// plus \caption and optional \label, in any order. Uses
// walker.Item/Satisfy to scan the flattened body one atom at a time,
// trying each recognised shape before falling through.
func readFigure(group atom.Atom, meta S) *document.Block {
	ctx := walker.New[S](flattenOneLevel(group.Body), meta)

	var mediaFile, labelKey string
	var captionBody []atom.Atom
	haveGraphics, haveCaption := false, false

	for len(ctx.Focus) > 0 {
		if a, err := walker.Satisfy[S](isNamedCommand("includegraphics"))(ctx); err == nil {
			if len(a.Args) > 0 {
				mediaFile = plainTextOf(a.Args[len(a.Args)-1].Body)
				haveGraphics = true
			}
			continue
		}
		if a, err := walker.Satisfy[S](isNamedCommand("caption"))(ctx); err == nil {
			captionBody = argBody(a, 0)
			haveCaption = true
			continue
		}
		if a, err := walker.Satisfy[S](isNamedCommand("label"))(ctx); err == nil {
			labelKey = plainTextOf(argBody(a, 0))
			continue
		}
		_, _ = walker.Item[S](ctx) // \centering or other decoration: skip
	}

	if !haveGraphics || !haveCaption {
		missing := "caption"
		if !haveGraphics && haveCaption {
			missing = "\\includegraphics"
		} else if !haveGraphics && !haveCaption {
			missing = "\\includegraphics and \\caption"
		}
		meta.Warn.Warnf(group.Pos, "reader", "malformed figure: missing %s", missing)
		return nil
	}

	mediaID := meta.RegisterMedia(mediaFile)
	anchor := meta.NextFigure()
	if labelKey != "" {
		meta.BindLabel(labelKey)
	}
	return &document.Block{
		Kind:    document.FigureKind,
		Anchor:  anchor,
		MediaID: mediaID,
		Caption: readInlines(captionBody, meta, document.Normal),
	}
}

// readTable reads a `table`/`table*` group, which may carry \caption and
// \label anywhere inside it (possibly inside a nested tabular/array
// group, which supplies the actual rows); absent a caption it degrades to
// a bare SimpleTable rather than erroring.
func readTable(group atom.Atom, meta S) document.Block {
	atoms := flattenOneLevel(group.Body)
	var captionBody []atom.Atom
	var labelKey string
	var rowAtoms []atom.Atom

	for _, a := range atoms {
		switch {
		case a.Kind == atom.Command && a.Name == "caption":
			captionBody = argBody(a, 0)
		case a.Kind == atom.Command && a.Name == "label":
			labelKey = plainTextOf(argBody(a, 0))
		case a.Kind == atom.Group && tabularGroups[a.Name]:
			rowAtoms = append(rowAtoms, a.Body...)
		case a.Kind == atom.Command && a.Name == "centering":
			// decoration only
		default:
			rowAtoms = append(rowAtoms, a)
		}
	}

	rows := parseRows(rowAtoms, meta)
	if captionBody == nil {
		return document.Block{Kind: document.SimpleTableKind, Rows: rows}
	}
	anchor := meta.NextTable()
	if labelKey != "" {
		meta.BindLabel(labelKey)
	}
	return document.Block{
		Kind:    document.TableKind,
		Anchor:  anchor,
		Caption: readInlines(captionBody, meta, document.Normal),
		Rows:    rows,
	}
}

// rowRuleCommands are row/column decoration commands that carry no
// semantic content in this model and are dropped rather than treated as
// an error, so real table sources don't hard-fail on decoration.
var rowRuleCommands = map[string]bool{"hline": true, "cmidrule": true, "toprule": true, "midrule": true, "bottomrule": true}

// parseRows folds a tabular body into rows: cells separated by AlignMark
// atoms, rows by \\; \multicolumn{n}{spec}{content} produces a spanning
// Cell.
func parseRows(atoms []atom.Atom, meta S) []document.Row {
	var rows []document.Row
	var cells []document.Cell
	var cellBuf []atom.Atom
	var pending *document.Cell
	any := false

	flushCell := func() {
		if pending != nil {
			cells = append(cells, *pending)
			pending = nil
			cellBuf = nil
			return
		}
		cells = append(cells, document.Cell{Span: 1, Content: readInlines(cellBuf, meta, document.Normal)})
		cellBuf = nil
	}
	flushRow := func() {
		if len(cellBuf) > 0 || len(cells) > 0 || pending != nil {
			flushCell()
		}
		if len(cells) > 0 {
			rows = append(rows, document.Row{Cells: cells})
		}
		cells = nil
	}

	for _, a := range atoms {
		switch {
		case a.Kind == atom.AlignMark:
			flushCell()
			any = true
		case a.Kind == atom.Command && a.Name == "\\":
			flushRow()
			any = true
		case a.Kind == atom.Command && rowRuleCommands[a.Name]:
			continue
		case a.Kind == atom.Command && a.Name == "multicolumn" && len(a.Args) == 3:
			span := parseInt(plainTextOf(a.Args[0].Body), 1)
			pending = &document.Cell{Span: span, Content: readInlines(a.Args[2].Body, meta, document.Normal)}
			any = true
		default:
			cellBuf = append(cellBuf, a)
		}
	}
	if any || len(cellBuf) > 0 {
		flushRow()
	}
	return rows
}

// readList folds `itemize`/`enumerate`/`description` into a List whose
// items are the blocks between consecutive \item commands (each item runs
// until the next \item or the end of the group). Nested lists recurse
// through readBlocks, which numbers their item anchors against path.
func readList(group atom.Atom, meta S, path []int, doc *document.Document) document.Block {
	listType := document.Unordered
	switch group.Name {
	case "enumerate":
		listType = document.Ordered
	case "description":
		listType = document.Description
	}

	itemAtomLists := splitItems(group.Body)
	items := make([][]document.Block, 0, len(itemAtomLists))
	for idx, itemAtoms := range itemAtomLists {
		itemPath := append(append([]int(nil), path...), idx+1)
		meta.NextItem(itemPath)
		blocks, _ := readBlocks(itemAtoms, meta, itemPath, doc)
		items = append(items, blocks)
	}
	return document.Block{Kind: document.ListKind, ListType: listType, Items: items}
}

// splitItems partitions a list group's body on \item boundaries. Content
// preceding the first \item (stray authoring noise) is dropped.
func splitItems(atoms []atom.Atom) [][]atom.Atom {
	var items [][]atom.Atom
	var cur []atom.Atom
	started := false
	for _, a := range atoms {
		if a.Kind == atom.Command && a.Name == "item" {
			if started {
				items = append(items, cur)
			}
			cur = nil
			started = true
			continue
		}
		if started {
			cur = append(cur, a)
		}
	}
	if started {
		items = append(items, cur)
	}
	return items
}
