package parser

import (
	"fmt"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

// Candidate is an identifier row matched to the anchored picture in its photo cell.
type Candidate struct {
	Ref         string
	Row         int
	ReferenceID string
	SourceEntry string
}

// Associate pairs each identifier with the anchor in photoColumn (0-based)
// on the same row. Anchor rows are 0-based and identifier rows 1-based; the
// +1 here is the only place the two are reconciled.
//
// When two anchors share a cell the first in document order wins. Rows with
// no anchor produce no candidate. Duplicates are reported as diagnostics.
func Associate(identifiers []models.RowIdentifier, anchors []models.Anchor, photoColumn int) ([]Candidate, []string) {
	var diagnostics []string

	byRow := make(map[int]models.Anchor)
	for _, a := range anchors {
		if a.Column != photoColumn {
			continue
		}
		row := a.Row + 1
		if first, ok := byRow[row]; ok {
			diagnostics = append(diagnostics, fmt.Sprintf(
				"row %d: more than one picture anchored in the photo cell; using %s, ignoring %s",
				row, first.ReferenceID, a.ReferenceID))
			continue
		}
		byRow[row] = a
	}

	seen := make(map[string]int)
	var candidates []Candidate
	for _, id := range identifiers {
		a, ok := byRow[id.Row]
		if !ok {
			continue
		}
		if prev, dup := seen[id.Ref]; dup {
			diagnostics = append(diagnostics, fmt.Sprintf(
				"REF %s appears on rows %d and %d; both upload to one key and only one picture is kept",
				id.Ref, prev, id.Row))
		}
		seen[id.Ref] = id.Row
		candidates = append(candidates, Candidate{
			Ref:         id.Ref,
			Row:         id.Row,
			ReferenceID: a.ReferenceID,
			SourceEntry: a.SourceEntry,
		})
	}

	return candidates, diagnostics
}
