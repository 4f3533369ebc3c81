// Package refpix extracts the pictures anchored in a spreadsheet's photo
// column, pairs each with the REF of its row, and uploads them to a store.
package refpix

import (
	"fmt"
	"strings"

	"github.com/ukaji3/refpix-go/pkg/refpix/parser"
)

// Options selects where in the workbook identifiers and pictures are read.
type Options struct {
	// StartRow is the first data row (1-based).
	StartRow int
	// PhotoColumn is the column letter holding anchored pictures.
	PhotoColumn string
	// RefColumn is the column letter holding REF identifiers.
	RefColumn string
	// Sheet is the sheet to read. Empty selects the active sheet.
	Sheet string
}

// DefaultOptions returns the catalogue layout: headers above row 4, REFs in
// column A and pictures in column H of the active sheet.
func DefaultOptions() Options {
	return Options{
		StartRow:    4,
		PhotoColumn: "H",
		RefColumn:   "A",
	}
}

func (o Options) normalized() Options {
	o.PhotoColumn = strings.ToUpper(strings.TrimSpace(o.PhotoColumn))
	o.RefColumn = strings.ToUpper(strings.TrimSpace(o.RefColumn))
	if o.RefColumn == "" {
		o.RefColumn = "A"
	}
	return o
}

// Validate checks the row and column settings.
func (o Options) Validate() error {
	if o.StartRow < 1 {
		return fmt.Errorf("start row must be at least 1, got %d", o.StartRow)
	}
	if _, err := parser.ColumnIndex(o.PhotoColumn); err != nil {
		return fmt.Errorf("invalid photo column %q: %w", o.PhotoColumn, err)
	}
	if _, err := parser.ColumnIndex(o.RefColumn); err != nil {
		return fmt.Errorf("invalid ref column %q: %w", o.RefColumn, err)
	}
	return nil
}
