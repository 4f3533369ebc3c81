package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
	"github.com/xuri/excelize/v2"
)

// ReservedLabels are aggregate row labels that are never business identifiers.
var ReservedLabels = map[string]struct{}{
	"TOTAL":    {},
	"SUBTOTAL": {},
	"SUM":      {},
	"COUNT":    {},
	"AVERAGE":  {},
	"MAX":      {},
	"MIN":      {},
}

// IsReservedLabel reports whether value, trimmed and case-insensitively, is a
// reserved aggregate label.
func IsReservedLabel(value string) bool {
	_, ok := ReservedLabels[strings.ToUpper(strings.TrimSpace(value))]
	return ok
}

// ColumnIndex converts a column name (e.g. "H") to a 0-based index.
func ColumnIndex(column string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(column))
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// ReadIdentifierColumn reads the REF column of a sheet from startRow (1-based)
// to the sheet's last populated row. Empty cells and reserved labels are
// skipped. The result is in ascending row order.
func ReadIdentifierColumn(c *Container, sheetName string, startRow int, column string) ([]models.RowIdentifier, error) {
	if startRow < 1 {
		return nil, fmt.Errorf("invalid start row %d", startRow)
	}
	colIdx, err := ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	wb, err := c.Workbook()
	if err != nil {
		return nil, err
	}
	rows, err := wb.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	var result []models.RowIdentifier
	for rowIdx := startRow - 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if colIdx >= len(row) {
			continue
		}

		ref := strings.TrimSpace(row[colIdx])
		if ref == "" || IsReservedLabel(ref) {
			continue
		}
		result = append(result, models.RowIdentifier{
			Row: rowIdx + 1, // 1-based row index
			Ref: ref,
		})
	}

	return result, nil
}
