package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ErrSheetNotFound indicates the requested sheet is not in the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

const (
	workbookPath     = "xl/workbook.xml"
	workbookRelsPath = "xl/_rels/workbook.xml.rels"
)

// SheetLocation identifies a sheet's parts inside the archive.
type SheetLocation struct {
	// Name is the sheet's display name.
	Name string
	// Index is the sheet's 0-based position in the workbook.
	Index int
	// Path is the worksheet entry (e.g. xl/worksheets/sheet1.xml). Empty when
	// the workbook relationships could not be read.
	Path string
	// DrawingPath is the drawing entry, empty when the sheet has none.
	DrawingPath string
}

type workbookSheet struct {
	name string
	rID  string
}

// LocateSheet finds the worksheet and drawing entries for the named sheet.
// An empty name selects the workbook's active sheet.
func LocateSheet(c *Container, name string) (SheetLocation, error) {
	wb, err := c.Workbook()
	if err != nil {
		return SheetLocation{}, err
	}
	if name == "" {
		name = wb.GetSheetName(wb.GetActiveSheetIndex())
	}

	workbookXML, err := c.ReadEntry(workbookPath)
	if err != nil {
		return SheetLocation{}, err
	}
	sheets := parseWorkbookSheets(workbookXML)

	loc := SheetLocation{Name: name, Index: -1}
	var rID string
	for i, s := range sheets {
		if s.name == name {
			loc.Index = i
			rID = s.rID
			break
		}
	}
	if loc.Index < 0 {
		return SheetLocation{}, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}

	wbRelsXML, err := c.ReadEntry(workbookRelsPath)
	if err != nil {
		// Without relationships fall back to the conventional part names.
		if conventional := conventionalDrawingPath(loc.Index); c.Has(conventional) {
			loc.DrawingPath = conventional
		}
		return loc, nil
	}
	loc.Path = parseWorkbookRels(wbRelsXML)[rID]
	if loc.Path == "" {
		return loc, nil
	}

	sheetRelsXML, err := c.ReadEntry(relsPathFor(loc.Path))
	if err != nil {
		return loc, nil
	}
	if target := findDrawingRelationship(sheetRelsXML); target != "" {
		loc.DrawingPath = resolveRelativePath(target, path.Dir(loc.Path))
	}
	return loc, nil
}

// relsPathFor returns the relationships entry for a part:
// xl/drawings/drawing1.xml -> xl/drawings/_rels/drawing1.xml.rels.
func relsPathFor(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// resolveRelativePath resolves a relationship target against the directory
// of the part that declared it. Leading "/" marks a package-absolute target.
func resolveRelativePath(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(baseDir, target)
}

// conventionalDrawingPath returns the drawing entry spreadsheet writers use
// for the sheet at the given index.
func conventionalDrawingPath(sheetIndex int) string {
	return "xl/drawings/drawing" + strconv.Itoa(sheetIndex+1) + ".xml"
}

// parseWorkbookSheets returns the workbook's sheets in declaration order.
func parseWorkbookSheets(data []byte) []workbookSheet {
	var result []workbookSheet
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var s workbookSheet
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					s.name = attr.Value
				case "id":
					s.rID = attr.Value
				}
			}
			if s.name != "" && s.rID != "" {
				result = append(result, s)
			}
		}
	}

	return result
}

// parseWorkbookRels maps worksheet relationship ids to worksheet entries.
func parseWorkbookRels(data []byte) map[string]string {
	result := make(map[string]string)
	for _, rel := range parseRelationships(data) {
		if strings.HasSuffix(rel.relType, "/worksheet") {
			result[rel.id] = resolveRelativePath(rel.target, "xl")
		}
	}
	return result
}

// findDrawingRelationship returns the target of the sheet's drawing part.
// Legacy VML drawings (comments, form controls) never hold anchored pictures.
func findDrawingRelationship(data []byte) string {
	for _, rel := range parseRelationships(data) {
		if strings.HasSuffix(rel.relType, "/drawing") {
			return rel.target
		}
	}
	return ""
}
