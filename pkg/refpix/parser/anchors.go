package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

// Anchor element kinds as reported in models.Anchor.Kind.
const (
	KindTwoCell  = "twoCellAnchor"
	KindOneCell  = "oneCellAnchor"
	KindAbsolute = "absoluteAnchor"
)

var (
	errNotPicture    = errors.New("anchor holds no picture")
	errMissingFrom   = errors.New("anchor has no from marker")
	errMissingEmbed  = errors.New("picture has no embedded image reference")
	errLinkedPicture = errors.New("picture is linked, not embedded")
	errNoCellAnchor  = errors.New("absolute anchor has no cell position")
)

// AnchorError describes an anchor element that was skipped.
type AnchorError struct {
	// Index is the anchor's 0-based position in document order.
	Index int
	// Kind is the anchor element name.
	Kind string
	Err  error
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *AnchorError) Unwrap() error {
	return e.Err
}

// cellMarker is the raw text of an xdr:from element.
type cellMarker struct {
	col, row string
}

// rawAnchor is one anchor element as found in the document. Exactly one of
// from (cell anchors) or pos (absolute anchors) is meaningful, chosen by kind.
type rawAnchor struct {
	kind   string
	index  int
	from   *cellMarker
	pos    *emuPoint
	hasPic bool
	embed  string
	link   string
	err    error
}

// canonical resolves the encoding to a single Anchor record.
func (r rawAnchor) canonical() (models.Anchor, error) {
	if r.err != nil {
		return models.Anchor{}, r.err
	}
	if !r.hasPic {
		return models.Anchor{}, errNotPicture
	}

	var col, row int
	switch r.kind {
	case KindTwoCell, KindOneCell:
		if r.from == nil || r.from.col == "" || r.from.row == "" {
			return models.Anchor{}, errMissingFrom
		}
		var err error
		if col, err = parseIndex("col", r.from.col); err != nil {
			return models.Anchor{}, err
		}
		if row, err = parseIndex("row", r.from.row); err != nil {
			return models.Anchor{}, err
		}
	case KindAbsolute:
		if r.pos != nil {
			return models.Anchor{}, fmt.Errorf("%w at %s", errNoCellAnchor, r.pos)
		}
		return models.Anchor{}, errNoCellAnchor
	default:
		return models.Anchor{}, fmt.Errorf("unknown anchor kind %q", r.kind)
	}

	switch {
	case r.embed != "":
	case r.link != "":
		return models.Anchor{}, errLinkedPicture
	default:
		return models.Anchor{}, errMissingEmbed
	}

	return models.Anchor{
		Column:      col,
		Row:         row,
		ReferenceID: r.embed,
		Kind:        r.kind,
	}, nil
}

func parseIndex(name, text string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, text)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative %s %d", name, v)
	}
	return v, nil
}

// ParseAnchors reads the drawing entry and returns its picture anchors in
// document order. Anchors that cannot be placed in a cell are skipped and
// reported as *AnchorError values; shapes and charts are skipped silently.
func ParseAnchors(c *Container, drawingPath string) ([]models.Anchor, []error) {
	if drawingPath == "" {
		return nil, nil
	}
	data, err := c.ReadEntry(drawingPath)
	if err != nil {
		return nil, []error{err}
	}
	return parseDrawingXML(data)
}

// parseDrawingXML parses drawing XML content.
func parseDrawingXML(data []byte) ([]models.Anchor, []error) {
	var anchors []models.Anchor
	var diagnostics []error
	index := 0

	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			diagnostics = append(diagnostics, fmt.Errorf("drawing truncated after %d anchors: %w", index, err))
			break
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case KindTwoCell, KindOneCell, KindAbsolute:
			raw := parseAnchor(decoder, se.Name.Local)
			raw.index = index
			index++

			anchor, err := raw.canonical()
			switch {
			case err == nil:
				anchors = append(anchors, anchor)
			case errors.Is(err, errNotPicture):
			default:
				diagnostics = append(diagnostics, &AnchorError{Index: raw.index, Kind: raw.kind, Err: err})
			}
		case "Fallback":
			// mc:AlternateContent repeats its anchors in the fallback branch.
			if err := decoder.Skip(); err != nil {
				diagnostics = append(diagnostics, fmt.Errorf("drawing truncated after %d anchors: %w", index, err))
				return anchors, diagnostics
			}
		}
	}

	return anchors, diagnostics
}

// parseAnchor parses an anchor element up to its end tag.
func parseAnchor(decoder *xml.Decoder, kind string) rawAnchor {
	raw := rawAnchor{kind: kind}
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			raw.err = fmt.Errorf("malformed anchor: %w", err)
			return raw
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "from":
				marker, err := parseCellMarker(decoder)
				if err != nil {
					raw.err = err
					return raw
				}
				raw.from = &marker
				depth--
			case "to", "ext", "clientData":
				if err := decoder.Skip(); err != nil {
					raw.err = fmt.Errorf("malformed anchor: %w", err)
					return raw
				}
				depth--
			case "pos":
				raw.pos = parsePos(t)
			case "pic":
				raw.hasPic = true
				embed, link, err := parsePicture(decoder)
				if err != nil {
					raw.err = err
					return raw
				}
				raw.embed, raw.link = embed, link
				depth--
			case "Fallback":
				if err := decoder.Skip(); err != nil {
					raw.err = fmt.Errorf("malformed anchor: %w", err)
					return raw
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return raw
}

// parseCellMarker reads the col and row children of a from element.
func parseCellMarker(decoder *xml.Decoder) (cellMarker, error) {
	var m cellMarker
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return m, fmt.Errorf("malformed from marker: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "col":
				if m.col, err = readElementText(decoder); err != nil {
					return m, fmt.Errorf("malformed from marker: %w", err)
				}
				depth--
			case "row":
				if m.row, err = readElementText(decoder); err != nil {
					return m, fmt.Errorf("malformed from marker: %w", err)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	return m, nil
}

// parsePicture finds the blip of a pic element, returning its embed and link ids.
func parsePicture(decoder *xml.Decoder) (embed, link string, err error) {
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return embed, link, fmt.Errorf("malformed picture: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "blip" && embed == "" && link == "" {
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "embed":
						embed = attr.Value
					case "link":
						link = attr.Value
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return embed, link, nil
}

func parsePos(se xml.StartElement) *emuPoint {
	var p emuPoint
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "x":
			p.x, _ = strconv.ParseInt(attr.Value, 10, 64)
		case "y":
			p.y, _ = strconv.ParseInt(attr.Value, 10, 64)
		}
	}
	return &p
}

func readElementText(decoder *xml.Decoder) (string, error) {
	var text string
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text, err
		}
		switch t := token.(type) {
		case xml.CharData:
			text += string(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text, nil
}
