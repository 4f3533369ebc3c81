package parser

import (
	"errors"
	"strings"
	"testing"
)

const drawingHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<xdr:wsDr xmlns:xdr="http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing"
  xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
  xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
  xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">`

const drawingFooter = `</xdr:wsDr>`

func drawing(body ...string) []byte {
	return []byte(drawingHeader + strings.Join(body, "\n") + drawingFooter)
}

func twoCellPic(col, row, embed string) string {
	return `<xdr:twoCellAnchor editAs="oneCell">
  <xdr:from><xdr:col>` + col + `</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>` + row + `</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from>
  <xdr:to><xdr:col>99</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>99</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:to>
  <xdr:pic>
    <xdr:nvPicPr><xdr:cNvPr id="2" name="Picture 1"/><xdr:cNvPicPr/></xdr:nvPicPr>
    <xdr:blipFill><a:blip r:embed="` + embed + `"/><a:stretch><a:fillRect/></a:stretch></xdr:blipFill>
    <xdr:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="100" cy="100"/></a:xfrm><a:prstGeom prst="rect"/></xdr:spPr>
  </xdr:pic>
  <xdr:clientData/>
</xdr:twoCellAnchor>`
}

func oneCellPic(col, row, embed string) string {
	return `<xdr:oneCellAnchor>
  <xdr:from><xdr:col>` + col + `</xdr:col><xdr:colOff>9525</xdr:colOff><xdr:row>` + row + `</xdr:row><xdr:rowOff>9525</xdr:rowOff></xdr:from>
  <xdr:ext cx="952500" cy="952500"/>
  <xdr:pic>
    <xdr:nvPicPr><xdr:cNvPr id="3" name="Picture 2"/><xdr:cNvPicPr/></xdr:nvPicPr>
    <xdr:blipFill><a:blip r:embed="` + embed + `"/></xdr:blipFill>
    <xdr:spPr/>
  </xdr:pic>
  <xdr:clientData/>
</xdr:oneCellAnchor>`
}

const absolutePic = `<xdr:absoluteAnchor>
  <xdr:pos x="952500" y="1905000"/>
  <xdr:ext cx="952500" cy="952500"/>
  <xdr:pic><xdr:blipFill><a:blip r:embed="rId9"/></xdr:blipFill></xdr:pic>
  <xdr:clientData/>
</xdr:absoluteAnchor>`

const textShape = `<xdr:twoCellAnchor>
  <xdr:from><xdr:col>1</xdr:col><xdr:row>1</xdr:row></xdr:from>
  <xdr:to><xdr:col>2</xdr:col><xdr:row>2</xdr:row></xdr:to>
  <xdr:sp><xdr:txBody><a:p><a:r><a:t>Note</a:t></a:r></a:p></xdr:txBody></xdr:sp>
  <xdr:clientData/>
</xdr:twoCellAnchor>`

const linkedPic = `<xdr:oneCellAnchor>
  <xdr:from><xdr:col>7</xdr:col><xdr:row>8</xdr:row></xdr:from>
  <xdr:ext cx="1" cy="1"/>
  <xdr:pic><xdr:blipFill><a:blip r:link="rId5"/></xdr:blipFill></xdr:pic>
  <xdr:clientData/>
</xdr:oneCellAnchor>`

func TestParseDrawingXMLAnchorVariants(t *testing.T) {
	anchors, diagnostics := parseDrawingXML(drawing(
		twoCellPic("7", "3", "rId1"),
		oneCellPic("7", "4", "rId2"),
	))

	if len(diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diagnostics)
	}
	if len(anchors) != 2 {
		t.Fatalf("Expected 2 anchors, got %d", len(anchors))
	}

	tests := []struct {
		col, row int
		ref      string
		kind     string
	}{
		{7, 3, "rId1", KindTwoCell},
		{7, 4, "rId2", KindOneCell},
	}
	for i, tt := range tests {
		a := anchors[i]
		if a.Column != tt.col || a.Row != tt.row || a.ReferenceID != tt.ref || a.Kind != tt.kind {
			t.Errorf("anchor %d = %+v, expected col=%d row=%d ref=%s kind=%s",
				i, a, tt.col, tt.row, tt.ref, tt.kind)
		}
		if a.SourceEntry != "" {
			t.Errorf("anchor %d resolved before relationship lookup: %q", i, a.SourceEntry)
		}
	}
}

func TestParseDrawingXMLIgnoresToMarker(t *testing.T) {
	anchors, _ := parseDrawingXML(drawing(twoCellPic("2", "5", "rId1")))
	if len(anchors) != 1 {
		t.Fatalf("Expected 1 anchor, got %d", len(anchors))
	}
	if anchors[0].Column != 2 || anchors[0].Row != 5 {
		t.Errorf("anchor position = (%d, %d), expected (2, 5)", anchors[0].Column, anchors[0].Row)
	}
}

func TestParseDrawingXMLSkipsNonPictures(t *testing.T) {
	anchors, diagnostics := parseDrawingXML(drawing(textShape, twoCellPic("7", "3", "rId1")))
	if len(diagnostics) != 0 {
		t.Errorf("shapes should be skipped silently, got %v", diagnostics)
	}
	if len(anchors) != 1 || anchors[0].ReferenceID != "rId1" {
		t.Errorf("Expected only the picture anchor, got %+v", anchors)
	}
}

func TestParseDrawingXMLFailsSoftPerAnchor(t *testing.T) {
	tests := []struct {
		name    string
		element string
		wantErr error
	}{
		{"absolute", absolutePic, errNoCellAnchor},
		{"linked", linkedPic, errLinkedPicture},
		{"missing embed", twoCellPic("7", "3", ""), errMissingEmbed},
		{"missing row", `<xdr:oneCellAnchor><xdr:from><xdr:col>7</xdr:col></xdr:from><xdr:pic><xdr:blipFill><a:blip r:embed="rId1"/></xdr:blipFill></xdr:pic></xdr:oneCellAnchor>`, errMissingFrom},
		{"non-numeric col", twoCellPic("H", "3", "rId1"), nil},
		{"negative row", twoCellPic("7", "-1", "rId1"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchors, diagnostics := parseDrawingXML(drawing(tt.element, oneCellPic("7", "10", "rId7")))

			if len(anchors) != 1 || anchors[0].ReferenceID != "rId7" {
				t.Fatalf("Expected the following valid anchor to survive, got %+v", anchors)
			}
			if len(diagnostics) != 1 {
				t.Fatalf("Expected 1 diagnostic, got %v", diagnostics)
			}

			var anchorErr *AnchorError
			if !errors.As(diagnostics[0], &anchorErr) {
				t.Fatalf("diagnostic %v is not an *AnchorError", diagnostics[0])
			}
			if anchorErr.Index != 0 {
				t.Errorf("AnchorError.Index = %d, expected 0", anchorErr.Index)
			}
			if tt.wantErr != nil && !errors.Is(diagnostics[0], tt.wantErr) {
				t.Errorf("diagnostic = %v, expected %v", diagnostics[0], tt.wantErr)
			}
		})
	}
}

func TestParseDrawingXMLAlternateContent(t *testing.T) {
	doc := drawing(`<mc:AlternateContent>
  <mc:Choice Requires="a14">` + twoCellPic("7", "3", "rId1") + `</mc:Choice>
  <mc:Fallback>` + twoCellPic("7", "3", "rId1") + `</mc:Fallback>
</mc:AlternateContent>`)

	anchors, diagnostics := parseDrawingXML(doc)
	if len(diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diagnostics)
	}
	if len(anchors) != 1 {
		t.Errorf("Expected the fallback branch to be skipped, got %d anchors", len(anchors))
	}
}

func TestParseDrawingXMLTruncated(t *testing.T) {
	doc := []byte(drawingHeader + twoCellPic("7", "3", "rId1") + `<xdr:twoCellAnchor><xdr:from><xdr:col>7`)

	anchors, diagnostics := parseDrawingXML(doc)
	if len(anchors) != 1 {
		t.Errorf("Expected anchors before the fault to survive, got %d", len(anchors))
	}
	if len(diagnostics) == 0 {
		t.Error("Expected a diagnostic for the truncated anchor")
	}
}

func TestEMUToPixels(t *testing.T) {
	tests := []struct {
		emu      int64
		expected int
	}{
		{0, 0},
		{9525, 1},
		{952500, 100},
		{9524, 0},
	}
	for _, tt := range tests {
		if got := EMUToPixels(tt.emu); got != tt.expected {
			t.Errorf("EMUToPixels(%d) = %d, expected %d", tt.emu, got, tt.expected)
		}
	}
}
