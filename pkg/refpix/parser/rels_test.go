package parser

import (
	"errors"
	"testing"

	"github.com/ukaji3/refpix-go/internal/xlsxtest"
	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

const drawingRelsPath = "xl/drawings/_rels/drawing1.xml.rels"

func picturesWorkbook(t *testing.T) string {
	t.Helper()
	return xlsxtest.Workbook(t, map[string]string{"A4": "SKU-1", "A5": "SKU-2"}, []xlsxtest.Picture{
		{Cell: "H4", Extension: ".png", Data: xlsxtest.PNG(t, 10)},
		{Cell: "H5", Extension: ".jpg", Data: xlsxtest.JPEG(t, 20)},
	})
}

func TestDecodeRelationships(t *testing.T) {
	data := []byte(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="http://example.com/a.png" TargetMode="External"/>
  <Relationship Id="" Type="x" Target="ignored"/>
</Relationships>`)

	rels, err := decodeRelationships(data)
	if err != nil {
		t.Fatalf("decodeRelationships failed: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("Expected 2 relationships, got %d", len(rels))
	}
	if rels[1].targetMode != "External" {
		t.Errorf("targetMode = %q", rels[1].targetMode)
	}
	if isImageRelationship(rels[1]) {
		t.Error("external image should not count as embedded")
	}
	if !isImageRelationship(rels[0]) {
		t.Error("rId1 should be an image relationship")
	}
}

func TestDecodeRelationshipsMalformed(t *testing.T) {
	data := []byte(`<Relationships>
  <Relationship Id="rId1" Type="a/image" Target="../media/image1.png"/>
  <Relationship Id="rId2" Type="a/image" Target="../media/image2.png"`)

	rels, err := decodeRelationships(data)
	if err == nil {
		t.Error("Expected a decoding error")
	}
	if len(rels) != 1 || rels[0].id != "rId1" {
		t.Errorf("Expected entries before the fault, got %+v", rels)
	}
}

func TestResolveImageReferences(t *testing.T) {
	c, err := OpenContainer(picturesWorkbook(t))
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	defer c.Close()

	refs, err := ResolveImageReferences(c, "xl/drawings/drawing1.xml")
	if err != nil {
		t.Fatalf("ResolveImageReferences failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("Expected 2 image references, got %v", refs)
	}
	for id, entry := range refs {
		if !c.Has(entry) {
			t.Errorf("%s resolves to %q, which is not in the archive", id, entry)
		}
	}
}

func TestResolveImageReferencesFiltersTypes(t *testing.T) {
	rels := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart" Target="../charts/chart1.xml"/>
  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="https://example.com/x.png" TargetMode="External"/>
  <Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="odd/place/image2.jpg"/>
</Relationships>`)
	path := xlsxtest.Rewrite(t, picturesWorkbook(t), map[string][]byte{drawingRelsPath: rels})

	c, err := OpenContainer(path)
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	defer c.Close()

	refs, err := ResolveImageReferences(c, "xl/drawings/drawing1.xml")
	if err != nil {
		t.Fatalf("ResolveImageReferences failed: %v", err)
	}

	expected := map[string]string{
		"rId1": "xl/media/image1.png",
		"rId4": "xl/media/image2.jpg",
	}
	if len(refs) != len(expected) {
		t.Fatalf("refs = %v, expected %v", refs, expected)
	}
	for id, entry := range expected {
		if refs[id] != entry {
			t.Errorf("refs[%s] = %q, expected %q", id, refs[id], entry)
		}
	}
}

func TestResolveImageReferencesMissingRels(t *testing.T) {
	path := xlsxtest.Rewrite(t, picturesWorkbook(t), map[string][]byte{drawingRelsPath: nil})

	c, err := OpenContainer(path)
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	defer c.Close()

	refs, err := ResolveImageReferences(c, "xl/drawings/drawing1.xml")
	if !errors.Is(err, ErrRelationshipsMissing) {
		t.Errorf("Expected ErrRelationshipsMissing, got %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("Expected empty mapping, got %v", refs)
	}
}

func TestAttachSources(t *testing.T) {
	anchors := []models.Anchor{
		{Column: 7, Row: 3, ReferenceID: "rId1"},
		{Column: 7, Row: 4, ReferenceID: "rId9"},
	}
	refs := map[string]string{"rId1": "xl/media/image1.png"}

	resolved, diagnostics := AttachSources(anchors, refs)
	if len(resolved) != 1 || resolved[0].SourceEntry != "xl/media/image1.png" {
		t.Errorf("resolved = %+v", resolved)
	}
	if !resolved[0].Resolved() {
		t.Error("attached anchor should report Resolved")
	}
	if len(diagnostics) != 1 || !errors.Is(diagnostics[0], ErrUnresolvedReference) {
		t.Errorf("diagnostics = %v", diagnostics)
	}
}
