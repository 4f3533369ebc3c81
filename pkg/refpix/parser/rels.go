package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

// ErrRelationshipsMissing indicates the drawing has no relationship index.
// Callers treat it as zero images rather than a failed run.
var ErrRelationshipsMissing = errors.New("drawing relationships missing")

// ErrMalformedRelationships indicates the relationship index could not be fully parsed.
var ErrMalformedRelationships = errors.New("drawing relationships malformed")

const mediaDir = "xl/media"

type relationship struct {
	id         string
	relType    string
	target     string
	targetMode string
}

// ResolveImageReferences maps each image relationship id of the drawing to the
// media entry holding its bytes. Relationships of other types and external
// (linked) images are ignored.
//
// When the relationship index is absent it returns an empty mapping and
// ErrRelationshipsMissing. A partially malformed index yields the entries read
// before the fault together with ErrMalformedRelationships.
func ResolveImageReferences(c *Container, drawingPath string) (map[string]string, error) {
	result := make(map[string]string)

	data, err := c.ReadEntry(relsPathFor(drawingPath))
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return result, fmt.Errorf("%w: %s", ErrRelationshipsMissing, relsPathFor(drawingPath))
		}
		return result, err
	}

	rels, parseErr := decodeRelationships(data)
	for _, rel := range rels {
		if !isImageRelationship(rel) {
			continue
		}
		result[rel.id] = mediaEntryFor(c, rel.target, path.Dir(drawingPath))
	}

	if parseErr != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedRelationships, parseErr)
	}
	return result, nil
}

// isImageRelationship reports whether rel points at an embedded image part.
func isImageRelationship(rel relationship) bool {
	if strings.EqualFold(rel.targetMode, "External") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(rel.relType), "/image")
}

// mediaEntryFor resolves an image target to an archive entry. Writers that emit
// unusual relative targets still store media under xl/media, so the basename
// is tried there when the resolved path is absent.
func mediaEntryFor(c *Container, target, baseDir string) string {
	resolved := resolveRelativePath(target, baseDir)
	if c.Has(resolved) {
		return resolved
	}
	return mediaDir + "/" + path.Base(target)
}

// parseRelationships returns every relationship it can read from data.
func parseRelationships(data []byte) []relationship {
	rels, _ := decodeRelationships(data)
	return rels
}

// decodeRelationships streams Relationship elements out of a .rels part,
// returning those read before any decoding error.
func decodeRelationships(data []byte) ([]relationship, error) {
	var result []relationship
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}

		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var rel relationship
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					rel.id = attr.Value
				case "Target":
					rel.target = attr.Value
				case "Type":
					rel.relType = attr.Value
				case "TargetMode":
					rel.targetMode = attr.Value
				}
			}
			if rel.id != "" && rel.target != "" {
				result = append(result, rel)
			}
		}
	}
}

// ErrUnresolvedReference indicates an anchor names a relationship id absent
// from the drawing's image relationships.
var ErrUnresolvedReference = errors.New("unresolved image reference")

// AttachSources fills each anchor's SourceEntry from refs. Anchors whose
// reference id is unknown are dropped and reported.
func AttachSources(anchors []models.Anchor, refs map[string]string) ([]models.Anchor, []error) {
	resolved := make([]models.Anchor, 0, len(anchors))
	var diagnostics []error
	for _, a := range anchors {
		entry, ok := refs[a.ReferenceID]
		if !ok || entry == "" {
			diagnostics = append(diagnostics, fmt.Errorf("%w: %s at column %d row %d", ErrUnresolvedReference, a.ReferenceID, a.Column, a.Row+1))
			continue
		}
		a.SourceEntry = entry
		resolved = append(resolved, a)
	}
	return resolved, diagnostics
}
