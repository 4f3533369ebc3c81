// Package models defines data structures for REF picture extraction and upload.
package models

// Anchor represents one embedded picture's cell position and source reference.
type Anchor struct {
	// Column is the anchor's starting column (0-based).
	Column int `json:"column"`
	// Row is the anchor's starting row (0-based).
	Row int `json:"row"`
	// ReferenceID is the drawing relationship id of the picture (e.g. rId3).
	ReferenceID string `json:"reference_id"`
	// SourceEntry is the resolved media entry name (e.g. xl/media/image1.png).
	// Empty until relationship resolution succeeds.
	SourceEntry string `json:"source_entry,omitempty"`
	// Kind is the drawing element the anchor was read from.
	Kind string `json:"kind"`
}

// Resolved reports whether the anchor's media entry is known.
func (a Anchor) Resolved() bool {
	return a.SourceEntry != ""
}
