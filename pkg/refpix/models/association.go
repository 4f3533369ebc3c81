package models

// Association pairs one REF row with the bytes of its anchored picture.
type Association struct {
	// Ref is the business identifier of the row.
	Ref string
	// Row is the spreadsheet row number (1-based).
	Row int
	// ReferenceID is the drawing relationship id the picture came from.
	ReferenceID string
	// SourceEntry is the media entry the bytes were read from.
	SourceEntry string
	// Data holds the image bytes. It is never modified after creation.
	Data []byte
	// Format is the format detected from Data's signature during extraction.
	// Uploads of FormatUnknown are rejected without a transfer.
	Format ImageFormat
	// ReadErr is set when the media entry could not be read from the container.
	ReadErr error
}
