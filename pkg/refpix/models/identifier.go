package models

// RowIdentifier is a business identifier (REF) extracted from a sheet row.
type RowIdentifier struct {
	// Row is the spreadsheet row number (1-based).
	Row int `json:"row"`
	// Ref is the trimmed, non-empty identifier.
	Ref string `json:"ref"`
}
