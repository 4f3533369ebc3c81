package models

import "time"

// RunStatistics is the aggregate result of one extraction-and-upload run.
type RunStatistics struct {
	// RunID uniquely identifies the run in logs and reports.
	RunID string `json:"run_id"`
	// File is the input workbook name (no path).
	File string `json:"file"`
	// Sheet is the sheet that was read.
	Sheet string `json:"sheet"`
	// StartRow is the first data row (1-based).
	StartRow int `json:"start_row"`
	// PhotoColumn is the column letter holding anchored pictures.
	PhotoColumn string `json:"photo_column"`
	// TotalRefs is the number of valid REF rows.
	TotalRefs int `json:"total_refs"`
	// ImagesFound is the number of associations produced.
	ImagesFound int `json:"images_found"`
	// UploadsSuccessful is the number of associations stored.
	UploadsSuccessful int `json:"uploads_successful"`
	// UploadsFailed is the number of associations that failed.
	UploadsFailed int `json:"uploads_failed"`
	// Errors holds one message per failed association, in row order.
	Errors []string `json:"errors"`
	// Warnings holds soft-degradation diagnostics that did not fail any row.
	Warnings []string `json:"warnings,omitempty"`
	// Results holds one entry per association, in row order.
	Results []UploadResult `json:"results,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run completed.
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunStatistics returns empty statistics with non-nil error list.
func NewRunStatistics() *RunStatistics {
	return &RunStatistics{Errors: []string{}}
}

// Complete reports whether every association reached a terminal outcome.
func (s *RunStatistics) Complete() bool {
	return s.UploadsSuccessful+s.UploadsFailed == s.ImagesFound
}
