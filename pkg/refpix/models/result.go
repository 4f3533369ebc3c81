package models

// UploadStatus is the terminal state of one association's upload.
type UploadStatus string

const (
	// StatusSucceeded means the bytes were stored at the destination key.
	StatusSucceeded UploadStatus = "succeeded"
	// StatusFailed means the association will not be stored in this run.
	StatusFailed UploadStatus = "failed"
)

// Failure reasons recorded on failed uploads.
const (
	ReasonUnsupportedFormat = "UnsupportedFormat"
	ReasonMissingMedia      = "MissingMedia"
	ReasonTransient         = "TransferTransient"
	ReasonPermanent         = "TransferPermanent"
	ReasonDeadlineExceeded  = "DeadlineExceeded"
)

// UploadResult is the outcome of one association.
type UploadResult struct {
	// Ref is the business identifier of the row.
	Ref string `json:"ref"`
	// Row is the spreadsheet row number (1-based).
	Row int `json:"row"`
	// Key is the destination path in the remote store.
	Key string `json:"key,omitempty"`
	// Format is the detected image format.
	Format ImageFormat `json:"format"`
	// Size is the number of bytes handed to the store.
	Size int `json:"size"`
	// Checksum is the xxhash64 digest (hex) of the uploaded bytes.
	Checksum string `json:"checksum,omitempty"`
	// Attempts is the number of transfer attempts made.
	Attempts int `json:"attempts"`
	// Status is the terminal state.
	Status UploadStatus `json:"status"`
	// Reason is the failure reason code for failed uploads.
	Reason string `json:"reason,omitempty"`
	// Error is the last error message, verbatim.
	Error string `json:"error,omitempty"`
	// URL is the public URL of the stored object, when configured.
	URL string `json:"url,omitempty"`
}
