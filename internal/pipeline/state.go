// Package pipeline orchestrates the per-file indexing state machine: scan,
// size check, dedup, extract, clean, chunk, embed, upload. Failures are
// isolated per file; one bad document never aborts the run.
package pipeline

// State is a file's position in the indexing state machine.
type State string

const (
	StateScanned      State = "scanned"
	StateSizeChecked  State = "size_checked"
	StateDeduplicated State = "deduplicated"
	StateExtracted    State = "extracted"
	StateCleaned      State = "cleaned"
	StateChunked      State = "chunked"
	StateEmbedded     State = "embedded"
	StateUploaded     State = "uploaded"

	// Terminal states.
	StateDone    State = "done"
	StateSkipped State = "skipped"
	StateFailed  State = "failed"
)

// Failure reasons recorded on FileResult and in the report.
const (
	ReasonTooLarge        = "too large"
	ReasonUnreadable      = "unreadable file"
	ReasonNoText          = "no text extracted"
	ReasonLowQuality      = "low text quality"
	ReasonChunkingFailed  = "chunking failed"
	ReasonEmbeddingFailed = "embedding failed"
	ReasonUploadFailed    = "upload failed"
	ReasonAlreadyIndexed  = "already indexed"
)

// FileResult is the outcome of one file's trip through the state machine.
type FileResult struct {
	Path      string
	State     State
	Reason    string // set for Skipped and Failed
	Fragments int    // fragments uploaded for Done files
}

// Terminal reports whether the state machine has finished with this file.
func (r *FileResult) Terminal() bool {
	return r.State == StateDone || r.State == StateSkipped || r.State == StateFailed
}
