package types

import (
	"errors"
	"time"
)

// FileRecord describes one candidate file discovered by the scanner: its
// absolute path, byte size, and modification time. Hashing is expensive, so
// the content hash starts empty and is filled in lazily once deduplication
// needs it.
type FileRecord struct {
	Path    string
	Size    int64
	ModTime time.Time
	Hash    string // lowercase hex sha256 of contents; empty until computed
}

// Validate checks the fields the scanner must populate.
func (r *FileRecord) Validate() error {
	if r.Path == "" {
		return errors.New("file record path cannot be empty")
	}
	if r.Size < 0 {
		return errors.New("file record size cannot be negative")
	}
	return nil
}
