package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound covers both unknown and expired upload ids.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrIncomplete is returned by Finalize while chunks are still missing.
	ErrIncomplete = errors.New("upload incomplete")
)

// ValidationError rejects an upload at initialization. No session is created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ChunkMismatchError means a chunk's metadata disagrees with the stored
// session, usually a client sending chunks for the wrong logical upload.
type ChunkMismatchError struct {
	Field string
	Got   int64
	Want  int64
}

func (e *ChunkMismatchError) Error() string {
	return fmt.Sprintf("chunk mismatch on %s: got %d, session has %d", e.Field, e.Got, e.Want)
}

// SizeMismatchError means the on-disk byte count disagrees with the declared
// total size after all chunks arrived.
type SizeMismatchError struct {
	Got  int64
	Want int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: file is %d bytes, declared %d", e.Got, e.Want)
}

// HandoffError wraps a failure of the permanent storage backend. The temp
// file is kept so the handoff can be retried.
type HandoffError struct {
	Err error
}

func (e *HandoffError) Error() string {
	return "handoff failed: " + e.Err.Error()
}

func (e *HandoffError) Unwrap() error {
	return e.Err
}
