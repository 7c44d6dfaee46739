package handoff

import (
	"context"

	"fileshare/upload"
)

// Handoff moves a finalized upload to permanent storage and returns its
// durable file identifier. The temp file must be left in place on failure so
// the transfer can be retried.
type Handoff interface {
	Transfer(ctx context.Context, desc *upload.FileDescriptor) (string, error)
}
