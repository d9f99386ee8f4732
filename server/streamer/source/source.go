package source

import (
	"context"

	"github.com/zeebo/errs"

	"renamer/server/records/domain"
)

// TransientError marks resolution failures that a refresh may cure, such as a
// stale channel access hash or a client that is still connecting.
var TransientError = errs.Class("transient resolution")

// Handle is a resolved media item. Location is owned by the Source that
// produced it.
type Handle struct {
	Locator  domain.Locator
	Size     int64
	FileName string
	MimeType string
	Kind     domain.MediaKind
	Location any
}

type Source interface {
	Resolve(ctx context.Context, loc domain.Locator) (*Handle, error)
	Refresh(ctx context.Context, container int64) error
	Stream(ctx context.Context, h *Handle, offset int64) (ChunkIter, error)
}

// ChunkIter yields ordered chunks starting at the requested offset. The slice
// returned by Chunk is only valid until the next call to Next.
type ChunkIter interface {
	Next(ctx context.Context) bool
	Chunk() []byte
	Err() error
	Close() error
}
