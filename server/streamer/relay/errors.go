package relay

import (
	"github.com/zeebo/errs"

	"renamer/server/streamer/source"
)

var (
	NotFoundError       = errs.Class("not found")
	MalformedRangeError = errs.Class("malformed range")

	// errs compares classes by address, so share the source's class.
	TransientResolutionError = &source.TransientError
)

var (
	ErrLinkExpired = NotFoundError.New("Link Expired")
	ErrFileMissing = NotFoundError.New("File Missing")
)
