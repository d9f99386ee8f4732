package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"renamer/server/records/domain"
)

// partIter pulls PartSize blocks from an aligned offset and trims the first
// block down to the requested byte.
type partIter struct {
	src     *Source
	api     rpc
	locator domain.Locator
	loc     fileLocation
	size    int64

	next  int64
	skip  int
	chunk []byte
	err   error
	done  bool
}

func alignOffset(offset int64) (aligned int64, skip int) {
	aligned = offset - offset%PartSize
	return aligned, int(offset - aligned)
}

func newPartIter(src *Source, api rpc, locator domain.Locator, loc fileLocation, size, offset int64) *partIter {
	aligned, skip := alignOffset(offset)
	return &partIter{src: src, api: api, locator: locator, loc: loc, size: size, next: aligned, skip: skip}
}

func (it *partIter) Next(ctx context.Context) bool {
	for {
		if it.done || it.err != nil {
			return false
		}
		if it.size > 0 && it.next >= it.size {
			it.done = true
			return false
		}

		data, err := it.fetch(ctx, it.next)
		if err != nil {
			it.err = err
			return false
		}
		if len(data) == 0 {
			it.done = true
			return false
		}
		it.next += int64(len(data))
		if len(data) < PartSize {
			it.done = true
		}

		if it.skip > 0 {
			if it.skip >= len(data) {
				it.skip -= len(data)
				continue
			}
			data = data[it.skip:]
			it.skip = 0
		}
		it.chunk = data
		return true
	}
}

func (it *partIter) fetch(ctx context.Context, offset int64) ([]byte, error) {
	req := &tg.UploadGetFileRequest{
		Location: it.loc.input,
		Offset:   offset,
		Limit:    PartSize,
	}
	res, err := it.api.UploadGetFile(ctx, req)
	if err != nil {
		api, migrated, merr := it.src.migrate(ctx, err)
		switch {
		case merr != nil:
			return nil, merr
		case migrated:
			it.api = api
			res, err = it.api.UploadGetFile(ctx, req)
		}
	}
	if err != nil {
		if tgerr.Is(err, "FILE_REFERENCE_EXPIRED") {
			it.src.handles.Delete(it.locator)
		}
		return nil, fmt.Errorf("get file part at %d: %w", offset, err)
	}

	switch r := res.(type) {
	case *tg.UploadFile:
		return r.Bytes, nil
	default:
		return nil, fmt.Errorf("unexpected upload result %T", res)
	}
}

func (it *partIter) Chunk() []byte { return it.chunk }

func (it *partIter) Err() error { return it.err }

func (it *partIter) Close() error {
	it.done = true
	it.chunk = nil
	return nil
}
