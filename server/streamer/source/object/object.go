package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"renamer/server/records/domain"
	"renamer/server/streamer/source"
)

const (
	DefaultChunkSize = 512 * 1024
	// FilenameMeta is the user metadata key holding the original file name.
	FilenameMeta    = "Filename"
	filenameMetaKey = "X-Amz-Meta-" + FilenameMeta
)

type objectAPI interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	OpenRange(ctx context.Context, bucket, key string, offset int64) (io.ReadCloser, error)
}

type minioAPI struct {
	*minio.Client
}

func (m minioAPI) OpenRange(ctx context.Context, bucket, key string, offset int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	// SetRange(0, 0) would ask for a single byte
	if offset > 0 {
		if err := opts.SetRange(offset, 0); err != nil {
			return nil, err
		}
	}
	return m.GetObject(ctx, bucket, key, opts)
}

// Source serves media mirrored into a bucket as <container>/<message>.
type Source struct {
	api       objectAPI
	bucket    string
	chunkSize int
	handles   *source.HandleCache
}

func NewSource(client *minio.Client, bucket string, chunkSize int, handles *source.HandleCache) *Source {
	return newSource(minioAPI{client}, bucket, chunkSize, handles)
}

func newSource(api objectAPI, bucket string, chunkSize int, handles *source.HandleCache) *Source {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Source{api: api, bucket: bucket, chunkSize: chunkSize, handles: handles}
}

func Key(loc domain.Locator) string {
	return fmt.Sprintf("%d/%d", loc.ContainerID, loc.MessageID)
}

func (s *Source) Resolve(ctx context.Context, loc domain.Locator) (*source.Handle, error) {
	if h, ok := s.handles.Get(loc); ok {
		return h, nil
	}
	info, err := s.api.StatObject(ctx, s.bucket, Key(loc), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s: %w", Key(loc), err)
		}
		return nil, source.TransientError.Wrap(err)
	}

	h := &source.Handle{
		Locator:  loc,
		Size:     info.Size,
		FileName: filenameOf(info),
		MimeType: info.ContentType,
		Kind:     KindOf(info.ContentType),
		Location: Key(loc),
	}
	s.handles.Set(h)
	return h, nil
}

func (s *Source) Refresh(ctx context.Context, container int64) error {
	ok, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	s.handles.PurgeContainer(container)
	return nil
}

func (s *Source) Stream(ctx context.Context, h *source.Handle, offset int64) (source.ChunkIter, error) {
	key, ok := h.Location.(string)
	if !ok {
		return nil, fmt.Errorf("handle for message %d was not resolved by object storage", h.Locator.MessageID)
	}
	rc, err := s.api.OpenRange(ctx, s.bucket, key, offset)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return &readerIter{rc: rc, buf: make([]byte, s.chunkSize)}, nil
}

func filenameOf(info minio.ObjectInfo) string {
	if name := info.Metadata.Get(filenameMetaKey); name != "" {
		return name
	}
	return info.UserMetadata[FilenameMeta]
}

// KindOf maps a content type to the closest media kind.
func KindOf(contentType string) domain.MediaKind {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return domain.KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return domain.KindAudio
	default:
		return domain.KindDocument
	}
}

// readerIter reuses one buffer for every chunk.
type readerIter struct {
	rc    io.ReadCloser
	buf   []byte
	chunk []byte
	err   error
	done  bool
}

func (it *readerIter) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		return false
	}
	n, err := io.ReadFull(it.rc, it.buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		it.done = true
	case err != nil:
		it.err = err
		return false
	}
	if n == 0 {
		return false
	}
	it.chunk = it.buf[:n]
	return true
}

func (it *readerIter) Chunk() []byte { return it.chunk }

func (it *readerIter) Err() error { return it.err }

func (it *readerIter) Close() error {
	it.done = true
	return it.rc.Close()
}
