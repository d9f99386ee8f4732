package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	commonlog "renamer/server/common/log"
	"renamer/server/records/domain"
	"renamer/server/records/repository"
	objectsource "renamer/server/streamer/source/object"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type IngestRequest struct {
	Locator     domain.Locator
	DisplayName string
	ContentType string
	Size        int64
	Body        io.Reader
}

type IngestResult struct {
	Record domain.MediaRecord
	Link   string
}

// IngestService mirrors a file into the object bucket under its locator and
// records it, so the object source can serve it.
type IngestService struct {
	objects   objectPutter
	store     repository.Store
	bucket    string
	publicURL string
	newToken  func() (string, error)
	now       func() time.Time
}

func NewIngestService(objects objectPutter, store repository.Store, bucket, publicURL string) *IngestService {
	return &IngestService{
		objects:   objects,
		store:     store,
		bucket:    bucket,
		publicURL: publicURL,
		newToken:  domain.NewToken,
		now:       time.Now,
	}
}

func (s *IngestService) Put(ctx context.Context, req IngestRequest) (IngestResult, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return IngestResult{}, errors.New("display name is required")
	}
	if req.Locator.MessageID <= 0 {
		return IngestResult{}, errors.New("message id must be positive")
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectsource.Key(req.Locator)
	info, err := s.objects.PutObject(ctx, s.bucket, key, req.Body, req.Size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{objectsource.FilenameMeta: name},
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("upload %s: %w", key, err)
	}

	token, err := s.newToken()
	if err != nil {
		return IngestResult{}, fmt.Errorf("generate token: %w", err)
	}
	rec := domain.MediaRecord{
		Token:        token,
		Locator:      req.Locator,
		DeclaredSize: info.Size,
		DisplayName:  name,
		Kind:         objectsource.KindOf(contentType),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return IngestResult{}, fmt.Errorf("save media record: %w", err)
	}
	commonlog.Infof("ingested %s (%d bytes) token=%s", key, info.Size, token)
	return IngestResult{Record: rec, Link: domain.DownloadLink(s.publicURL, token)}, nil
}
