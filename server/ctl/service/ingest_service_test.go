package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"renamer/server/records/domain"
)

type putCall struct {
	bucket, key string
	body        string
	opts        minio.PutObjectOptions
}

type fakePutter struct {
	calls []putCall
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	body, _ := io.ReadAll(r)
	f.calls = append(f.calls, putCall{bucket: bucket, key: key, body: string(body), opts: opts})
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(body))}, nil
}

type memStore struct {
	records []domain.MediaRecord
}

func (m *memStore) Lookup(ctx context.Context, token string) (domain.MediaRecord, error) {
	return domain.MediaRecord{}, errors.New("unused")
}

func (m *memStore) Insert(ctx context.Context, rec domain.MediaRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func TestIngestPut(t *testing.T) {
	objects := &fakePutter{}
	store := &memStore{}
	svc := NewIngestService(objects, store, "renamer-media", "https://dl.example.com")
	svc.newToken = func() (string, error) { return "BBBBBBBBBBB", nil }
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Put(context.Background(), IngestRequest{
		Locator:     domain.Locator{ContainerID: -1001234567890, MessageID: 3},
		DisplayName: " holiday.mp4 ",
		ContentType: "video/mp4",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	require.Equal(t, "https://dl.example.com/download/BBBBBBBBBBB", res.Link)

	require.Len(t, objects.calls, 1)
	call := objects.calls[0]
	require.Equal(t, "renamer-media", call.bucket)
	require.Equal(t, "-1001234567890/3", call.key)
	require.Equal(t, "hello", call.body)
	require.Equal(t, "video/mp4", call.opts.ContentType)
	require.Equal(t, map[string]string{"Filename": "holiday.mp4"}, call.opts.UserMetadata)

	want := []domain.MediaRecord{{
		Token:        "BBBBBBBBBBB",
		Locator:      domain.Locator{ContainerID: -1001234567890, MessageID: 3},
		DeclaredSize: 5,
		DisplayName:  "holiday.mp4",
		Kind:         domain.KindVideo,
		CreatedAt:    now,
	}}
	if diff := cmp.Diff(want, store.records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestIngestValidation(t *testing.T) {
	svc := NewIngestService(&fakePutter{}, &memStore{}, "b", "http://x")
	_, err := svc.Put(context.Background(), IngestRequest{Locator: domain.Locator{MessageID: 1}})
	require.ErrorContains(t, err, "display name")

	_, err = svc.Put(context.Background(), IngestRequest{DisplayName: "a"})
	require.ErrorContains(t, err, "message id")
}

func TestIngestUploadFailureSkipsRecord(t *testing.T) {
	store := &memStore{}
	svc := NewIngestService(&fakePutter{err: errors.New("access denied")}, store, "b", "http://x")
	_, err := svc.Put(context.Background(), IngestRequest{
		Locator:     domain.Locator{ContainerID: 1, MessageID: 1},
		DisplayName: "a.bin",
		Body:        strings.NewReader("x"),
		Size:        1,
	})
	require.ErrorContains(t, err, "access denied")
	require.Empty(t, store.records)
}
