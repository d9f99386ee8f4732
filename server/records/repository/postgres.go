package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"renamer/server/records/domain"
)

var ErrNotFound = errors.New("media record not found")

type Store interface {
	Lookup(ctx context.Context, token string) (domain.MediaRecord, error)
	Insert(ctx context.Context, rec domain.MediaRecord) error
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Lookup(ctx context.Context, token string) (domain.MediaRecord, error) {
	var (
		rec  domain.MediaRecord
		size *int64
		name *string
		kind string
	)
	err := s.db.QueryRow(ctx, `
		SELECT token, container_id, message_id, declared_size, display_name, media_kind, created_at
		FROM media_records
		WHERE token=$1
	`, token).Scan(&rec.Token, &rec.Locator.ContainerID, &rec.Locator.MessageID, &size, &name, &kind, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MediaRecord{}, ErrNotFound
		}
		return domain.MediaRecord{}, err
	}
	if size != nil {
		rec.DeclaredSize = *size
	}
	if name != nil {
		rec.DisplayName = *name
	}
	rec.Kind = domain.MediaKind(kind)
	return rec, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec domain.MediaRecord) error {
	kind := rec.Kind
	if !kind.Valid() {
		kind = domain.KindDocument
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO media_records (token, container_id, message_id, declared_size, display_name, media_kind)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Token, rec.Locator.ContainerID, rec.Locator.MessageID, nullableSize(rec.DeclaredSize), nullableText(rec.DisplayName), string(kind))
	return err
}

func nullableSize(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func nullableText(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
