package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"renamer/server/common/infra/db"
	"renamer/server/records/domain"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("renamer_test"),
		postgres.WithUsername("renamer"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://renamer:test-password@%s:%s/renamer_test?sslmode=disable", host, port.Port())
	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn), "second run is a no-op")

	pool, err := db.NewPool(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresStore(pool)
}

func TestPostgresInsertLookup(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	rec := domain.MediaRecord{
		Token:        "tok12345678",
		Locator:      domain.Locator{ContainerID: -1001234567890, MessageID: 7},
		DeclaredSize: 4096,
		DisplayName:  "report.pdf",
		Kind:         domain.KindDocument,
	}
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.Lookup(ctx, rec.Token)
	require.NoError(t, err)
	require.Equal(t, rec.Locator, got.Locator)
	require.Equal(t, rec.DeclaredSize, got.DeclaredSize)
	require.Equal(t, rec.DisplayName, got.DisplayName)
	require.False(t, got.CreatedAt.IsZero())

	require.Error(t, store.Insert(ctx, rec), "tokens are never reused")
}

func TestPostgresNullableColumns(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.MediaRecord{
		Token:   "bare0000000",
		Locator: domain.Locator{ContainerID: -1001, MessageID: 1},
	}))
	got, err := store.Lookup(ctx, "bare0000000")
	require.NoError(t, err)
	require.Zero(t, got.DeclaredSize)
	require.Empty(t, got.DisplayName)
	require.Equal(t, domain.KindDocument, got.Kind)

	_, err = store.Lookup(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}
