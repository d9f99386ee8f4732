package repository

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/renamer?sslmode=disable", migrateURL("postgres://u:p@db:5432/renamer?sslmode=disable"))
	require.Equal(t, "pgx5://u@db/renamer", migrateURL("postgresql://u@db/renamer"))
	require.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"migrations/000001_create_media_records.up.sql",
		"migrations/000001_create_media_records.down.sql",
	}, names)
}
