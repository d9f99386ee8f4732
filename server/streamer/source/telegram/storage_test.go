package telegram

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := OpenStorage(path)
	require.NoError(t, err)
	return s
}

func TestStorageSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtproto.bolt")
	s := openTestStorage(t, path)
	ctx := context.Background()

	_, err := s.LoadSession(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, s.StoreSession(ctx, []byte(`{"dc":2}`)))
	require.NoError(t, s.Close())

	s = openTestStorage(t, path)
	defer s.Close()
	data, err := s.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"dc":2}`, string(data))
}

func TestStoragePeers(t *testing.T) {
	s := openTestStorage(t, filepath.Join(t.TempDir(), "mtproto.bolt"))
	defer s.Close()

	_, found, err := s.AccessHash(1234567890)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.SetAccessHash(1234567890, -998877))
	hash, found, err := s.AccessHash(1234567890)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(-998877), hash)

	require.NoError(t, s.SetAccessHash(1234567890, 42))
	hash, _, err = s.AccessHash(1234567890)
	require.NoError(t, err)
	require.Equal(t, int64(42), hash)
}
