package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"renamer/server/records/domain"
)

func TestHandleCache(t *testing.T) {
	c := NewHandleCache(8, time.Minute)
	a := domain.Locator{ContainerID: -1001, MessageID: 1}
	b := domain.Locator{ContainerID: -1001, MessageID: 2}
	other := domain.Locator{ContainerID: -1002, MessageID: 1}

	_, ok := c.Get(a)
	require.False(t, ok)

	for _, loc := range []domain.Locator{a, b, other} {
		c.Set(&Handle{Locator: loc, Size: loc.MessageID})
	}
	h, ok := c.Get(b)
	require.True(t, ok)
	require.Equal(t, int64(2), h.Size)

	c.PurgeContainer(-1001)
	_, ok = c.Get(a)
	require.False(t, ok)
	_, ok = c.Get(b)
	require.False(t, ok)
	_, ok = c.Get(other)
	require.True(t, ok)

	c.Delete(other)
	_, ok = c.Get(other)
	require.False(t, ok)
}

func TestHandleCacheExpires(t *testing.T) {
	c := NewHandleCache(8, 20*time.Millisecond)
	loc := domain.Locator{ContainerID: -1001, MessageID: 1}
	c.Set(&Handle{Locator: loc})
	time.Sleep(60 * time.Millisecond)
	_, ok := c.Get(loc)
	require.False(t, ok)
}

func TestTransientErrorClass(t *testing.T) {
	err := TransientError.New("client not ready")
	require.True(t, TransientError.Has(err))
}
