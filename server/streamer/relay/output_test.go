package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseOutputFlushesStartedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	out := NewResponseOutput(rec)
	out.WriteHeader(http.StatusPartialContent)
	_, err := out.Write([]byte("abc"))
	require.NoError(t, err)

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	require.True(t, rec.Flushed)
	require.Equal(t, http.StatusPartialContent, rec.Code)
}

func TestResponseOutputLeavesUnstartedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	out := NewResponseOutput(rec)
	require.NoError(t, out.Close())
	require.False(t, rec.Flushed)

	// the handler can still choose the status
	rec.WriteHeader(http.StatusNotFound)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContextMonitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewContextMonitor(ctx)
	require.False(t, m.Closed())
	cancel()
	require.True(t, m.Closed())
}
