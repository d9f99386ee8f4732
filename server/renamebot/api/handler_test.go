package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAlive(t *testing.T) {
	rec := serve(NewHandler(nil, ""), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "⚡️ Bot is Alive!", rec.Body.String())

	rec = serve(NewHandler(nil, ""), "/health/live")
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyReportsFailingCheck(t *testing.T) {
	checks := map[string]ReadyCheck{
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		"postgres": func(context.Context) error { return nil },
	}
	rec := serve(NewHandler(checks, ""), "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"not ready","checks":{"postgres":"ok","redis":"dial tcp: refused"}}`, rec.Body.String())

	delete(checks, "redis")
	rec = serve(NewHandler(checks, ""), "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsGuarded(t *testing.T) {
	rec := serve(NewHandler(nil, "tok"), "/metrics")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(NewHandler(nil, ""), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}
