package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"renamer/server/common/middleware"
	"renamer/server/common/transport/httpresp"
)

type ReadyCheck func(ctx context.Context) error

// Handler is the bot's keep-alive and probe surface.
type Handler struct {
	checks       map[string]ReadyCheck
	metricsToken string
}

func NewHandler(checks map[string]ReadyCheck, metricsToken string) *Handler {
	return &Handler{checks: checks, metricsToken: metricsToken}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, httpresp.MsgAlive)
	})
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpresp.NewStatusResponse(httpresp.StatusOK, nil))
	})
	r.GET("/health/ready", h.ready)
	r.GET("/metrics", middleware.BearerToken(h.metricsToken), gin.WrapH(promhttp.Handler()))
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := httpresp.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			overall = httpresp.StatusNotReady
			results[name] = err.Error()
			continue
		}
		results[name] = httpresp.StatusOK
	}
	status := http.StatusOK
	if overall != httpresp.StatusOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, httpresp.NewStatusResponse(overall, results))
}
