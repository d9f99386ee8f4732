package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	commonlog "renamer/server/common/log"
	"renamer/server/common/middleware"
	"renamer/server/common/transport/httpresp"
	"renamer/server/streamer/relay"
)

const (
	msgLinkExpired      = "Link Expired"
	msgFileMissing      = "File Missing"
	msgRangeUnsatisfied = "Requested Range Not Satisfiable"
)

type Downloader interface {
	Serve(ctx context.Context, token, rangeHeader string, out relay.Output, monitor relay.DisconnectMonitor) (relay.Outcome, error)
	Head(ctx context.Context, token, rangeHeader string, out relay.Output) (relay.Outcome, error)
}

// ReadyCheck reports whether one dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Handler struct {
	downloads    Downloader
	checks       map[string]ReadyCheck
	metricsToken string
}

func NewHandler(downloads Downloader, checks map[string]ReadyCheck) *Handler {
	return &Handler{downloads: downloads, checks: checks}
}

// WithMetricsToken requires a bearer token on /metrics.
func (h *Handler) WithMetricsToken(token string) *Handler {
	h.metricsToken = token
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, httpresp.MsgAlive)
	})
	r.GET("/health", h.health)
	r.GET("/health/live", h.health)
	r.GET("/health/ready", h.ready)
	r.GET("/metrics", middleware.BearerToken(h.metricsToken), gin.WrapH(promhttp.Handler()))

	r.GET("/download/:token", h.download)
	r.HEAD("/download/:token", h.head)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, httpresp.NewStatusResponse(httpresp.StatusOK, nil))
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = httpresp.StatusOK
	}
	if status != http.StatusOK {
		c.JSON(status, httpresp.NewStatusResponse(httpresp.StatusNotReady, results))
		return
	}
	c.JSON(status, httpresp.NewStatusResponse(httpresp.StatusOK, results))
}

func (h *Handler) download(c *gin.Context) {
	ctx := c.Request.Context()
	out := relay.NewResponseOutput(c.Writer)
	_, err := h.downloads.Serve(ctx, c.Param("token"), c.GetHeader("Range"), out, relay.NewContextMonitor(ctx))
	if err != nil {
		h.writeError(c, err)
	}
}

func (h *Handler) head(c *gin.Context) {
	out := relay.NewResponseOutput(c.Writer)
	if _, err := h.downloads.Head(c.Request.Context(), c.Param("token"), c.GetHeader("Range"), out); err != nil {
		h.writeError(c, err)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, relay.ErrLinkExpired):
		c.String(http.StatusNotFound, msgLinkExpired)
	case errors.Is(err, relay.ErrFileMissing):
		commonlog.Warnf("download token=%s: %v", c.Param("token"), err)
		c.String(http.StatusNotFound, msgFileMissing)
	case relay.MalformedRangeError.Has(err):
		c.String(http.StatusRequestedRangeNotSatisfiable, msgRangeUnsatisfied)
	default:
		commonlog.Errorf("download token=%s: %v", c.Param("token"), err)
		c.String(http.StatusInternalServerError, httpresp.ErrorText(err))
	}
}
