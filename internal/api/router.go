// Package api exposes the map widget over HTTP.
package api

import (
	"bytes"
	"embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/mapa/internal/export"
	"github.com/UnknownOlympus/mapa/internal/repository"
	"github.com/UnknownOlympus/mapa/internal/service"
	"github.com/UnknownOlympus/mapa/internal/widget"
	"github.com/gin-gonic/gin"
)

//go:embed web/index.html web/widget.js
var assets embed.FS

const (
	maxStorageBody  = 32 << 20
	exportFilename  = "clientes.xlsx"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves the widget script and its JSON API.
type Handler struct {
	log    *slog.Logger
	widget *widget.Widget
	repo   repository.Interface
	window time.Duration
	now    func() time.Time
}

// NewHandler creates the HTTP handler. A zero window falls back to the default recent window.
func NewHandler(log *slog.Logger, w *widget.Widget, repo repository.Interface, window time.Duration) *Handler {
	if window <= 0 {
		window = service.DefaultRecentWindow
	}
	return &Handler{log: log, widget: w, repo: repo, window: window, now: time.Now}
}

type repairRequest struct {
	Confirm bool `json:"confirm"`
}

// Router registers every route on a new gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/", h.asset("web/index.html", "text/html; charset=utf-8"))
	r.GET("/widget.js", h.asset("web/widget.js", "application/javascript; charset=utf-8"))

	api := r.Group("/api")
	{
		api.GET("/map", h.getMap)
		api.POST("/widget/open", h.open)
		api.POST("/widget/close", h.close)
		api.POST("/repair", h.repair)
		api.PUT("/storage/:key", h.putStorage)
		api.GET("/export.xlsx", h.exportCustomers)
	}

	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (h *Handler) asset(name, contentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := assets.ReadFile(name)
		if err != nil {
			h.fail(c, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, contentType, body)
	}
}

func (h *Handler) getMap(c *gin.Context) {
	c.JSON(http.StatusOK, h.widget.Snapshot())
}

func (h *Handler) open(c *gin.Context) {
	snapshot, err := h.widget.Open(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) close(c *gin.Context) {
	h.widget.Close(c.Request.Context())
	c.JSON(http.StatusOK, h.widget.Snapshot())
}

func (h *Handler) repair(c *gin.Context) {
	var req repairRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	touched, err := h.widget.Repair(c.Request.Context(), req.Confirm)
	switch {
	case errors.Is(err, widget.ErrNotConfirmed):
		h.fail(c, http.StatusBadRequest, err)
	case err != nil:
		h.fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, gin.H{"reset": touched})
	}
}

func (h *Handler) putStorage(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStorageBody))
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	snapshot, err := h.widget.Store(c.Request.Context(), c.Param("key"), raw)
	switch {
	case errors.Is(err, repository.ErrUnknownKey):
		h.fail(c, http.StatusNotFound, err)
	case errors.Is(err, repository.ErrNotAnArray):
		h.fail(c, http.StatusBadRequest, err)
	case err != nil:
		h.fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, snapshot)
	}
}

func (h *Handler) exportCustomers(c *gin.Context) {
	ctx := c.Request.Context()

	customers, err := h.repo.ListCustomers(ctx)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	orders, err := h.repo.ListOrders(ctx)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	result := service.Render(customers, orders, h.now(), h.window)

	var buf bytes.Buffer
	if err = export.WriteCustomers(&buf, export.BuildRows(customers, result.Markers)); err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.log.DebugContext(c.Request.Context(), "Request rejected", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
