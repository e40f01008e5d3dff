// Package web serves an item store over HTTP+JSON so several views, possibly on
// different machines, can share one authority.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"stacks-cli/internal/model"
	"stacks-cli/internal/refresh"
	"stacks-cli/internal/store"
)

type Options struct {
	Store store.ItemStore
	// Notifier, when set, is told about every successful mutation with Origin "server".
	Notifier refresh.Notifier
	Logger   *log.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// New returns an echo instance with every route registered.
func New(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.Use(requestLogger(logger))
	Register(e, opts.Store, opts.Notifier, logger)
	return e
}

// Register wires the item routes on e.
func Register(e *echo.Echo, st store.ItemStore, notifier refresh.Notifier, logger *log.Logger) {
	h := &handlers{store: st, notifier: notifier, logger: logger}
	e.GET("/healthz", healthz)
	e.GET("/api/workspaces/:ws/stories", h.listKind(model.KindStory))
	e.GET("/api/workspaces/:ws/tasks", h.listKind(model.KindTask))
	e.POST("/api/workspaces/:ws/items", h.createItem)
	e.PATCH("/api/items/:id", h.patchItem)
	e.DELETE("/api/items/:id", h.deleteItem)
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type handlers struct {
	store    store.ItemStore
	notifier refresh.Notifier
	logger   *log.Logger
}

func (h *handlers) listKind(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ws := strings.TrimSpace(c.Param("ws"))
		items, err := h.store.ListItems(c.Request().Context(), ws)
		if err != nil {
			return h.fail(c, err)
		}
		out := make([]model.Item, 0, len(items))
		for _, it := range items {
			if it.Kind == kind {
				out = append(out, it)
			}
		}
		return c.JSON(http.StatusOK, out)
	}
}

func (h *handlers) createItem(c echo.Context) error {
	cr, ok := h.store.(store.Creator)
	if !ok {
		return c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "store does not accept new items"})
	}
	var it model.Item
	if err := bind(c, &it); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	it.WorkspaceID = strings.TrimSpace(c.Param("ws"))
	created, err := cr.CreateItem(c.Request().Context(), it)
	if err != nil {
		return h.fail(c, err)
	}
	h.notify(c.Request().Context(), created.WorkspaceID, 0)
	return c.JSON(http.StatusCreated, created)
}

func (h *handlers) patchItem(c echo.Context) error {
	var p model.Patch
	if err := bind(c, &p); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if p.Empty() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "empty patch"})
	}
	if err := h.store.UpdateItem(c.Request().Context(), c.Param("id"), p); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) deleteItem(c echo.Context) error {
	if err := h.store.DeleteItem(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) notify(ctx context.Context, workspaceID string, seq int64) {
	if h.notifier == nil {
		return
	}
	sig := refresh.Signal{WorkspaceID: workspaceID, Origin: "server", Seq: seq, At: time.Now().UTC()}
	if err := h.notifier.Notify(ctx, sig); err != nil {
		h.logger.WithError(err).Warn("refresh notify failed")
	}
}

// fail maps store errors onto the wire contract.
func (h *handlers) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrStaleWrite):
		status = http.StatusConflict
	case errors.Is(err, store.ErrWorkspaceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalidItem):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Path()).Error("store error")
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

// bind decodes the JSON body into v. echo's binder skips an empty body, which no
// item route accepts.
func bind(c echo.Context, v any) error {
	if c.Request().ContentLength == 0 {
		return errors.New("empty body")
	}
	return c.Bind(v)
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithFields(log.Fields{
				"method":  c.Request().Method,
				"path":    c.Path(),
				"status":  c.Response().Status,
				"elapsed": time.Since(start).String(),
			}).Info("request")
			return nil
		}
	}
}
