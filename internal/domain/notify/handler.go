package notify

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/auth"
	"github.com/futuremed/wardcare/pkg/pagination"
)

type Handler struct {
	inbox *Inbox
}

func NewHandler(inbox *Inbox) *Handler {
	return &Handler{inbox: inbox}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.GET("/notifications/unread-count", h.UnreadCount)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.POST("/notifications/read-all", h.MarkAllRead)
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.inbox.List(c.Request().Context(), p.EmployeeID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	n, err := h.inbox.UnreadCount(c.Request().Context(), p.EmployeeID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) MarkRead(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.inbox.MarkRead(c.Request().Context(), id, p.EmployeeID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	n, err := h.inbox.MarkAllRead(c.Request().Context(), p.EmployeeID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": n})
}
