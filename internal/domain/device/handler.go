package device

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/account/devices", h.List)
	api.DELETE("/account/devices/:id", h.Remove)
	api.DELETE("/account/devices", h.RemoveAll)
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	devices, err := h.svc.ListTrusted(c.Request().Context(), p.EmployeeID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if devices == nil {
		devices = []*TrustedDevice{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": devices})
}

func (h *Handler) Remove(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Remove(c.Request().Context(), id, p.EmployeeID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Trusted device removed successfully."})
}

func (h *Handler) RemoveAll(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	n, err := h.svc.RemoveAll(c.Request().Context(), p.EmployeeID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "All trusted devices have been removed.",
		"removed": n,
	})
}
