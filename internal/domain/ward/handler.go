package ward

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/auth"
	"github.com/futuremed/wardcare/internal/platform/db"
	"github.com/futuremed/wardcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireRole("ADMINISTRATOR"))
	admin.POST("/wards", h.CreateWard)
	admin.GET("/wards", h.ListWards)
	admin.GET("/wards/:id", h.GetWard)
	admin.PUT("/wards/:id", h.UpdateWard)
	admin.DELETE("/wards/:id", h.DeleteWard)
	admin.POST("/wards/:id/restore", h.RestoreWard)
	admin.POST("/wards/:id/beds", h.CreateBed)
	admin.PUT("/beds/:id", h.UpdateBed)
	admin.DELETE("/beds/:id", h.DeleteBed)
	admin.POST("/beds/:id/restore", h.RestoreBed)
	admin.PUT("/beds/:id/state", h.SetBedState)

	staff := api.Group("", auth.RequireRole("WARDADMIN"))
	staff.GET("/beds", h.ListBeds)
	staff.GET("/beds/available", h.ListAvailableBeds)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func scopeParam(c echo.Context) (db.Scope, error) {
	scope, ok := db.ParseScope(c.QueryParam("scope"))
	if !ok {
		return scope, echo.NewHTTPError(http.StatusBadRequest, "invalid scope")
	}
	return scope, nil
}

// -- Ward Handlers --

func (h *Handler) CreateWard(c echo.Context) error {
	var in WardInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	w, err := h.svc.CreateWard(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	scope, err := scopeParam(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListWards(c.Request().Context(), scope, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	scope, err := scopeParam(c)
	if err != nil {
		return err
	}
	w, err := h.svc.GetWard(c.Request().Context(), id, scope)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) UpdateWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in WardInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	w, err := h.svc.UpdateWard(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteWard(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RestoreWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RestoreWard(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Ward restored successfully."})
}

// -- Bed Handlers --

func (h *Handler) CreateBed(c echo.Context) error {
	wardID, err := pathID(c)
	if err != nil {
		return err
	}
	var in BedInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.CreateBed(c.Request().Context(), wardID, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	scope, err := scopeParam(c)
	if err != nil {
		return err
	}
	var wardID *uuid.UUID
	if v := c.QueryParam("ward_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ward_id")
		}
		wardID = &id
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListBeds(c.Request().Context(), scope, wardID, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) ListAvailableBeds(c echo.Context) error {
	items, err := h.svc.ListAvailableBeds(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	if items == nil {
		items = []*Bed{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) UpdateBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in BedInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.UpdateBed(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RestoreBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RestoreBed(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Bed restored successfully."})
}

func (h *Handler) SetBedState(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		State BedState `json:"state"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetBedState(c.Request().Context(), id, req.State); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
