package occupancy

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
	staff := api.Group("", auth.RequireRole("WARDADMIN"))
	staff.POST("/bed-assignments", h.Assign)
	staff.GET("/bed-assignments", h.List)
	staff.GET("/bed-assignments/:id", h.Get)
	staff.PUT("/bed-assignments/:id", h.Edit)
	staff.DELETE("/bed-assignments/:id", h.Delete)
	staff.POST("/bed-assignments/:id/restore", h.Restore)
	staff.POST("/admissions/:id/discharge", h.Discharge)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Assign(c echo.Context) error {
	var in AssignInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Assign(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	scope, ok := db.ParseScope(c.QueryParam("scope"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scope")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), scope, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id, db.All)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		BedID uuid.UUID `json:"bed_id"`
	}
	if err := c.Bind(&req); err != nil || req.BedID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Edit(c.Request().Context(), id, req.BedID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Restore(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Restore(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Bed assignment restored successfully."})
}

func (h *Handler) Discharge(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Discharge(c.Request().Context(), p.EmployeeID, id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Patient has been discharged successfully."})
}
