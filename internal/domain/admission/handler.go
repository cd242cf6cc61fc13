package admission

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
	g := api.Group("/admissions", auth.RequireRole("WARDADMIN"))
	g.POST("", h.Admit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Edit)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/restore", h.Restore)
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

func (h *Handler) Admit(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	var in AdmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Admit(c.Request().Context(), p.EmployeeID, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	scope, err := scopeParam(c)
	if err != nil {
		return err
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
	scope, err := scopeParam(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id, scope)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Edit(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in EditInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Edit(c.Request().Context(), p.EmployeeID, id, in)
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
	if err := h.svc.SoftDelete(c.Request().Context(), id); err != nil {
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
	return c.JSON(http.StatusOK, map[string]string{"message": "Admission restored successfully."})
}
