package patient

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
	staff.POST("/patients", h.Register)
	staff.GET("/patients", h.List)
	staff.GET("/patients/discharged", h.ListDischarged)
	staff.GET("/patients/:id", h.Get)
	staff.PUT("/patients/:id", h.Update)
	staff.DELETE("/patients/:id", h.Delete)
	staff.POST("/patients/:id/restore", h.Restore)
	staff.POST("/patients/:id/restore-discharged", h.RestoreDischarged)
	staff.GET("/patients/:id/selections", h.GetSelections)
	staff.PUT("/patients/:id/selections", h.ReplaceSelections)
	staff.GET("/catalog/:kind", h.ListCatalog)

	admin := api.Group("", auth.RequireRole("ADMINISTRATOR"))
	admin.POST("/catalog/:kind", h.AddCatalogItem)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Register(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	scope, ok := db.ParseScope(c.QueryParam("scope"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scope")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), scope, State(c.QueryParam("status")), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) ListDischarged(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListDischarged(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id, db.ActiveOnly)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
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
	return c.JSON(http.StatusOK, map[string]string{"message": "Patient restored successfully."})
}

func (h *Handler) RestoreDischarged(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RestoreDischarged(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Patient restored to admitted."})
}

func (h *Handler) GetSelections(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sel, err := h.svc.Selections(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, sel)
}

func (h *Handler) ReplaceSelections(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var sel Selections
	if err := c.Bind(&sel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ReplaceClinicalSelections(c.Request().Context(), id, sel); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Catalog --

func (h *Handler) ListCatalog(c echo.Context) error {
	items, err := h.svc.ListCatalog(c.Request().Context(), CatalogKind(c.Param("kind")))
	if err != nil {
		return apperr.HTTPError(err)
	}
	if items == nil {
		items = []*CatalogItem{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) AddCatalogItem(c echo.Context) error {
	var in CatalogInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item, err := h.svc.AddCatalogItem(c.Request().Context(), CatalogKind(c.Param("kind")), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, item)
}
