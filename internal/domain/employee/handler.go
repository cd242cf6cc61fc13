package employee

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

// RegisterRoutes mounts account lifecycle routes. public carries the
// unauthenticated, rate-limited auth endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	public.POST("/auth/verify-email", h.VerifyEmail)
	public.POST("/auth/verify-email/resend", h.ResendVerification)
	public.POST("/auth/password/forgot", h.ForgotPassword)
	public.POST("/auth/password/reset", h.ResetPassword)

	api.GET("/account/profile", h.Profile)
	api.POST("/account/password", h.ChangePassword)
	api.POST("/account/deactivate", h.Deactivate)

	admin := api.Group("", auth.RequireRole(string(RoleAdministrator)))
	admin.POST("/employees", h.Create)
	admin.GET("/employees", h.List)
	admin.GET("/employees/:id", h.Get)
	admin.PUT("/employees/:id", h.Update)
	admin.DELETE("/employees/:id", h.Delete)
	admin.POST("/employees/:id/restore", h.Restore)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	var req struct {
		EmployeeID uuid.UUID `json:"employee_id"`
		Token      string    `json:"token"`
		Password   string    `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EmployeeID == uuid.Nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request.")
	}
	if err := h.svc.VerifyEmail(c.Request().Context(), req.EmployeeID, req.Token, req.Password); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Email verified successfully! Please log in."})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please enter a valid email.")
	}
	if err := h.svc.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Verification email has been resent. Please check your inbox."})
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please enter a valid email.")
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "A reset PIN has been sent to your email."})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		PIN         string `json:"pin"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Email, req.PIN, req.NewPassword); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset successfully. Please log in."})
}

func (h *Handler) Profile(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Get(c.Request().Context(), p.EmployeeID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), p.EmployeeID, req.CurrentPassword, req.NewPassword); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully."})
}

func (h *Handler) Deactivate(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), p.EmployeeID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Your account has been deactivated."})
}

// -- Administration --

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) List(c echo.Context) error {
	scope, ok := db.ParseScope(c.QueryParam("scope"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scope")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), scope, Role(c.QueryParam("role")), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Restore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Restore(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Employee restored."})
}
