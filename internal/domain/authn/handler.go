package authn

import (
	"net/http"

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

// RegisterRoutes mounts the sign-in flow on public and the session and
// enrolment routes on api.
func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	public.POST("/auth/login", h.Login)
	public.POST("/auth/2fa/verify", h.VerifyTwoFactor)
	public.POST("/auth/unlock/request", h.RequestUnlock)
	public.POST("/auth/unlock", h.Unlock)

	api.POST("/auth/logout", h.Logout)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/account/2fa/setup", h.BeginSetup)
	api.POST("/account/2fa/confirm", h.ConfirmSetup)
	api.POST("/account/2fa/disable", h.Disable)
}

func clientOf(c echo.Context) Client {
	return Client{UserAgent: c.Request().UserAgent(), IP: c.RealIP()}
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid input.")
	}
	res, err := h.svc.Login(c.Request().Context(), in, clientOf(c))
	if err != nil {
		return apperr.HTTPError(err)
	}
	if res.Status == StatusTwoFactorRequired {
		return c.JSON(http.StatusAccepted, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) VerifyTwoFactor(c echo.Context) error {
	var in VerifyInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid input.")
	}
	if in.ChallengeToken == "" || in.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "challenge_token and code are required")
	}
	res, err := h.svc.VerifyTwoFactor(c.Request().Context(), in, clientOf(c))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) RequestUnlock(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please enter a valid email.")
	}
	msg, err := h.svc.RequestUnlock(c.Request().Context(), req.Email)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) Unlock(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request.")
	}
	if err := h.svc.UnlockWithToken(c.Request().Context(), req.Email, req.Token); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Your account has been unlocked. You can now login."})
}

func (h *Handler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if err := h.svc.Logout(c.Request().Context(), claims); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "You have been successfully logged out."})
}

func (h *Handler) Refresh(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	issued, err := h.svc.Refresh(c.Request().Context(), claims)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, issued)
}

func (h *Handler) BeginSetup(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	enr, err := h.svc.BeginTwoFactorSetup(c.Request().Context(), p.EmployeeID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, enr)
}

type codeRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (h *Handler) ConfirmSetup(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	var req codeRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	codes, err := h.svc.ConfirmTwoFactorSetup(c.Request().Context(), p.EmployeeID, req.Code)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":        "Two-factor authentication has been enabled successfully! Recovery codes were emailed to you.",
		"recovery_codes": codes,
	})
}

func (h *Handler) Disable(c echo.Context) error {
	p, err := auth.CurrentEmployee(c)
	if err != nil {
		return err
	}
	var req codeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.DisableTwoFactor(c.Request().Context(), p.EmployeeID, req.Password, req.Code); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Two-factor authentication has been disabled successfully."})
}
