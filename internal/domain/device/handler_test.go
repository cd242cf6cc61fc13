package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuremed/wardcare/internal/platform/auth"
)

func authedContext(e *echo.Echo, method, target string, employeeID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: employeeID.String()},
		Username:         "nurse1",
		Role:             "NURSE",
	}
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ListDevices(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	emp := uuid.New()
	svc.Add(context.Background(), emp, "fp", "Windows Device", 30)

	c, rec := authedContext(e, http.MethodGet, "/api/v1/account/devices", emp)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Windows Device") {
		t.Errorf("expected device label in body: %s", body)
	}
	if strings.Contains(body, "fingerprint") {
		t.Error("fingerprint must not be exposed")
	}
}

func TestHandler_ListDevices_EmptyIsArray(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	c, rec := authedContext(echo.New(), http.MethodGet, "/", uuid.New())
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_RemoveDevice_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	c, _ := authedContext(echo.New(), http.MethodDelete, "/", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.Remove(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_RemoveAll(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	emp := uuid.New()
	svc.Add(context.Background(), emp, "fp", "Windows Device", 30)

	c, rec := authedContext(echo.New(), http.MethodDelete, "/", emp)
	if err := h.RemoveAll(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"removed":1`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
