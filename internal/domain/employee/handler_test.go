package employee_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/platform/auth"
)

func withEmployee(req *http.Request, e *employee.Employee) *http.Request {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: e.ID.String(), ID: "test-jti"},
		Username:         e.Username,
		Role:             string(e.Role),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestHandler_Create(t *testing.T) {
	f := newFixture()
	h := employee.NewHandler(f.svc)
	e := echo.New()

	body := `{"username":"doc2","email":"doc2@example.com","first_name":"Sipho","last_name":"Dlamini","role":"DOCTOR"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "verification_token_hash") {
		t.Error("credential columns must not be serialized")
	}
	var got employee.Employee
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != employee.StatusInactive {
		t.Errorf("expected inactive, got %s", got.Status)
	}
}

func TestHandler_Create_BadRole(t *testing.T) {
	f := newFixture()
	h := employee.NewHandler(f.svc)
	e := echo.New()

	body := `{"username":"x","email":"x@example.com","first_name":"A","last_name":"B","role":"PILOT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Create(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Profile(t *testing.T) {
	f := newFixture()
	h := employee.NewHandler(f.svc)
	emp := seedActive(t, f, "original-pass")
	e := echo.New()

	req := withEmployee(httptest.NewRequest(http.MethodGet, "/api/v1/account/profile", nil), emp)
	rec := httptest.NewRecorder()
	if err := h.Profile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"nurse1"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash leaked into profile")
	}
}

func TestHandler_Profile_Unauthenticated(t *testing.T) {
	f := newFixture()
	h := employee.NewHandler(f.svc)
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := h.Profile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_ResetPassword_BadPIN(t *testing.T) {
	f := newFixture()
	h := employee.NewHandler(f.svc)
	emp := seedActive(t, f, "original-pass")
	e := echo.New()

	body := `{"email":"` + emp.Email + `","pin":"12","new_password":"another-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password/reset", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.ResetPassword(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if he.Message != "PIN must be a 6-digit code." {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	f := newFixture()
	h := employee.NewHandler(f.svc)
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.Get(c); err == nil {
		t.Fatal("expected error")
	}
}
