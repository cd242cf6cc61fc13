package admission

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/platform/auth"
)

func authedRequest(method, target, body string, employeeID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: employeeID.String()},
		Username:         "wardadmin",
		Role:             "WARDADMIN",
	}
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestHandler_Admit(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	p := f.addPatient(patient.StateActive)

	body := `{"patient_id":"` + p.ID.String() + `","doctor_id":"` + f.doctor.ID.String() +
		`","nurse_id":"` + f.nurse.ID.String() + `","allergy_ids":[]}`
	c, rec := authedRequest(http.MethodPost, "/api/v1/admissions", body, f.admin.ID)
	if err := h.Admit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"notes":"Admitted via system"`) {
		t.Errorf("expected default notes, got %s", rec.Body.String())
	}
}

func TestHandler_Admit_AlreadyAdmittedIs409(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	p := f.addPatient(patient.StateAdmitted)

	body := `{"patient_id":"` + p.ID.String() + `","doctor_id":"` + f.doctor.ID.String() +
		`","nurse_id":"` + f.nurse.ID.String() + `"}`
	c, _ := authedRequest(http.MethodPost, "/api/v1/admissions", body, f.admin.ID)
	err := h.Admit(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_Get_InvalidScope(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	c, _ := authedRequest(http.MethodGet, "/?scope=nope", "", f.admin.ID)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
