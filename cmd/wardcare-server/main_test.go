package main

import (
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/futuremed/wardcare/internal/config"
	"github.com/futuremed/wardcare/internal/domain/authn"
	"github.com/futuremed/wardcare/internal/platform/auth"
	"github.com/futuremed/wardcare/internal/platform/db"
	"github.com/futuremed/wardcare/internal/platform/mail"
)

// ---------------------------------------------------------------------------
// resolveSigningKey
// ---------------------------------------------------------------------------

func TestResolveSigningKey_FromEnv(t *testing.T) {
	want := make([]byte, 32)
	for i := range want {
		want[i] = byte(i)
	}
	hexStr := hex.EncodeToString(want)

	key, random, err := resolveSigningKey(hexStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if random {
		t.Error("expected random=false when env var is set")
	}
	if hex.EncodeToString(key) != hexStr {
		t.Errorf("key mismatch: got %x, want %x", key, want)
	}
}

func TestResolveSigningKey_InvalidHex(t *testing.T) {
	if _, _, err := resolveSigningKey("not-valid-hex!!!"); err == nil {
		t.Fatal("expected error for invalid hex, got nil")
	}
}

func TestResolveSigningKey_RandomGeneration(t *testing.T) {
	key, random, err := resolveSigningKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !random {
		t.Error("expected random=true when env var is empty")
	}
	if len(key) != 32 {
		t.Errorf("expected 32-byte key, got %d bytes", len(key))
	}
	key2, _, _ := resolveSigningKey("")
	if hex.EncodeToString(key) == hex.EncodeToString(key2) {
		t.Error("two random keys should not be identical")
	}
}

// ---------------------------------------------------------------------------
// embedded migrations
// ---------------------------------------------------------------------------

func TestEmbeddedMigrations_LoadWithDownScripts(t *testing.T) {
	migs, err := db.NewMigrator(nil, migrationSource(""), "").Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(migs) < 5 {
		t.Fatalf("expected at least 5 migrations, got %d", len(migs))
	}
	for i, m := range migs {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.Down == "" {
			t.Errorf("migration %d (%s) has no down script", m.Version, m.Name)
		}
	}
}

// ---------------------------------------------------------------------------
// server wiring
// ---------------------------------------------------------------------------

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		Env:            "development",
		JWTIssuer:      "wardcare",
		ChallengeTTL:   time.Minute,
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	revocations := auth.NewMemoryRevocationStore()
	t.Cleanup(revocations.Close)

	// Repositories hold a nil pool; the requests below never reach them.
	e, err := newServer(cfg, nil, infra{
		signingKey:  testKey,
		store:       authn.NewMemoryStore(),
		revocations: revocations,
		mailer:      mail.NewMailer(mail.NewLogSender(zerolog.Nop()), nil),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(testKey, "wardcare")
	if err != nil {
		t.Fatal(err)
	}
	tok, err := issuer.Issue(auth.Principal{EmployeeID: uuid.New(), Username: "u", Role: role}, false)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

func TestNewServer_RegistersRoutes(t *testing.T) {
	e := testServer(t)

	have := make(map[string]bool)
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /health/db",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/2fa/verify",
		"POST /api/v1/auth/logout",
		"GET /api/v1/account/devices",
		"POST /api/v1/employees",
		"POST /api/v1/wards/:id/beds",
		"GET /api/v1/beds/available",
		"POST /api/v1/patients",
		"POST /api/v1/admissions",
		"POST /api/v1/admissions/:id/discharge",
		"POST /api/v1/bed-assignments",
		"PUT /api/v1/bed-assignments/:id",
		"GET /api/v1/notifications/unread-count",
		"GET /api/v1/ws",
	} {
		if !have[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}

func TestNewServer_Health(t *testing.T) {
	e := testServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNewServer_ProtectedRouteRequiresToken(t *testing.T) {
	e := testServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestNewServer_RoleGate(t *testing.T) {
	e := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "NURSE"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/bed-assignments", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "DOCTOR"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bed assignment by a doctor, got %d", rec.Code)
	}
}

func TestNewServer_ShortSigningKey(t *testing.T) {
	_, err := newServer(&config.Config{}, nil, infra{signingKey: []byte("short")}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for a short signing key")
	}
}

func TestNewServer_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	e := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.1")
	req.Header.Set(echo.HeaderXRealIP, "198.51.100.2")

	if got := e.IPExtractor(req); got != "203.0.113.7" {
		t.Errorf("expected socket address, got %s", got)
	}
}

func TestIPExtractor_TrustedProxy(t *testing.T) {
	_, proxy, err := net.ParseCIDR("10.1.0.0/16")
	if err != nil {
		t.Fatal(err)
	}
	extract := ipExtractor([]*net.IPNet{proxy})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.1")
	if got := extract(req); got != "198.51.100.1" {
		t.Errorf("expected forwarded client behind trusted proxy, got %s", got)
	}

	req.RemoteAddr = "192.168.0.9:443"
	if got := extract(req); got != "192.168.0.9" {
		t.Errorf("expected untrusted peer address, got %s", got)
	}
}
