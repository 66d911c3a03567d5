package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warden/cmd/internal/jsonapi"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := Config{
		LogLevel:           "debug",
		JWTSecretKey:       strings.Repeat("s", 32),
		AccessTokenMinutes: 15,
		RefreshTokenDays:   21,
		PasswordAlgorithm:  "bcrypt",
		BcryptCost:         4,
		CORSAllowedOrigins: []string{"https://app.example.com"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func serve(t *testing.T, h http.Handler, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", jsonapi.MediaType)
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_SessionLifecycle(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	creds := `{"data":{"type":"users","attributes":{"username":"Alice01","password":"Qwerty123456"}}}`

	rec := serve(t, h, http.MethodPost, "/user", creds)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, http.MethodPost, "/session", creds)
	if rec.Code != http.StatusCreated {
		t.Fatalf("login: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var tok struct {
		Meta struct {
			AccessToken string `json:"accessToken"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil || tok.Meta.AccessToken == "" {
		t.Fatalf("login body: %s (%v)", rec.Body.String(), err)
	}
	var refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			refresh = c
		}
	}
	if refresh == nil {
		t.Fatalf("no refresh cookie")
	}
	withRefresh := func(c *http.Cookie) func(*http.Request) {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
	}

	rec = serve(t, h, http.MethodGet, "/user", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok.Meta.AccessToken)
	})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"alice01"`) {
		t.Fatalf("show user: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, http.MethodPut, "/session", "", withRefresh(refresh))
	if rec.Code != http.StatusCreated {
		t.Fatalf("rotate: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, http.MethodPut, "/session", "", withRefresh(refresh))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, http.MethodDelete, "/session", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status=%d", rec.Code)
	}

	rec = serve(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`warden_auth_logins_total{result="success"} 1`,
		`warden_auth_refreshes_total{result="rejected"} 1`,
		`warden_http_requests_total{method="PUT",route="/session",status="401"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestApp_Probes(t *testing.T) {
	h := newTestApp(t).Handler()

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Fatalf("healthz: status=%d body=%q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("security headers missing: %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id missing")
	}

	rec = serve(t, h, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: status=%d", rec.Code)
	}
}

func TestApp_ReadyzRequiresDB(t *testing.T) {
	a := newTestApp(t)
	a.cfg.ReadinessRequireDB = true

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, nil, a.registry, jsonapi.NewReporter(), nil)

	rec := serve(t, mux, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: status=%d", rec.Code)
	}
}

func TestApp_UnknownRouteIsJSONAPI(t *testing.T) {
	h := newTestApp(t).Handler()

	rec := serve(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != jsonapi.MediaType {
		t.Fatalf("content-type=%q", ct)
	}
	var doc jsonapi.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil || len(doc.Errors) != 1 {
		t.Fatalf("body=%s err=%v", rec.Body.String(), err)
	}
	if doc.Errors[0].Status != "404" {
		t.Fatalf("error status=%q", doc.Errors[0].Status)
	}
}

func TestApp_CORSDeniesUnknownOrigin(t *testing.T) {
	h := newTestApp(t).Handler()

	rec := serve(t, h, http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example.com")
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
}
