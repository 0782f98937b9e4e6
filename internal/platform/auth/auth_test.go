package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

type fakeCredentials struct {
	patients map[string]string
	doctors  map[string]bool
}

func (f *fakeCredentials) PatientKey(id string) (string, bool) {
	key, ok := f.patients[id]
	return key, ok
}

func (f *fakeCredentials) DoctorExists(id string) bool {
	return f.doctors[id]
}

func newTestLogin() *Login {
	return &Login{
		AdminUser:     "frontdesk",
		AdminPassword: "s3cret",
		SigningKey:    testSigningKey,
		Credentials: &fakeCredentials{
			patients: map[string]string{"patjoh25": "John@25"},
			doctors:  map[string]bool{"docsar41": true},
		},
	}
}

func TestSignAndParseSession(t *testing.T) {
	token, err := SignSession(testSigningKey, "patient", "patjoh25", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := ParseSession(testSigningKey, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Role != "patient" {
		t.Errorf("role = %q, want patient", claims.Role)
	}
	if claims.Subject != "patjoh25" {
		t.Errorf("subject = %q, want patjoh25", claims.Subject)
	}
}

func TestParseSessionRejectsWrongKey(t *testing.T) {
	token, err := SignSession([]byte("another-key-entirely-1234567890ab"), "admin", "frontdesk", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseSession(testSigningKey, token); err == nil {
		t.Fatal("expected error for token signed with a different key")
	}
}

func TestParseSessionRejectsExpired(t *testing.T) {
	token, err := SignSession(testSigningKey, "admin", "frontdesk", -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseSession(testSigningKey, token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestMiddlewareMissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(testSigningKey)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestDevAuthMiddlewareDefaultsToAdmin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotActor, gotRole string
	h := DevAuthMiddleware(testSigningKey)(func(c echo.Context) error {
		gotActor = ActorIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotActor != "dev-admin" || gotRole != "admin" {
		t.Errorf("context = (%q, %q), want (dev-admin, admin)", gotActor, gotRole)
	}
}

func TestDevAuthMiddlewareHonorsToken(t *testing.T) {
	token, err := SignSession(testSigningKey, "patient", "patjoh25", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotActor, gotRole string
	h := DevAuthMiddleware(testSigningKey)(func(c echo.Context) error {
		gotActor = ActorIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotActor != "patjoh25" || gotRole != "patient" {
		t.Errorf("context = (%q, %q), want (patjoh25, patient)", gotActor, gotRole)
	}
}

func TestDevAuthMiddlewareRejectsBadToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := DevAuthMiddleware(testSigningKey)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestMiddlewareSetsActorAndRole(t *testing.T) {
	token, err := SignSession(testSigningKey, "doctor", "docsar41", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotActor, gotRole string
	h := Middleware(testSigningKey)(func(c echo.Context) error {
		gotActor = ActorIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotActor != "docsar41" || gotRole != "doctor" {
		t.Errorf("context = (%q, %q), want (docsar41, doctor)", gotActor, gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"exact match", "patient", []string{"patient"}, http.StatusOK},
		{"admin passes everything", "admin", []string{"doctor"}, http.StatusOK},
		{"wrong role", "patient", []string{"doctor"}, http.StatusForbidden},
		{"no role", "", []string{"doctor"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := context.WithValue(req.Context(), RoleKey, tt.role)
			req = req.WithContext(ctx)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := RequireRole(tt.allowed...)(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})
			err := h(c)
			if tt.wantCode == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected echo.HTTPError, got %T", err)
			}
			if httpErr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", httpErr.Code, tt.wantCode)
			}
		})
	}
}

func TestAuthenticateAdmin(t *testing.T) {
	login := newTestLogin()
	session, err := login.Authenticate("frontdesk", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Role != "admin" {
		t.Errorf("role = %q, want admin", session.Role)
	}
	if session.Token == "" {
		t.Error("token must not be empty")
	}
}

func TestAuthenticatePatient(t *testing.T) {
	login := newTestLogin()
	session, err := login.Authenticate("patjoh25", "John@25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Role != "patient" || session.ActorID != "patjoh25" {
		t.Errorf("session = (%q, %q)", session.Role, session.ActorID)
	}
}

func TestAuthenticateDoctorUsesIDAsPassword(t *testing.T) {
	login := newTestLogin()
	session, err := login.Authenticate("docsar41", "docsar41")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Role != "doctor" {
		t.Errorf("role = %q, want doctor", session.Role)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	login := newTestLogin()
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong admin password", "frontdesk", "nope"},
		{"wrong patient key", "patjoh25", "John@26"},
		{"unknown patient", "patzzz99", "Zed@99"},
		{"doctor wrong password", "docsar41", "something"},
		{"unknown doctor", "docxyz10", "docxyz10"},
		{"unrecognized shape", "random", "random"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := login.Authenticate(tt.username, tt.password); !errors.Is(err, ErrBadCredentials) {
				t.Fatalf("err = %v, want ErrBadCredentials", err)
			}
		})
	}
}
