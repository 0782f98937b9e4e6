package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var ErrBadCredentials = errors.New("auth: invalid username or password")

// SessionTTL bounds how long a minted token stays valid.
const SessionTTL = 12 * time.Hour

// CredentialSource answers the two lookups login needs. The registry
// repositories are adapted to it at wiring time; auth itself never
// touches the record files.
type CredentialSource interface {
	// PatientKey returns the stored password key for a patient id.
	PatientKey(id string) (string, bool)
	// DoctorExists reports whether a doctor id is registered.
	DoctorExists(id string) bool
}

type Login struct {
	AdminUser     string
	AdminPassword string
	SigningKey    []byte
	Credentials   CredentialSource
}

// Session is the login response.
type Session struct {
	Token   string `json:"token"`
	Role    string `json:"role"`
	ActorID string `json:"actor_id"`
}

// Authenticate resolves the role from the username shape: the configured
// admin account, "pat"-prefixed patient ids checked against their stored
// key, and "doc"-prefixed doctor ids which authenticate with the id
// itself.
func (l *Login) Authenticate(username, password string) (*Session, error) {
	role, ok := l.check(username, password)
	if !ok {
		return nil, ErrBadCredentials
	}
	token, err := SignSession(l.SigningKey, role, username, SessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Role: role, ActorID: username}, nil
}

func (l *Login) check(username, password string) (string, bool) {
	switch {
	case l.AdminUser != "" && username == l.AdminUser:
		return "admin", password == l.AdminPassword
	case strings.HasPrefix(username, "pat"):
		key, ok := l.Credentials.PatientKey(username)
		return "patient", ok && key == password
	case strings.HasPrefix(username, "doc"):
		return "doctor", password == username && l.Credentials.DoctorExists(username)
	default:
		return "", false
	}
}

type LoginHandler struct {
	login *Login
}

func NewLoginHandler(login *Login) *LoginHandler {
	return &LoginHandler{login: login}
}

func (h *LoginHandler) RegisterRoutes(public *echo.Group) {
	public.POST("/auth/login", h.PostLogin)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *LoginHandler) PostLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	session, err := h.login.Authenticate(req.Username, req.Password)
	if errors.Is(err, ErrBadCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, session)
}
