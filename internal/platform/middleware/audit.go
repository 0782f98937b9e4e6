package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lifeline/lifeline/internal/platform/auth"
)

// AuditEntry captures one access to a patient record: who touched it,
// what they did, and from where.
type AuditEntry struct {
	ActorID    string
	Role       string
	PatientID  string
	Action     string // read, create, update, delete
	IPAddress  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. Tests provide a mock; production
// wiring may add a durable sink later.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns middleware that logs every access touching a patient
// record under /api/v1/. A recorder failure is logged and never fails
// the request itself.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			// Run the handler first so the entry carries the real status.
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
				Action:     httpMethodToAction(req.Method),
				PatientID:  extractPatientID(c),
			}
			ctx := req.Context()
			entry.ActorID = auth.ActorIDFromContext(ctx)
			entry.Role = auth.RoleFromContext(ctx)
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "record_access").
				Str("request_id", entry.RequestID).
				Str("actor_id", entry.ActorID).
				Str("role", entry.Role).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

func httpMethodToAction(method string) string {
	switch method {
	case "GET":
		return "read"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// extractPatientID pulls the patient id from the route or query. Patient
// ids carry the "pat" prefix, so other path ids are left out.
func extractPatientID(c echo.Context) string {
	for _, name := range c.ParamNames() {
		if name == "id" || name == "patientId" {
			if v := c.Param(name); strings.HasPrefix(v, "pat") {
				return v
			}
		}
	}
	if v := c.QueryParam("patient_id"); strings.HasPrefix(v, "pat") {
		return v
	}
	return ""
}
