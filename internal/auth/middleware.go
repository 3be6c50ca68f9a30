package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"taxtrail/internal/apperr"
	"taxtrail/internal/logging"
)

// ErrorWriter renders an auth failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates bearer tokens under /api/ and requires Admin for mutations.
type Middleware struct {
	secret    []byte
	writeErr  ErrorWriter
	logger    zerolog.Logger
	apiPrefix string
}

// NewMiddleware builds the auth middleware.
func NewMiddleware(secret []byte, writeErr ErrorWriter, logger zerolog.Logger) *Middleware {
	if writeErr == nil {
		writeErr = func(w http.ResponseWriter, _ *http.Request, err error) {
			status := http.StatusUnauthorized
			if apperr.KindOf(err) == apperr.KindForbidden {
				status = http.StatusForbidden
			}
			http.Error(w, apperr.MessageOf(err), status)
		}
	}
	return &Middleware{
		secret:    secret,
		writeErr:  writeErr,
		logger:    logging.Component(logger, "auth"),
		apiPrefix: "/api/",
	}
}

// RequiredRole returns the minimum role for a request, or false when it is public.
func (m *Middleware) RequiredRole(r *http.Request) (Role, bool) {
	if !strings.HasPrefix(r.URL.Path, m.apiPrefix) {
		return "", false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return RolePublic, true
	}
	return RoleAdmin, true
}

// Wrap applies authentication and role checks to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required, guarded := m.RequiredRole(r)
		if !guarded {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			m.writeErr(w, r, apperr.New(apperr.KindUnauthorized, "Not authorized, no token"))
			return
		}

		claims, err := ParseJWT(strings.TrimSpace(token), m.secret)
		if err != nil {
			m.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
			m.writeErr(w, r, apperr.Wrap(apperr.KindUnauthorized, err, "Not authorized, invalid token"))
			return
		}

		role, _ := NormalizeRole(claims.Role)
		if required == RoleAdmin && role != RoleAdmin {
			m.writeErr(w, r, apperr.New(apperr.KindForbidden, "Admin role required"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), role, claims.Subject)))
	})
}
