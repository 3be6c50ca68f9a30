package app

import (
	"errors"
	"fmt"
	"strings"

	"taxtrail/internal/auth"
)

// IssueToken mints a bearer token signed with the configured secret and prints it.
func (a *App) IssueToken(opts TokenOptions) (string, error) {
	if err := a.Config.RequireJWTSecret(); err != nil {
		return "", err
	}
	subject := strings.TrimSpace(opts.Subject)
	if subject == "" {
		return "", errors.New("--subject is required")
	}
	role, ok := auth.NormalizeRole(opts.Role)
	if !ok {
		return "", fmt.Errorf("unknown role %q (want %s or %s)", opts.Role, auth.RoleAdmin, auth.RolePublic)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = a.Config.Auth.TokenTTL
	}

	token, err := auth.SignJWT([]byte(a.Config.Auth.JWTSecret), subject, role, a.Config.Auth.Issuer, ttl, a.now())
	if err != nil {
		return "", err
	}
	a.Logger.Debug().Str("subject", subject).Str("role", string(role)).Dur("ttl", ttl).Msg("token issued")
	fmt.Fprintln(a.Out, token)
	return token, nil
}
