package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taxtrail/internal/apperr"
	"taxtrail/internal/auth"
	"taxtrail/internal/logging"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
)

const invalidCredentials = "invalid credentials"

// AccountOptions configure registration and token issuing.
type AccountOptions struct {
	JWTSecret   []byte
	Issuer      string
	TokenTTL    time.Duration
	BcryptCost  int
	AdminEmails []string
	Now         func() time.Time
}

// AccountService registers users and exchanges credentials for bearer tokens.
type AccountService struct {
	users     storage.UserStore
	validator *validation.Validator
	opts      AccountOptions
	admins    []string
	logger    zerolog.Logger
}

// Session is what register and login hand back.
type Session struct {
	User      storage.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// NewAccountService wires account handling.
func NewAccountService(users storage.UserStore, validator *validation.Validator, opts AccountOptions, logger zerolog.Logger) (*AccountService, error) {
	if users == nil {
		return nil, errors.New("service: user store is required")
	}
	if len(opts.JWTSecret) == 0 {
		return nil, errors.New("service: jwt secret is required")
	}
	if validator == nil {
		validator = validation.New(nil)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	admins := make([]string, 0, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		if email = normalizeEmail(email); email != "" {
			admins = append(admins, email)
		}
	}
	return &AccountService{
		users:     users,
		validator: validator,
		opts:      opts,
		admins:    admins,
		logger:    logging.Component(logger, "account_service"),
	}, nil
}

// Register creates an account and signs a token for it. Emails listed as
// admin emails get the Admin role, everyone else Public.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (Session, error) {
	user := storage.User{Name: strings.TrimSpace(name), Email: normalizeEmail(email), Role: string(auth.RolePublic)}
	if err := s.validator.User(user, password); err != nil {
		return Session{}, err
	}

	_, err := s.users.GetUserByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return Session{}, apperr.New(apperr.KindValidation, "user already exists")
	case apperr.KindOf(err) != apperr.KindRecordNotFound:
		return Session{}, err
	}

	if slices.Contains(s.admins, user.Email) {
		user.Role = string(auth.RoleAdmin)
	}
	if user.PasswordHash, err = auth.HashPassword(password, s.opts.BcryptCost); err != nil {
		return Session{}, err
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return Session{}, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user registered")
	return s.session(created)
}

// Login checks credentials. Unknown emails and wrong passwords fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindRecordNotFound {
			return Session{}, apperr.New(apperr.KindUnauthorized, invalidCredentials)
		}
		return Session{}, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		s.logger.Debug().Str("user_id", user.ID).Msg("login rejected")
		return Session{}, apperr.New(apperr.KindUnauthorized, invalidCredentials)
	}
	return s.session(user)
}

func (s *AccountService) session(user storage.User) (Session, error) {
	role, ok := auth.NormalizeRole(user.Role)
	if !ok {
		role = auth.RolePublic
	}
	now := s.opts.Now()
	token, err := auth.SignJWT(s.opts.JWTSecret, user.ID, role, s.opts.Issuer, s.opts.TokenTTL, now)
	if err != nil {
		return Session{}, err
	}
	user.PasswordHash = ""
	return Session{User: user, Token: token, ExpiresAt: now.Add(s.opts.TokenTTL)}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
