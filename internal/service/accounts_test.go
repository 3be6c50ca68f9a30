package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taxtrail/internal/apperr"
	"taxtrail/internal/auth"
	"taxtrail/internal/validation"
)

var accountSecret = []byte("account-secret-0123456789")

func newAccountFixture(t *testing.T) (*AccountService, *memoryStore) {
	t.Helper()
	store := &memoryStore{}
	svc, err := NewAccountService(store, validation.New(fixedNow), AccountOptions{
		JWTSecret:   accountSecret,
		Issuer:      "taxtrail",
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
		AdminEmails: []string{" Treasury@Gov.lk "},
		Now:         time.Now,
	}, zerolog.Nop())
	require.NoError(t, err)
	return svc, store
}

func TestRegisterIssuesPublicToken(t *testing.T) {
	svc, store := newAccountFixture(t)

	session, err := svc.Register(context.Background(), "Nimal", " Nimal@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "nimal@example.com", session.User.Email)
	assert.Equal(t, "Public", session.User.Role)
	assert.Empty(t, session.User.PasswordHash)

	require.Len(t, store.users, 1)
	assert.NotEqual(t, "hunter22", store.users[0].PasswordHash)

	claims, err := auth.ParseJWT(session.Token, accountSecret)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)
	assert.Equal(t, "Public", claims.Role)
}

func TestRegisterAdminEmail(t *testing.T) {
	svc, _ := newAccountFixture(t)
	session, err := svc.Register(context.Background(), "Treasury", "treasury@gov.lk", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "Admin", session.User.Role)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	svc, _ := newAccountFixture(t)
	_, err := svc.Register(context.Background(), "Nimal", "nimal@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other", "NIMAL@example.com", "another1")
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Equal(t, "user already exists", apperr.MessageOf(err))

	_, err = svc.Register(context.Background(), "", "broken", "x")
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestLogin(t *testing.T) {
	svc, _ := newAccountFixture(t)
	registered, err := svc.Register(context.Background(), "Nimal", "nimal@example.com", "hunter22")
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "NIMAL@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)
	assert.NotEmpty(t, session.Token)

	_, err = svc.Login(context.Background(), "nimal@example.com", "wrong-pass")
	assert.ErrorIs(t, err, apperr.Unauthorized)
	assert.Equal(t, "invalid credentials", apperr.MessageOf(err))

	_, err = svc.Login(context.Background(), "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, apperr.Unauthorized)
	assert.Equal(t, "invalid credentials", apperr.MessageOf(err))
}

func TestNewAccountServiceRequiresSecret(t *testing.T) {
	_, err := NewAccountService(&memoryStore{}, nil, AccountOptions{}, zerolog.Nop())
	assert.Error(t, err)
}
