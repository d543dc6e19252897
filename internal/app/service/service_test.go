package service

import (
	"database/sql"
	"testing"
	"time"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/model"
	"todo_app/internal/domain/repository/repotest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	store  *repotest.Store
	hasher *security.PasswordHasher
	tokens *security.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	tokens, err := security.NewTokenService([]byte("test-secret"), 20*time.Minute)
	require.NoError(t, err)

	return &fixture{
		db:     db,
		mock:   mock,
		store:  repotest.NewStore(),
		hasher: security.NewPasswordHasher(bcrypt.MinCost),
		tokens: tokens,
	}
}

func (f *fixture) seedUser(t *testing.T, username, password, role string) model.User {
	t.Helper()
	hashed, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return f.store.SeedUser(model.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: hashed,
		IsActive:       true,
		Role:           role,
	})
}

func identityOf(u model.User) *security.Identity {
	return &security.Identity{Username: u.Username, UserID: u.ID, Role: u.Role}
}

func (f *fixture) authService(limiter LoginLimiter) *AuthService {
	return NewAuthService(f.db, f.store, f.hasher, f.tokens, limiter, zap.NewNop())
}
