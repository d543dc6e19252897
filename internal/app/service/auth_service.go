package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"todo_app/internal/common"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/model"
	"todo_app/internal/domain/repository"

	"go.uber.org/zap"
)

const TokenTypeBearer = "bearer"

type AuthService struct {
	db      *sql.DB
	store   repository.Store
	hasher  *security.PasswordHasher
	tokens  *security.TokenService
	limiter LoginLimiter
	log     *zap.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(
	db *sql.DB,
	store repository.Store,
	hasher *security.PasswordHasher,
	tokens *security.TokenService,
	limiter LoginLimiter,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		db:      db,
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		log:     log.Named("auth"),
	}
}

type SignupRequest struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Password    string `json:"password" validate:"required"`
	Role        string `json:"role" validate:"omitempty,oneof=admin user"`
	PhoneNumber string `json:"phone_number"`
}

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: hashedPassword,
		IsActive:       true,
		Role:           role,
		PhoneNumber:    req.PhoneNumber,
	}

	if err := s.store.Users(s.db).Create(ctx, user); err != nil {
		// Repo might return common.ErrConflict
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login checks the credentials and issues an access token. Unknown users,
// inactive users and wrong passwords all yield common.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if allowed := s.reserve(ctx, req.Username); !allowed {
		return nil, fmt.Errorf("too many failed login attempts: %w", common.ErrTooManyRequests)
	}

	user, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Username, user.ID, user.Role, s.tokens.DefaultTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

func (s *AuthService) authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.store.Users(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Unknown users pay the same bcrypt cost as known ones.
			s.hasher.Verify(password, s.dummyHash())
			return nil, fmt.Errorf("invalid username or password: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid username or password: %w", common.ErrUnauthorized)
	}

	if err := s.limiter.Reset(ctx, username); err != nil {
		s.log.Warn("failed to reset login throttle", zap.String("username", username), zap.Error(err))
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user is inactive: %w", common.ErrUnauthorized)
	}
	return user, nil
}

// reserve fails open when the throttle backend errors.
func (s *AuthService) reserve(ctx context.Context, username string) bool {
	ok, err := s.limiter.Reserve(ctx, username)
	if err != nil {
		s.log.Warn("login throttle unavailable", zap.String("username", username), zap.Error(err))
		return true
	}
	return ok
}

// dummyHash is a digest at the configured cost with no matching password.
func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("no-such-user")
		if err != nil {
			s.log.Warn("failed to build dummy password digest", zap.Error(err))
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}
