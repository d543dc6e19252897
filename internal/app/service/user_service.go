package service

import (
	"context"
	"database/sql"
	"fmt"
	"todo_app/internal/common"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/model"
	"todo_app/internal/domain/repository"
	"todo_app/internal/platform/database"

	"go.uber.org/zap"
)

type UserService struct {
	db     *sql.DB
	store  repository.Store
	hasher *security.PasswordHasher
	log    *zap.Logger
}

func NewUserService(db *sql.DB, store repository.Store, hasher *security.PasswordHasher, log *zap.Logger) *UserService {
	return &UserService{db: db, store: store, hasher: hasher, log: log.Named("user")}
}

type ChangePasswordRequest struct {
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type ChangePhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,len=9"`
}

func (s *UserService) GetProfile(ctx context.Context, id *security.Identity) (*model.User, error) {
	user, err := s.store.Users(s.db).FindByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ChangePassword re-checks the current password before storing the hash of
// the new one.
func (s *UserService) ChangePassword(ctx context.Context, id *security.Identity, req ChangePasswordRequest) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		users := s.store.Users(tx)
		user, err := users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		if !s.hasher.Verify(req.Password, user.HashedPassword) {
			return fmt.Errorf("error on password change: %w", common.ErrUnauthorized)
		}

		hashed, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = hashed

		if err := users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		s.log.Info("password changed", zap.Int64("user_id", user.ID))
		return nil
	})
}

func (s *UserService) ChangePhone(ctx context.Context, id *security.Identity, req ChangePhoneRequest) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		users := s.store.Users(tx)
		user, err := users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		user.PhoneNumber = req.PhoneNumber
		if err := users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
}
