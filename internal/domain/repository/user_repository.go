package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"todo_app/internal/common"
	"todo_app/internal/domain/model"
	"todo_app/internal/platform/database"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepository is the credential store. Lookups are exact matches;
// a missing row is common.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type pgUserRepository struct {
	db database.DBTX
}

func NewPgUserRepository(db database.DBTX) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, first_name, last_name, hashed_password, is_active, role, COALESCE(phone_number, '')`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (username, email, first_name, last_name, hashed_password, is_active, role, phone_number)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.FirstName, user.LastName,
		user.HashedPassword, user.IsActive, user.Role, user.PhoneNumber,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET
                email = $1, first_name = $2, last_name = $3, hashed_password = $4,
                is_active = $5, role = $6, phone_number = $7
              WHERE id = $8`
	res, err := r.db.ExecContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.HashedPassword,
		user.IsActive, user.Role, user.PhoneNumber, user.ID,
	)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Update: %w", err)
	}
	return requireAffected(res)
}

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.HashedPassword, &user.IsActive, &user.Role, &user.PhoneNumber,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
