package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"todo_app/internal/common"
	"todo_app/internal/domain/model"
	"todo_app/internal/platform/database"
)

type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) error
	FindByID(ctx context.Context, id int64) (*model.Todo, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*model.Todo, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Todo, error)
	ListAll(ctx context.Context) ([]model.Todo, error)
	Update(ctx context.Context, todo *model.Todo) error
	Delete(ctx context.Context, id int64) error
}

type pgTodoRepository struct {
	db database.DBTX
}

func NewPgTodoRepository(db database.DBTX) TodoRepository {
	return &pgTodoRepository{db: db}
}

const todoColumns = `id, title, description, priority, completed, owner_id`

func (r *pgTodoRepository) Create(ctx context.Context, t *model.Todo) error {
	query := `INSERT INTO todos (title, description, priority, completed, owner_id)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query, t.Title, t.Description, t.Priority, t.Completed, t.OwnerID).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("pgTodoRepository.Create: %w", err)
	}
	return nil
}

func (r *pgTodoRepository) FindByID(ctx context.Context, id int64) (*model.Todo, error) {
	return r.findOne(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id)
}

func (r *pgTodoRepository) FindByIDForUpdate(ctx context.Context, id int64) (*model.Todo, error) {
	return r.findOne(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgTodoRepository) findOne(ctx context.Context, query string, id int64) (*model.Todo, error) {
	t := &model.Todo{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Completed, &t.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTodoRepository.FindByID: %w", err)
	}
	return t, nil
}

func (r *pgTodoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Todo, error) {
	return r.list(ctx, `SELECT `+todoColumns+` FROM todos WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (r *pgTodoRepository) ListAll(ctx context.Context) ([]model.Todo, error) {
	return r.list(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY id`)
}

func (r *pgTodoRepository) list(ctx context.Context, query string, args ...any) ([]model.Todo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTodoRepository.list: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Completed, &t.OwnerID); err != nil {
			return nil, fmt.Errorf("pgTodoRepository.list scan: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTodoRepository.list rows: %w", err)
	}
	return todos, nil
}

func (r *pgTodoRepository) Update(ctx context.Context, t *model.Todo) error {
	query := `UPDATE todos SET title = $1, description = $2, priority = $3, completed = $4
	          WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, t.Title, t.Description, t.Priority, t.Completed, t.ID)
	if err != nil {
		return fmt.Errorf("pgTodoRepository.Update: %w", err)
	}
	return requireAffected(res)
}

func (r *pgTodoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTodoRepository.Delete: %w", err)
	}
	return requireAffected(res)
}
