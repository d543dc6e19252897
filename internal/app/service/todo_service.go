package service

import (
	"context"
	"database/sql"
	"fmt"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/model"
	"todo_app/internal/domain/repository"
	"todo_app/internal/platform/database"

	"go.uber.org/zap"
)

type TodoService struct {
	db    *sql.DB
	store repository.Store
	log   *zap.Logger
}

func NewTodoService(db *sql.DB, store repository.Store, log *zap.Logger) *TodoService {
	return &TodoService{db: db, store: store, log: log.Named("todo")}
}

type TodoRequest struct {
	Title       string `json:"title" validate:"required,min=3"`
	Description string `json:"description" validate:"required,min=3,max=100"`
	Priority    int    `json:"priority" validate:"min=1,max=5"`
	Completed   bool   `json:"completed"`
}

func (s *TodoService) List(ctx context.Context, id *security.Identity) ([]model.Todo, error) {
	todos, err := s.store.Todos(s.db).ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// Get returns the todo only if the caller owns it. Someone else's todo is
// reported as not found.
func (s *TodoService) Get(ctx context.Context, id *security.Identity, todoID int64) (*model.Todo, error) {
	todo, err := s.store.Todos(s.db).FindByID(ctx, todoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	if err := security.RequireOwner(id, todo.OwnerID); err != nil {
		return nil, fmt.Errorf("todo %d: %w", todoID, err)
	}
	return todo, nil
}

func (s *TodoService) Create(ctx context.Context, id *security.Identity, req TodoRequest) (*model.Todo, error) {
	todo := &model.Todo{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
		OwnerID:     id.UserID,
	}
	if err := s.store.Todos(s.db).Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, id *security.Identity, todoID int64, req TodoRequest) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		todos := s.store.Todos(tx)
		todo, err := s.lockOwned(ctx, todos, id, todoID)
		if err != nil {
			return err
		}

		todo.Title = req.Title
		todo.Description = req.Description
		todo.Priority = req.Priority
		todo.Completed = req.Completed
		if err := todos.Update(ctx, todo); err != nil {
			return fmt.Errorf("failed to update todo: %w", err)
		}
		return nil
	})
}

func (s *TodoService) Delete(ctx context.Context, id *security.Identity, todoID int64) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		todos := s.store.Todos(tx)
		if _, err := s.lockOwned(ctx, todos, id, todoID); err != nil {
			return err
		}
		if err := todos.Delete(ctx, todoID); err != nil {
			return fmt.Errorf("failed to delete todo: %w", err)
		}
		return nil
	})
}

// ListAll is the admin view over every user's todos.
func (s *TodoService) ListAll(ctx context.Context, id *security.Identity) ([]model.Todo, error) {
	if err := security.RequireRole(id, model.RoleAdmin); err != nil {
		return nil, err
	}
	todos, err := s.store.Todos(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// AdminDelete removes any todo regardless of owner.
func (s *TodoService) AdminDelete(ctx context.Context, id *security.Identity, todoID int64) error {
	if err := security.RequireRole(id, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.Todos(s.db).Delete(ctx, todoID); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	s.log.Info("todo deleted by admin", zap.Int64("todo_id", todoID), zap.String("admin", id.Username))
	return nil
}

func (s *TodoService) lockOwned(ctx context.Context, todos repository.TodoRepository, id *security.Identity, todoID int64) (*model.Todo, error) {
	todo, err := todos.FindByIDForUpdate(ctx, todoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	if err := security.RequireOwner(id, todo.OwnerID); err != nil {
		return nil, fmt.Errorf("todo %d: %w", todoID, err)
	}
	return todo, nil
}
