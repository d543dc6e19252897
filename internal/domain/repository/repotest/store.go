// Package repotest provides an in-memory repository.Store for tests above
// the persistence layer.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"todo_app/internal/common"
	"todo_app/internal/domain/model"
	"todo_app/internal/domain/repository"
	"todo_app/internal/platform/database"
)

// Store keeps users and todos in maps. The DBTX handed to Users and Todos is
// ignored, so it works with any *sql.DB, including a sqlmock one.
type Store struct {
	mu         sync.Mutex
	users      map[int64]model.User
	todos      map[int64]model.Todo
	nextUserID int64
	nextTodoID int64

	// Err, when set, is returned by every repository call.
	Err error
}

func NewStore() *Store {
	return &Store{
		users: make(map[int64]model.User),
		todos: make(map[int64]model.Todo),
	}
}

func (s *Store) Users(database.DBTX) repository.UserRepository { return &userRepo{s: s} }
func (s *Store) Todos(database.DBTX) repository.TodoRepository { return &todoRepo{s: s} }

// SeedUser stores u with a fresh id and returns it.
func (s *Store) SeedUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u.ID = s.nextUserID
	s.users[u.ID] = u
	return u
}

// SeedTodo stores t with a fresh id and returns it.
func (s *Store) SeedTodo(t model.Todo) model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTodoID++
	t.ID = s.nextTodoID
	s.todos[t.ID] = t
	return t
}

func (s *Store) User(id int64) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) Todo(id int64) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	return t, ok
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return fmt.Errorf("repotest.Create: %w", common.ErrConflict)
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return common.ErrNotFound
	}
	r.s.users[user.ID] = *user
	return nil
}

type todoRepo struct{ s *Store }

func (r *todoRepo) Create(_ context.Context, todo *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.nextTodoID++
	todo.ID = r.s.nextTodoID
	r.s.todos[todo.ID] = *todo
	return nil
}

func (r *todoRepo) FindByID(_ context.Context, id int64) (*model.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	t, ok := r.s.todos[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *todoRepo) FindByIDForUpdate(ctx context.Context, id int64) (*model.Todo, error) {
	return r.FindByID(ctx, id)
}

func (r *todoRepo) ListByOwner(_ context.Context, ownerID int64) ([]model.Todo, error) {
	return r.list(func(t model.Todo) bool { return t.OwnerID == ownerID })
}

func (r *todoRepo) ListAll(context.Context) ([]model.Todo, error) {
	return r.list(func(model.Todo) bool { return true })
}

func (r *todoRepo) list(keep func(model.Todo) bool) ([]model.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	todos := []model.Todo{}
	for _, t := range r.s.todos {
		if keep(t) {
			todos = append(todos, t)
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (r *todoRepo) Update(_ context.Context, todo *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.todos[todo.ID]; !ok {
		return common.ErrNotFound
	}
	r.s.todos[todo.ID] = *todo
	return nil
}

func (r *todoRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.todos[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.todos, id)
	return nil
}
