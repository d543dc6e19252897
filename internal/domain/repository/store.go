package repository

import "todo_app/internal/platform/database"

// Store vends repositories bound to a handle, so the same code runs against
// the pool or inside a transaction.
type Store interface {
	Users(db database.DBTX) UserRepository
	Todos(db database.DBTX) TodoRepository
}

type PgStore struct{}

func NewPgStore() *PgStore {
	return &PgStore{}
}

func (PgStore) Users(db database.DBTX) UserRepository {
	return NewPgUserRepository(db)
}

func (PgStore) Todos(db database.DBTX) TodoRepository {
	return NewPgTodoRepository(db)
}
