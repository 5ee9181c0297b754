package repository

import (
	"context"
	"database/sql"
	"time"

	"splitflap"
	"splitflap/internal/repository/db"
)

type CircuitRepo interface {
	Save(ctx context.Context, c splitflap.CircuitBreakerState) error
	Get(ctx context.Context, circuitID string) (*splitflap.CircuitBreakerState, error)
	List(ctx context.Context) ([]splitflap.CircuitBreakerState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e splitflap.DisplayEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]splitflap.DisplayEvent, error)
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*splitflap.User, error)
}

type Repository struct {
	CircuitRepo CircuitRepo
	EventRepo   EventRepo
	Auth        Authorization
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		CircuitRepo: NewCircuitSQLite(database),
		EventRepo:   NewEventSQLite(database),
		Auth:        NewUserRepository(database),
	}
}

// InitDB re-exports the db package opener so main only imports repository.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
