// Package storage реализует хранилище клиентов и подписок платёжной системы
// на основе PostgreSQL (pgxpool).
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX — общий интерфейс *pgxpool.Pool, pgx.Tx и pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB   DBTX
	Pool *pgxpool.Pool
}

// New создаёт пул подключений к PostgreSQL и проверяет соединение.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	pool, err := pgxpool.New(ctx, storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: pool, Pool: pool}, nil
}

// NewWithDB оборачивает готовое соединение (используется в тестах).
func NewWithDB(db DBTX) *Storage {
	return &Storage{DB: db}
}

// Close закрывает пул, если он был открыт.
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// CheckDatabaseReady проверяет, что миграции применены.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	const op = "storage.CheckDatabaseReady"
	var exists bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = 'subscriptions'
	) AND EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = 'customers'
	)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: required tables customers/subscriptions are missing", op)
	}
	return nil
}
