package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"payment-gateway/pkg/ledger"

	_ "github.com/lib/pq"
)

// PostgresStore persists the ledger in PostgreSQL. An insertion sequence
// column provides the most-recent-first ordering the ledger requires.
type PostgresStore struct {
	db *sql.DB
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DefaultConfig returns default PostgreSQL configuration for local development.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "gateway_db",
		SSLMode:  "disable",
	}
}

// NewPostgresStore opens a connection pool, verifies it, and creates the
// transactions table if missing.
func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			merchant TEXT NOT NULL,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			created_label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_id ON transactions(id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Append inserts a new transaction.
func (s *PostgresStore) Append(ctx context.Context, tx *ledger.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, amount, merchant, email, status, created_label)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.Type, tx.Amount, tx.Merchant, tx.Email, tx.Status, tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres append: %w", err)
	}
	return nil
}

// Find returns the transaction with the given ID, or ledger.ErrNotFound.
func (s *PostgresStore) Find(ctx context.Context, id string) (*ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, amount, merchant, email, status, created_label
		 FROM transactions WHERE id = $1`, id,
	)

	var tx ledger.Transaction
	err := row.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Merchant, &tx.Email, &tx.Status, &tx.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres find: %w", err)
	}
	return &tx, nil
}

// Update persists a status change on an existing transaction.
func (s *PostgresStore) Update(ctx context.Context, tx *ledger.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1`,
		tx.ID, tx.Status,
	)
	if err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// List returns all transactions most-recent-first.
func (s *PostgresStore) List(ctx context.Context) ([]*ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, amount, merchant, email, status, created_label
		 FROM transactions ORDER BY seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres list: %w", err)
	}
	defer rows.Close()

	out := make([]*ledger.Transaction, 0)
	for rows.Next() {
		var tx ledger.Transaction
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Merchant, &tx.Email, &tx.Status, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres list: %w", err)
		}
		out = append(out, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list: %w", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
