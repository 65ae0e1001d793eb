package chargeback

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store persists budget allocations locally. Small deployments that
// have no provisioned budgets table keep their allocations here; the
// budget evaluation path reads them exactly like provisioned ones.
//
// The store uses a write-ahead log and prepared statements over a
// single connection, which is all SQLite's single-writer model allows.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	upsertStmt *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
	deleteStmt *sql.Stmt

	closeOnce sync.Once
}

// NewStore opens (creating if needed) the budget store at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS budget_allocations (
		dimension TEXT NOT NULL,
		dim_value TEXT NOT NULL,
		amount REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (dimension, dim_value)
	);

	CREATE INDEX IF NOT EXISTS idx_budget_dimension ON budget_allocations(dimension);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO budget_allocations (dimension, dim_value, amount, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (dimension, dim_value) DO UPDATE SET
			amount = excluded.amount,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT dimension, dim_value, amount, updated_at
		FROM budget_allocations
		WHERE dimension = ? AND dim_value = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT dimension, dim_value, amount, updated_at
		FROM budget_allocations
		WHERE dimension = ?
		ORDER BY dim_value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM budget_allocations
		WHERE dimension = ? AND dim_value = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// SetBudget creates or replaces the allocation for one dimension value.
func (s *Store) SetBudget(ctx context.Context, dimension, value string, amount float64) error {
	if dimension == "" {
		return fmt.Errorf("dimension cannot be empty")
	}
	if value == "" {
		return fmt.Errorf("value cannot be empty")
	}
	if amount < 0 {
		return fmt.Errorf("amount cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.upsertStmt.ExecContext(ctx, dimension, value, amount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// GetBudget loads one allocation. A missing allocation returns nil,
// not an error.
func (s *Store) GetBudget(ctx context.Context, dimension, value string) (*BudgetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var alloc BudgetAllocation
	var updatedAt int64
	err := s.getStmt.QueryRowContext(ctx, dimension, value).Scan(
		&alloc.Dimension, &alloc.Value, &alloc.Amount, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	alloc.UpdatedAt = time.Unix(updatedAt, 0)
	return &alloc, nil
}

// ListBudgets returns all allocations for a dimension, sorted by value.
func (s *Store) ListBudgets(ctx context.Context, dimension string) ([]BudgetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var allocs []BudgetAllocation
	for rows.Next() {
		var alloc BudgetAllocation
		var updatedAt int64
		if err := rows.Scan(&alloc.Dimension, &alloc.Value, &alloc.Amount, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		alloc.UpdatedAt = time.Unix(updatedAt, 0)
		allocs = append(allocs, alloc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return allocs, nil
}

// DeleteBudget removes one allocation. Deleting a missing allocation
// is not an error.
func (s *Store) DeleteBudget(ctx context.Context, dimension, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, dimension, value); err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return nil
}

// Close releases the store. Close is idempotent.
func (s *Store) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.upsertStmt, s.getStmt, s.listStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})
	return closeErr
}
