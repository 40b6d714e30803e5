package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/storage"
)

const defaultCountersTable = "invoice_numbers"

// CounterRepository persists per-year invoice number counters.
type CounterRepository struct {
	db    storage.DBTX
	table string
}

// CounterOption configures the repository.
type CounterOption func(*CounterRepository)

// WithCounterTable overrides the default table name.
func WithCounterTable(table string) CounterOption {
	return func(repo *CounterRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewCounterRepository constructs a repository.
func NewCounterRepository(db storage.DBTX, opts ...CounterOption) *CounterRepository {
	repo := &CounterRepository{db: db, table: defaultCountersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Increment inserts sequence 1 for an unseen year or bumps the stored value by one.
// The upsert holds the year row lock until it returns, so concurrent callers never
// read the same pre-increment value.
func (r *CounterRepository) Increment(ctx context.Context, year int) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("counter repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (year, last_sequence, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (year)
DO UPDATE SET
	last_sequence = %[1]s.last_sequence + 1,
	updated_at = NOW()
RETURNING last_sequence`, r.table)

	var sequence int
	if err := r.db.QueryRowContext(ctx, query, year).Scan(&sequence); err != nil {
		return 0, err
	}
	return sequence, nil
}

// Current returns the last issued sequence, 0 for an unseen year.
func (r *CounterRepository) Current(ctx context.Context, year int) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("counter repo: nil db")
	}
	var sequence int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT last_sequence FROM %s WHERE year = $1`, r.table), year).Scan(&sequence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return sequence, nil
}

// List returns all counters ordered by year.
func (r *CounterRepository) List(ctx context.Context) ([]invoicing.YearCounter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("counter repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT year, last_sequence FROM %s ORDER BY year`, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.YearCounter
	for rows.Next() {
		var c invoicing.YearCounter
		if err := rows.Scan(&c.Year, &c.LastSequence); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
