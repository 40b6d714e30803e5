package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "invoice-desk/internal/masterdata/domain"
)

const defaultCustomersTable = "customers"

const customerColumns = `id, salutation, title, first_name, last_name, company, street, postal_code, city,
	email, phone, created_at, updated_at`

// CustomerRepository is a Postgres implementation for customers.
type CustomerRepository struct {
	db    DBTX
	table string
}

// NewCustomerRepository constructs a repository.
func NewCustomerRepository(db DBTX, opts ...CustomerOption) *CustomerRepository {
	repo := &CustomerRepository{db: db, table: defaultCustomersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// CustomerOption configures the repository.
type CustomerOption func(*CustomerRepository)

// WithCustomerTable overrides the default table name.
func WithCustomerTable(table string) CustomerOption {
	return func(repo *CustomerRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a customer by id.
func (r *CustomerRepository) Get(ctx context.Context, id int64) (*masterdata.Customer, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("customer repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, customerColumns, r.table)
	return scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

// List returns all customers ordered by last name.
func (r *CustomerRepository) List(ctx context.Context) ([]masterdata.Customer, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("customer repo: nil db")
	}
	return r.query(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY last_name, first_name, company, id`, customerColumns, r.table))
}

// Search matches name, company and city case-insensitively.
func (r *CustomerRepository) Search(ctx context.Context, q string) ([]masterdata.Customer, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("customer repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR company ILIKE $1 OR city ILIKE $1
ORDER BY last_name, first_name, company, id`, customerColumns, r.table)
	return r.query(ctx, query, likePattern(q))
}

func (r *CustomerRepository) query(ctx context.Context, query string, args ...any) ([]masterdata.Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			result = append(result, *customer)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save inserts a customer without id, otherwise updates it.
func (r *CustomerRepository) Save(ctx context.Context, c *masterdata.Customer) error {
	if r == nil || r.db == nil {
		return errors.New("customer repo: nil db")
	}
	if c == nil {
		return masterdata.ErrNilRecord
	}
	args := []any{c.Salutation, c.Title, c.FirstName, c.LastName, c.Company, c.Street, c.PostalCode, c.City, c.Email, c.Phone}
	if c.ID == 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (salutation, title, first_name, last_name, company, street, postal_code, city, email, phone)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at, updated_at`, r.table)
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		return nil
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	salutation = $1, title = $2, first_name = $3, last_name = $4, company = $5,
	street = $6, postal_code = $7, city = $8, email = $9, phone = $10, updated_at = NOW()
WHERE id = $11
RETURNING updated_at`, r.table)
	if err := r.db.QueryRowContext(ctx, query, append(args, c.ID)...).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	return nil
}

// Delete removes a customer.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("customer repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanCustomer(row rowScanner) (*masterdata.Customer, error) {
	var c masterdata.Customer
	if err := row.Scan(
		&c.ID, &c.Salutation, &c.Title, &c.FirstName, &c.LastName, &c.Company,
		&c.Street, &c.PostalCode, &c.City, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
