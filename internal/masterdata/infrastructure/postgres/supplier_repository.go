package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "invoice-desk/internal/masterdata/domain"
)

const defaultSuppliersTable = "suppliers"

const supplierColumns = `id, company, owner, street, postal_code, city, po_box, phone, phone2, mobile, fax,
	email, web, tax_number, vat_id, bank, iban, bic, logo_path, thank_you_note, created_at, updated_at`

// SupplierRepository is a Postgres implementation for suppliers.
type SupplierRepository struct {
	db    DBTX
	table string
}

// NewSupplierRepository constructs a repository.
func NewSupplierRepository(db DBTX, opts ...SupplierOption) *SupplierRepository {
	repo := &SupplierRepository{db: db, table: defaultSuppliersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SupplierOption configures the repository.
type SupplierOption func(*SupplierRepository)

// WithSupplierTable overrides the default table name.
func WithSupplierTable(table string) SupplierOption {
	return func(repo *SupplierRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a supplier by id.
func (r *SupplierRepository) Get(ctx context.Context, id int64) (*masterdata.Supplier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("supplier repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, supplierColumns, r.table)
	return scanSupplier(r.db.QueryRowContext(ctx, query, id))
}

// List returns all suppliers ordered by company.
func (r *SupplierRepository) List(ctx context.Context) ([]masterdata.Supplier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("supplier repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY company, id`, supplierColumns, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		if supplier != nil {
			result = append(result, *supplier)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save inserts a supplier without id, otherwise updates it.
func (r *SupplierRepository) Save(ctx context.Context, s *masterdata.Supplier) error {
	if r == nil || r.db == nil {
		return errors.New("supplier repo: nil db")
	}
	if s == nil {
		return masterdata.ErrNilRecord
	}
	args := []any{
		s.Company, s.Owner, s.Street, s.PostalCode, s.City, s.POBox, s.Phone, s.Phone2, s.Mobile, s.Fax,
		s.Email, s.Web, s.TaxNumber, s.VATID, s.Bank, s.IBAN, s.BIC, s.LogoPath, s.ThankYouNote,
	}
	if s.ID == 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (
	company, owner, street, postal_code, city, po_box, phone, phone2, mobile, fax,
	email, web, tax_number, vat_id, bank, iban, bic, logo_path, thank_you_note
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)
RETURNING id, created_at, updated_at`, r.table)
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return err
		}
		s.CreatedAt = s.CreatedAt.UTC()
		s.UpdatedAt = s.UpdatedAt.UTC()
		return nil
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	company = $1, owner = $2, street = $3, postal_code = $4, city = $5, po_box = $6,
	phone = $7, phone2 = $8, mobile = $9, fax = $10, email = $11, web = $12,
	tax_number = $13, vat_id = $14, bank = $15, iban = $16, bic = $17, logo_path = $18,
	thank_you_note = $19, updated_at = NOW()
WHERE id = $20
RETURNING updated_at`, r.table)
	if err := r.db.QueryRowContext(ctx, query, append(args, s.ID)...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return nil
}

// Delete removes a supplier.
func (r *SupplierRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("supplier repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanSupplier(row rowScanner) (*masterdata.Supplier, error) {
	var s masterdata.Supplier
	if err := row.Scan(
		&s.ID, &s.Company, &s.Owner, &s.Street, &s.PostalCode, &s.City, &s.POBox,
		&s.Phone, &s.Phone2, &s.Mobile, &s.Fax, &s.Email, &s.Web, &s.TaxNumber, &s.VATID,
		&s.Bank, &s.IBAN, &s.BIC, &s.LogoPath, &s.ThankYouNote, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return masterdata.ErrNotFound
	}
	return nil
}
