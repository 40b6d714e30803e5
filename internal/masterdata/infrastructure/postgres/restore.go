package postgres

import (
	"context"
	"errors"
	"fmt"

	masterdata "invoice-desk/internal/masterdata/domain"
	"invoice-desk/internal/storage"
)

// Put upserts a supplier under its own id, keeping its timestamps.
func (r *SupplierRepository) Put(ctx context.Context, s masterdata.Supplier) error {
	if r == nil || r.db == nil {
		return errors.New("supplier repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, company, owner, street, postal_code, city, po_box, phone, phone2, mobile, fax,
	email, web, tax_number, vat_id, bank, iban, bic, logo_path, thank_you_note, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
	COALESCE($21, NOW()), COALESCE($22, NOW())
)
ON CONFLICT (id) DO UPDATE SET
	company = EXCLUDED.company, owner = EXCLUDED.owner, street = EXCLUDED.street,
	postal_code = EXCLUDED.postal_code, city = EXCLUDED.city, po_box = EXCLUDED.po_box,
	phone = EXCLUDED.phone, phone2 = EXCLUDED.phone2, mobile = EXCLUDED.mobile, fax = EXCLUDED.fax,
	email = EXCLUDED.email, web = EXCLUDED.web, tax_number = EXCLUDED.tax_number,
	vat_id = EXCLUDED.vat_id, bank = EXCLUDED.bank, iban = EXCLUDED.iban, bic = EXCLUDED.bic,
	logo_path = EXCLUDED.logo_path, thank_you_note = EXCLUDED.thank_you_note,
	created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`, r.table)
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Company, s.Owner, s.Street, s.PostalCode, s.City, s.POBox, s.Phone, s.Phone2, s.Mobile, s.Fax,
		s.Email, s.Web, s.TaxNumber, s.VATID, s.Bank, s.IBAN, s.BIC, s.LogoPath, s.ThankYouNote,
		storage.NullTime(s.CreatedAt), storage.NullTime(s.UpdatedAt),
	)
	return err
}

// Put upserts a customer under its own id, keeping its timestamps.
func (r *CustomerRepository) Put(ctx context.Context, c masterdata.Customer) error {
	if r == nil || r.db == nil {
		return errors.New("customer repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, salutation, title, first_name, last_name, company, street, postal_code, city, email, phone,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, COALESCE($12, NOW()), COALESCE($13, NOW())
)
ON CONFLICT (id) DO UPDATE SET
	salutation = EXCLUDED.salutation, title = EXCLUDED.title, first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name, company = EXCLUDED.company, street = EXCLUDED.street,
	postal_code = EXCLUDED.postal_code, city = EXCLUDED.city, email = EXCLUDED.email,
	phone = EXCLUDED.phone, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`, r.table)
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Salutation, c.Title, c.FirstName, c.LastName, c.Company, c.Street, c.PostalCode, c.City,
		c.Email, c.Phone, storage.NullTime(c.CreatedAt), storage.NullTime(c.UpdatedAt),
	)
	return err
}

// Put upserts an article under its own id, keeping its timestamps.
func (r *ArticleRepository) Put(ctx context.Context, a masterdata.Article) error {
	if r == nil || r.db == nil {
		return errors.New("article repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, name, description, price, tax_rate, eligible, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6, COALESCE($7, NOW()), COALESCE($8, NOW()))
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
	tax_rate = EXCLUDED.tax_rate, eligible = EXCLUDED.eligible,
	created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`, r.table)
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Description, a.Price, a.TaxRate, a.Eligible,
		storage.NullTime(a.CreatedAt), storage.NullTime(a.UpdatedAt),
	)
	return err
}

// ResetSequences moves the id sequences past restored ids.
func ResetSequences(ctx context.Context, db DBTX, tables ...string) error {
	if len(tables) == 0 {
		tables = []string{defaultSuppliersTable, defaultCustomersTable, defaultArticlesTable}
	}
	for _, table := range tables {
		if err := storage.ResetSequence(ctx, db, table); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}
