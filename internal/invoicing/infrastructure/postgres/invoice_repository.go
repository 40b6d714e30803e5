package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/storage"
)

const invoiceColumns = `i.id, i.supplier_id, i.customer_id, i.number, i.invoice_date, i.subject, i.property,
	i.service_date, i.service_period, i.payment_term_days, i.discount_kind, i.discount_value,
	i.thank_you_note, i.notes, i.status, i.net, i.tax_total, i.gross, i.eligible_subtotal,
	i.pdf_path, i.created_at, i.updated_at`

const lineColumns = `id, invoice_id, position, article_id, description, quantity, unit_price, tax_rate, eligible`

type rowScanner interface {
	Scan(dest ...any) error
}

// InvoiceRepository persists invoices with their ordered lines.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Get loads an invoice with lines; nil when absent.
func (r *InvoiceRepository) Get(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil || inv == nil {
		return inv, err
	}
	lines, err := listLines(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

// List returns invoices newest first, without lines.
func (r *InvoiceRepository) List(ctx context.Context, filter invoicing.SearchFilter) ([]invoicing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf(`(i.number ILIKE $%[1]d OR i.subject ILIKE $%[1]d OR i.property ILIKE $%[1]d
	OR c.first_name ILIKE $%[1]d OR c.last_name ILIKE $%[1]d OR c.company ILIKE $%[1]d)`, len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf(`i.status = $%d`, len(args)))
	}
	query := `SELECT ` + invoiceColumns + `
FROM invoices i
LEFT JOIN customers c ON c.id = i.customer_id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY i.invoice_date DESC, i.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			result = append(result, *inv)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create inserts the invoice and its lines in one transaction.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if inv == nil {
		return invoicing.ErrNilInvoice
	}
	err := storage.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		kind, value := discountColumns(inv.Discount)
		err := tx.QueryRowContext(ctx, `
INSERT INTO invoices (
	supplier_id, customer_id, number, invoice_date, subject, property, service_date, service_period,
	payment_term_days, discount_kind, discount_value, thank_you_note, notes, status,
	net, tax_total, gross, eligible_subtotal, pdf_path
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)
RETURNING id, created_at, updated_at`,
			inv.SupplierID, inv.CustomerID, inv.Number, inv.Date, inv.Subject, inv.Property,
			storage.NullTime(inv.ServiceDate), inv.ServicePeriod, inv.PaymentTermDays, kind, value,
			inv.ThankYouNote, inv.Notes, string(inv.Status), inv.Net, inv.TaxTotal, inv.Gross,
			inv.EligibleSubtotal, inv.PDFPath,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		inv.ID = 0
	}
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
	}
	if err != nil {
		return err
	}
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return nil
}

// Update rewrites the invoice header and replaces its lines.
func (r *InvoiceRepository) Update(ctx context.Context, inv *invoicing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if inv == nil {
		return invoicing.ErrNilInvoice
	}
	err := storage.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		kind, value := discountColumns(inv.Discount)
		err := tx.QueryRowContext(ctx, `
UPDATE invoices SET
	supplier_id = $1, customer_id = $2, number = $3, invoice_date = $4, subject = $5, property = $6,
	service_date = $7, service_period = $8, payment_term_days = $9, discount_kind = $10,
	discount_value = $11, thank_you_note = $12, notes = $13, status = $14, net = $15,
	tax_total = $16, gross = $17, eligible_subtotal = $18, pdf_path = $19, updated_at = NOW()
WHERE id = $20
RETURNING updated_at`,
			inv.SupplierID, inv.CustomerID, inv.Number, inv.Date, inv.Subject, inv.Property,
			storage.NullTime(inv.ServiceDate), inv.ServicePeriod, inv.PaymentTermDays, kind, value,
			inv.ThankYouNote, inv.Notes, string(inv.Status), inv.Net, inv.TaxTotal, inv.Gross,
			inv.EligibleSubtotal, inv.PDFPath, inv.ID,
		).Scan(&inv.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return invoicing.ErrInvoiceNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, inv)
	})
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
	}
	if err != nil {
		return err
	}
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return nil
}

// UpdateStatus sets the lifecycle status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status invoicing.Status) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	return expectInvoice(res)
}

// UpdatePDFPath stores the generated document path.
func (r *InvoiceRepository) UpdatePDFPath(ctx context.Context, id int64, path string) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET pdf_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
	if err != nil {
		return err
	}
	return expectInvoice(res)
}

// Delete removes an invoice; lines cascade.
func (r *InvoiceRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectInvoice(res)
}

// NumberExists reports whether number is attached to a persisted invoice.
func (r *InvoiceRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("invoice repo: nil db")
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE number = $1)`, number).Scan(&exists)
	return exists, err
}

// NumberOwner returns the id holding number, 0 if none.
func (r *InvoiceRepository) NumberOwner(ctx context.Context, number string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("invoice repo: nil db")
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM invoices WHERE number = $1`, number).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

func insertLines(ctx context.Context, tx *sql.Tx, inv *invoicing.Invoice) error {
	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.InvoiceID = inv.ID
		err := tx.QueryRowContext(ctx, `
INSERT INTO invoice_lines (
	invoice_id, position, article_id, description, quantity, unit_price, tax_rate, eligible, line_total
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
			inv.ID, line.Position, storage.NullInt64(line.ArticleID), line.Description,
			line.Quantity, line.UnitPrice, line.TaxRate, line.Eligible, line.Total(),
		).Scan(&line.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func listLines(ctx context.Context, db storage.DBTX, invoiceID int64) ([]invoicing.InvoiceLine, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+lineColumns+` FROM invoice_lines WHERE invoice_id = $1 ORDER BY position, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.InvoiceLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanInvoice(row rowScanner) (*invoicing.Invoice, error) {
	var (
		inv          invoicing.Invoice
		serviceDate  sql.NullTime
		discountKind sql.NullString
		discountVal  decimal.Decimal
		status       string
	)
	if err := row.Scan(
		&inv.ID, &inv.SupplierID, &inv.CustomerID, &inv.Number, &inv.Date, &inv.Subject, &inv.Property,
		&serviceDate, &inv.ServicePeriod, &inv.PaymentTermDays, &discountKind, &discountVal,
		&inv.ThankYouNote, &inv.Notes, &status, &inv.Net, &inv.TaxTotal, &inv.Gross, &inv.EligibleSubtotal,
		&inv.PDFPath, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if serviceDate.Valid {
		inv.ServiceDate = serviceDate.Time.UTC()
	}
	if discountKind.Valid {
		inv.Discount = &invoicing.Discount{Kind: invoicing.DiscountKind(discountKind.String), Value: discountVal}
	}
	inv.Status = invoicing.Status(status)
	inv.Date = inv.Date.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func scanLine(row rowScanner) (invoicing.InvoiceLine, error) {
	var (
		line      invoicing.InvoiceLine
		articleID sql.NullInt64
	)
	err := row.Scan(&line.ID, &line.InvoiceID, &line.Position, &articleID, &line.Description,
		&line.Quantity, &line.UnitPrice, &line.TaxRate, &line.Eligible)
	line.ArticleID = articleID.Int64
	return line, err
}

func discountColumns(d *invoicing.Discount) (sql.NullString, decimal.Decimal) {
	if d == nil {
		return sql.NullString{}, decimal.Zero
	}
	return sql.NullString{String: string(d.Kind), Valid: true}, d.Value
}

func expectInvoice(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return invoicing.ErrInvoiceNotFound
	}
	return nil
}
