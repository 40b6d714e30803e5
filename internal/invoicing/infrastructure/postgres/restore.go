package postgres

import (
	"context"
	"errors"
	"fmt"

	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/storage"
)

// Restore raises the counter for c.Year to c.LastSequence; a higher stored value is kept.
func (r *CounterRepository) Restore(ctx context.Context, c invoicing.YearCounter) error {
	if r == nil || r.db == nil {
		return errors.New("counter repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (year, last_sequence, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (year)
DO UPDATE SET
	last_sequence = GREATEST(%[1]s.last_sequence, EXCLUDED.last_sequence),
	updated_at = NOW()`, r.table)
	_, err := r.db.ExecContext(ctx, query, c.Year, c.LastSequence)
	return err
}

// DumpInvoices loads every invoice with its lines, ordered by id.
func DumpInvoices(ctx context.Context, db storage.DBTX) ([]invoicing.Invoice, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	var (
		invoices []invoicing.Invoice
		index    = make(map[int64]int)
	)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if inv != nil {
			index[inv.ID] = len(invoices)
			invoices = append(invoices, *inv)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	lineRows, err := db.QueryContext(ctx, `SELECT `+lineColumns+` FROM invoice_lines ORDER BY invoice_id, position, id`)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		line, err := scanLine(lineRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[line.InvoiceID]; ok {
			invoices[i].Lines = append(invoices[i].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

// PutInvoice upserts an invoice header under its own id. Lines are restored separately.
func PutInvoice(ctx context.Context, db storage.DBTX, inv invoicing.Invoice) error {
	kind, value := discountColumns(inv.Discount)
	_, err := db.ExecContext(ctx, `
INSERT INTO invoices (
	id, supplier_id, customer_id, number, invoice_date, subject, property, service_date, service_period,
	payment_term_days, discount_kind, discount_value, thank_you_note, notes, status,
	net, tax_total, gross, eligible_subtotal, pdf_path, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
	COALESCE($21, NOW()), COALESCE($22, NOW())
)
ON CONFLICT (id) DO UPDATE SET
	supplier_id = EXCLUDED.supplier_id, customer_id = EXCLUDED.customer_id, number = EXCLUDED.number,
	invoice_date = EXCLUDED.invoice_date, subject = EXCLUDED.subject, property = EXCLUDED.property,
	service_date = EXCLUDED.service_date, service_period = EXCLUDED.service_period,
	payment_term_days = EXCLUDED.payment_term_days, discount_kind = EXCLUDED.discount_kind,
	discount_value = EXCLUDED.discount_value, thank_you_note = EXCLUDED.thank_you_note,
	notes = EXCLUDED.notes, status = EXCLUDED.status, net = EXCLUDED.net, tax_total = EXCLUDED.tax_total,
	gross = EXCLUDED.gross, eligible_subtotal = EXCLUDED.eligible_subtotal, pdf_path = EXCLUDED.pdf_path,
	created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`,
		inv.ID, inv.SupplierID, inv.CustomerID, inv.Number, inv.Date, inv.Subject, inv.Property,
		storage.NullTime(inv.ServiceDate), inv.ServicePeriod, inv.PaymentTermDays, kind, value,
		inv.ThankYouNote, inv.Notes, string(inv.Status), inv.Net, inv.TaxTotal, inv.Gross,
		inv.EligibleSubtotal, inv.PDFPath, storage.NullTime(inv.CreatedAt), storage.NullTime(inv.UpdatedAt),
	)
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
	}
	return err
}

// PutLine upserts an invoice line under its own id.
func PutLine(ctx context.Context, db storage.DBTX, line invoicing.InvoiceLine) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO invoice_lines (
	id, invoice_id, position, article_id, description, quantity, unit_price, tax_rate, eligible, line_total
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	invoice_id = EXCLUDED.invoice_id, position = EXCLUDED.position, article_id = EXCLUDED.article_id,
	description = EXCLUDED.description, quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price,
	tax_rate = EXCLUDED.tax_rate, eligible = EXCLUDED.eligible, line_total = EXCLUDED.line_total`,
		line.ID, line.InvoiceID, line.Position, storage.NullInt64(line.ArticleID), line.Description,
		line.Quantity, line.UnitPrice, line.TaxRate, line.Eligible, line.Total(),
	)
	return err
}

// ResetSequences moves the invoice and line id sequences past restored ids.
func ResetSequences(ctx context.Context, db storage.DBTX) error {
	for _, table := range []string{"invoices", "invoice_lines"} {
		if err := storage.ResetSequence(ctx, db, table); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}
