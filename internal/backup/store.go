package backup

import (
	"context"

	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
)

// Store reads and restores the complete record store.
type Store interface {
	Dump(ctx context.Context) (*Data, error)
	// Restore runs fn inside one store transaction; nothing is kept when fn fails.
	Restore(ctx context.Context, fn func(Restorer) error) error
}

// Restorer upserts records by id.
type Restorer interface {
	PutSupplier(ctx context.Context, s masterdata.Supplier) error
	PutCustomer(ctx context.Context, c masterdata.Customer) error
	PutArticle(ctx context.Context, a masterdata.Article) error
	// PutCounter never lowers an existing counter.
	PutCounter(ctx context.Context, c invoicing.YearCounter) error
	PutInvoice(ctx context.Context, inv invoicing.Invoice) error
	PutLine(ctx context.Context, line invoicing.InvoiceLine) error
}
