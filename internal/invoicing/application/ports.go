package application

import (
	"context"
	"time"

	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SupplierSource loads suppliers; nil when absent.
type SupplierSource interface {
	Get(ctx context.Context, id int64) (*masterdata.Supplier, error)
}

// CustomerSource loads customers; nil when absent.
type CustomerSource interface {
	Get(ctx context.Context, id int64) (*masterdata.Customer, error)
}

// Document is everything needed to render one invoice.
type Document struct {
	Invoice  *invoicing.Invoice
	Totals   invoicing.Totals
	Supplier masterdata.Supplier
	Customer masterdata.Customer
}

// ThankYouNote returns the invoice note, falling back to the supplier's.
func (d Document) ThankYouNote() string {
	if d.Invoice != nil && d.Invoice.ThankYouNote != "" {
		return d.Invoice.ThankYouNote
	}
	if d.Supplier.ThankYouNote != "" {
		return d.Supplier.ThankYouNote
	}
	return masterdata.DefaultThankYouNote
}

// DocumentRenderer writes the visual invoice and returns its path.
type DocumentRenderer interface {
	Render(ctx context.Context, doc Document) (string, error)
}

// EInvoiceEmbedder adds machine-readable invoice data to a rendered document.
// A failure must leave the document at path intact.
type EInvoiceEmbedder interface {
	Embed(ctx context.Context, path string, doc Document) error
}
