package invoicing

import "context"

// CounterStore persists the per-year sequence counters.
type CounterStore interface {
	// Increment atomically bumps the counter for year and returns the new value.
	Increment(ctx context.Context, year int) (int, error)
	// Current returns the last issued sequence, 0 for an unseen year.
	Current(ctx context.Context, year int) (int, error)
}

// NumberLookup answers whether a number is attached to a persisted invoice.
type NumberLookup interface {
	NumberExists(ctx context.Context, number string) (bool, error)
}

// SearchFilter narrows invoice listings.
type SearchFilter struct {
	Query  string
	Status Status
}

// InvoiceRepository persists invoices and their lines.
type InvoiceRepository interface {
	NumberLookup
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, filter SearchFilter) ([]Invoice, error)
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdatePDFPath(ctx context.Context, id int64, path string) error
	Delete(ctx context.Context, id int64) error
	// NumberOwner returns the id of the invoice holding number, 0 if none.
	NumberOwner(ctx context.Context, number string) (int64, error)
}
