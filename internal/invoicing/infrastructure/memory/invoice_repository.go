package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	invoicing "invoice-desk/internal/invoicing/domain"
)

// InvoiceRepository is an in-memory repository for invoices.
type InvoiceRepository struct {
	mu         sync.RWMutex
	nextID     int64
	nextLineID int64
	data       map[int64]*invoicing.Invoice
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{data: make(map[int64]*invoicing.Invoice)}
}

// Get loads an invoice; nil when absent.
func (r *InvoiceRepository) Get(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	inv := r.data[id]
	r.mu.RUnlock()
	return inv.Clone(), nil
}

// List returns invoices newest first. The query matches number, subject and property.
func (r *InvoiceRepository) List(ctx context.Context, filter invoicing.SearchFilter) ([]invoicing.Invoice, error) {
	_ = ctx
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	r.mu.RLock()
	result := make([]invoicing.Invoice, 0, len(r.data))
	for _, inv := range r.data {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if q != "" && !matches(q, inv.Number, inv.Subject, inv.Property) {
			continue
		}
		cp := inv.Clone()
		cp.Lines = nil
		result = append(result, *cp)
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Create stores a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	_ = ctx
	if inv == nil {
		return invoicing.ErrNilInvoice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ownerLocked(inv.Number) != 0 {
		return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
	}
	r.nextID++
	inv.ID = r.nextID
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	r.assignLineIDsLocked(inv)
	r.data[inv.ID] = inv.Clone()
	return nil
}

// Update replaces an invoice and its lines.
func (r *InvoiceRepository) Update(ctx context.Context, inv *invoicing.Invoice) error {
	_ = ctx
	if inv == nil {
		return invoicing.ErrNilInvoice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[inv.ID]
	if !ok {
		return invoicing.ErrInvoiceNotFound
	}
	if owner := r.ownerLocked(inv.Number); owner != 0 && owner != inv.ID {
		return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now().UTC()
	r.assignLineIDsLocked(inv)
	r.data[inv.ID] = inv.Clone()
	return nil
}

// UpdateStatus sets the lifecycle status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status invoicing.Status) error {
	return r.mutate(ctx, id, func(inv *invoicing.Invoice) { inv.Status = status })
}

// UpdatePDFPath stores the generated document path.
func (r *InvoiceRepository) UpdatePDFPath(ctx context.Context, id int64, path string) error {
	return r.mutate(ctx, id, func(inv *invoicing.Invoice) { inv.PDFPath = path })
}

// Delete removes an invoice and its lines.
func (r *InvoiceRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return invoicing.ErrInvoiceNotFound
	}
	delete(r.data, id)
	return nil
}

// NumberExists reports whether number is attached to a stored invoice.
func (r *InvoiceRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	id, err := r.NumberOwner(ctx, number)
	return id != 0, err
}

// NumberOwner returns the id holding number, 0 if none.
func (r *InvoiceRepository) NumberOwner(ctx context.Context, number string) (int64, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownerLocked(number), nil
}

// Put stores an invoice under its own id.
func (r *InvoiceRepository) Put(inv invoicing.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID > r.nextID {
		r.nextID = inv.ID
	}
	for _, line := range inv.Lines {
		if line.ID > r.nextLineID {
			r.nextLineID = line.ID
		}
	}
	r.data[inv.ID] = inv.Clone()
}

// PutLine attaches a line to a stored invoice, replacing one with the same id.
func (r *InvoiceRepository) PutLine(line invoicing.InvoiceLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[line.InvoiceID]
	if !ok {
		return invoicing.ErrInvoiceNotFound
	}
	if line.ID > r.nextLineID {
		r.nextLineID = line.ID
	}
	for i := range inv.Lines {
		if inv.Lines[i].ID == line.ID {
			inv.Lines[i] = line
			return nil
		}
	}
	inv.Lines = append(inv.Lines, line)
	sort.SliceStable(inv.Lines, func(i, j int) bool { return inv.Lines[i].Position < inv.Lines[j].Position })
	return nil
}

func (r *InvoiceRepository) mutate(ctx context.Context, id int64, fn func(*invoicing.Invoice)) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok {
		return invoicing.ErrInvoiceNotFound
	}
	fn(inv)
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InvoiceRepository) ownerLocked(number string) int64 {
	for id, inv := range r.data {
		if inv.Number == number {
			return id
		}
	}
	return 0
}

func (r *InvoiceRepository) assignLineIDsLocked(inv *invoicing.Invoice) {
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
		if inv.Lines[i].ID == 0 {
			r.nextLineID++
			inv.Lines[i].ID = r.nextLineID
		}
	}
}

func matches(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
