package backup

import (
	"context"
	"fmt"
	"sync"

	invoicing "invoice-desk/internal/invoicing/domain"
	invmemory "invoice-desk/internal/invoicing/infrastructure/memory"
	masterdata "invoice-desk/internal/masterdata/domain"
	mdmemory "invoice-desk/internal/masterdata/infrastructure/memory"
)

// MemoryStore backs up the in-memory repositories.
// Restores are staged and applied only when every record was accepted.
type MemoryStore struct {
	mu        sync.Mutex
	suppliers *mdmemory.SupplierRepository
	customers *mdmemory.CustomerRepository
	articles  *mdmemory.ArticleRepository
	counters  *invmemory.CounterRepository
	invoices  *invmemory.InvoiceRepository
}

// NewMemoryStore wraps the given repositories.
func NewMemoryStore(
	suppliers *mdmemory.SupplierRepository,
	customers *mdmemory.CustomerRepository,
	articles *mdmemory.ArticleRepository,
	counters *invmemory.CounterRepository,
	invoices *invmemory.InvoiceRepository,
) *MemoryStore {
	return &MemoryStore{
		suppliers: suppliers,
		customers: customers,
		articles:  articles,
		counters:  counters,
		invoices:  invoices,
	}
}

// Dump implements Store.
func (s *MemoryStore) Dump(ctx context.Context) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		data Data
		err  error
	)
	if data.Suppliers, err = s.suppliers.List(ctx); err != nil {
		return nil, err
	}
	if data.Customers, err = s.customers.List(ctx); err != nil {
		return nil, err
	}
	if data.Articles, err = s.articles.List(ctx); err != nil {
		return nil, err
	}
	if data.Counters, err = s.counters.List(ctx); err != nil {
		return nil, err
	}
	headers, err := s.invoices.List(ctx, invoicing.SearchFilter{})
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		inv, err := s.invoices.Get(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			data.Invoices = append(data.Invoices, *inv)
		}
	}
	return &data, nil
}

// Restore implements Store.
func (s *MemoryStore) Restore(ctx context.Context, fn func(Restorer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stage := &memoryStage{invoices: make(map[int64]invoicing.Invoice), numbers: make(map[string]int64)}
	if err := fn(stage); err != nil {
		return err
	}
	for _, inv := range stage.invoiceOrder {
		owner, err := s.invoices.NumberOwner(ctx, inv.Number)
		if err != nil {
			return err
		}
		if owner != 0 && owner != inv.ID {
			return fmt.Errorf("invoice %s: %w", inv.Number, invoicing.ErrDuplicateNumber)
		}
	}
	for _, line := range stage.lines {
		if _, ok := stage.invoices[line.InvoiceID]; ok {
			continue
		}
		existing, err := s.invoices.Get(ctx, line.InvoiceID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("invoice line %d: %w", line.ID, invoicing.ErrInvoiceNotFound)
		}
	}

	for _, sup := range stage.suppliers {
		s.suppliers.Put(sup)
	}
	for _, c := range stage.customers {
		s.customers.Put(c)
	}
	for _, a := range stage.articles {
		s.articles.Put(a)
	}
	for _, c := range stage.counters {
		current, err := s.counters.Current(ctx, c.Year)
		if err != nil {
			return err
		}
		if c.LastSequence > current {
			s.counters.Put(c)
		}
	}
	for _, inv := range stage.invoiceOrder {
		inv.Lines = nil
		s.invoices.Put(inv)
	}
	for _, line := range stage.lines {
		if err := s.invoices.PutLine(line); err != nil {
			return err
		}
	}
	return nil
}

type memoryStage struct {
	suppliers    []masterdata.Supplier
	customers    []masterdata.Customer
	articles     []masterdata.Article
	counters     []invoicing.YearCounter
	invoices     map[int64]invoicing.Invoice
	invoiceOrder []invoicing.Invoice
	numbers      map[string]int64
	lines        []invoicing.InvoiceLine
}

func (m *memoryStage) PutSupplier(_ context.Context, s masterdata.Supplier) error {
	m.suppliers = append(m.suppliers, s)
	return nil
}

func (m *memoryStage) PutCustomer(_ context.Context, c masterdata.Customer) error {
	m.customers = append(m.customers, c)
	return nil
}

func (m *memoryStage) PutArticle(_ context.Context, a masterdata.Article) error {
	m.articles = append(m.articles, a)
	return nil
}

func (m *memoryStage) PutCounter(_ context.Context, c invoicing.YearCounter) error {
	if c.LastSequence < 0 {
		return fmt.Errorf("%w: negative sequence for %d", ErrInvalidSnapshot, c.Year)
	}
	m.counters = append(m.counters, c)
	return nil
}

func (m *memoryStage) PutInvoice(_ context.Context, inv invoicing.Invoice) error {
	if owner, ok := m.numbers[inv.Number]; ok && owner != inv.ID {
		return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
	}
	m.numbers[inv.Number] = inv.ID
	m.invoices[inv.ID] = inv
	m.invoiceOrder = append(m.invoiceOrder, inv)
	return nil
}

func (m *memoryStage) PutLine(_ context.Context, line invoicing.InvoiceLine) error {
	m.lines = append(m.lines, line)
	return nil
}
