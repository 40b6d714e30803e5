package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoice-desk/internal/audit"
	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/invoicing/infrastructure/memory"
	masterdata "invoice-desk/internal/masterdata/domain"
	mdmemory "invoice-desk/internal/masterdata/infrastructure/memory"
	"invoice-desk/internal/validation"
)

type fakeRenderer struct {
	dir   string
	calls int
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, doc Document) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	path := filepath.Join(r.dir, doc.Invoice.Number+".pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(context.Context, string, Document) error {
	e.calls++
	return e.err
}

type serviceFixture struct {
	svc      *InvoiceService
	invoices *memory.InvoiceRepository
	counters *memory.CounterRepository
	renderer *fakeRenderer
	embedder *fakeEmbedder
	audit    *audit.Recorder
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	invoices := memory.NewInvoiceRepository()
	counters := memory.NewCounterRepository()
	suppliers := mdmemory.NewSupplierRepository()
	customers := mdmemory.NewCustomerRepository()
	suppliers.Put(masterdata.Supplier{ID: 1, Company: "Malerbetrieb Muster", ThankYouNote: "Danke!"})
	customers.Put(masterdata.Customer{ID: 7, Salutation: "Frau", FirstName: "Erika", LastName: "Mustermann"})

	clock := fixedClock{now: time.Date(2025, time.June, 12, 15, 30, 0, 0, time.UTC)}
	recorder := &audit.Recorder{}
	numbers, err := NewAllocator(counters, invoices, WithAllocatorClock(clock))
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	renderer := &fakeRenderer{dir: t.TempDir()}
	embedder := &fakeEmbedder{}
	svc, err := NewInvoiceService(invoices, numbers, suppliers, customers,
		WithRenderer(renderer),
		WithEmbedder(embedder),
		WithClock(clock),
		WithAudit(recorder),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return serviceFixture{svc: svc, invoices: invoices, counters: counters, renderer: renderer, embedder: embedder, audit: recorder}
}

func draftInvoice() *invoicing.Invoice {
	return &invoicing.Invoice{
		SupplierID: 1,
		CustomerID: 7,
		Subject:    "Malerarbeiten Wohnzimmer",
		Lines: []invoicing.InvoiceLine{
			{Description: "Wände streichen", Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("100"), TaxRate: decimal.NewFromInt(19), Eligible: true},
			{Description: "Farbe", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("50"), TaxRate: decimal.NewFromInt(7)},
		},
	}
}

func TestSaveAllocatesNumberAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	inv := draftInvoice()

	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	if inv.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if inv.Number != "RE-2025-0001" {
		t.Fatalf("expected RE-2025-0001, got %s", inv.Number)
	}
	if inv.Status != invoicing.StatusDraft {
		t.Fatalf("expected draft, got %s", inv.Status)
	}
	if inv.PaymentTermDays != invoicing.DefaultPaymentTermDays {
		t.Fatalf("expected default payment term, got %d", inv.PaymentTermDays)
	}
	if !inv.Date.Equal(time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected today's date, got %s", inv.Date)
	}
	if !inv.Net.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected net 250, got %s", inv.Net)
	}
	if !inv.TaxTotal.Equal(decimal.RequireFromString("41.5")) {
		t.Fatalf("expected tax 41.50, got %s", inv.TaxTotal)
	}
	if !inv.Gross.Equal(decimal.RequireFromString("291.5")) {
		t.Fatalf("expected gross 291.50, got %s", inv.Gross)
	}
	if !inv.EligibleSubtotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected eligible 200, got %s", inv.EligibleSubtotal)
	}
	for i, line := range inv.Lines {
		if line.Position != i+1 {
			t.Fatalf("line %d: expected position %d, got %d", i, i+1, line.Position)
		}
	}

	stored, err := f.svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Number != inv.Number || len(stored.Lines) != 2 {
		t.Fatalf("unexpected stored invoice: %+v", stored)
	}
}

func TestSaveRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	first := draftInvoice()
	if err := f.svc.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := draftInvoice()
	second.Number = first.Number
	if err := f.svc.Save(ctx, second); !errors.Is(err, invoicing.ErrDuplicateNumber) {
		t.Fatalf("expected duplicate number, got %v", err)
	}

	first.Subject = "Geändert"
	if err := f.svc.Save(ctx, first); err != nil {
		t.Fatalf("expected update to keep own number: %v", err)
	}
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	if err := f.svc.Save(ctx, nil); !errors.Is(err, invoicing.ErrNilInvoice) {
		t.Fatalf("expected nil invoice error, got %v", err)
	}

	noCustomer := draftInvoice()
	noCustomer.CustomerID = 0
	if err := f.svc.Save(ctx, noCustomer); !errors.Is(err, invoicing.ErrMissingParty) {
		t.Fatalf("expected missing party, got %v", err)
	}

	unknownCustomer := draftInvoice()
	unknownCustomer.CustomerID = 99
	if err := f.svc.Save(ctx, unknownCustomer); !errors.Is(err, masterdata.ErrNotFound) {
		t.Fatalf("expected unknown customer, got %v", err)
	}

	noLines := draftInvoice()
	noLines.Lines = nil
	if err := f.svc.Save(ctx, noLines); !errors.Is(err, invoicing.ErrNoLines) {
		t.Fatalf("expected no lines, got %v", err)
	}

	badDiscount := draftInvoice()
	badDiscount.Discount = &invoicing.Discount{Kind: "bonus", Value: decimal.NewFromInt(5)}
	if err := f.svc.Save(ctx, badDiscount); !errors.Is(err, invoicing.ErrInvalidDiscount) {
		t.Fatalf("expected invalid discount, got %v", err)
	}

	negativeQuantity := draftInvoice()
	negativeQuantity.Lines[1].Quantity = decimal.NewFromInt(-3)
	err := f.svc.Save(ctx, negativeQuantity)
	var problems validation.Problems
	if !errors.As(err, &problems) || len(problems) != 1 || problems[0] != "Menge (Position 2) darf nicht negativ sein." {
		t.Fatalf("expected negative quantity complaint, got %v", err)
	}

	negativePrice := draftInvoice()
	negativePrice.Lines[0].UnitPrice = decimal.NewFromInt(-100)
	if err := f.svc.Save(ctx, negativePrice); !errors.As(err, &problems) {
		t.Fatalf("expected negative price complaint, got %v", err)
	}

	overDiscount := draftInvoice()
	overDiscount.Discount = &invoicing.Discount{Kind: invoicing.DiscountPercentage, Value: decimal.NewFromInt(150)}
	if err := f.svc.Save(ctx, overDiscount); !errors.As(err, &problems) || problems[0] != "Rabatt muss zwischen 0 und 100 liegen." {
		t.Fatalf("expected percentage complaint, got %v", err)
	}

	negativeFixed := draftInvoice()
	negativeFixed.Discount = &invoicing.Discount{Kind: invoicing.DiscountFixed, Value: decimal.NewFromInt(-10)}
	if err := f.svc.Save(ctx, negativeFixed); !errors.As(err, &problems) {
		t.Fatalf("expected negative discount complaint, got %v", err)
	}

	current, err := f.counters.Current(ctx, 2025)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current != 0 {
		t.Fatalf("expected rejected invoices to consume no numbers, got %d", current)
	}
	if stored, _ := f.invoices.List(ctx, invoicing.SearchFilter{}); len(stored) != 0 {
		t.Fatalf("expected nothing stored, got %d invoices", len(stored))
	}
}

func TestSaveUpdateKeepsStoredState(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	result, err := f.svc.Export(ctx, inv.ID, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := f.svc.SetStatus(ctx, inv.ID, invoicing.StatusPaid); err != nil {
		t.Fatalf("set paid: %v", err)
	}
	before, err := f.svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	edit := &invoicing.Invoice{
		ID:         inv.ID,
		SupplierID: 1,
		CustomerID: 7,
		Subject:    "Korrigiert",
		Lines:      draftInvoice().Lines,
	}
	if err := f.svc.Save(ctx, edit); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := f.svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Number != "RE-2025-0001" {
		t.Fatalf("expected number to survive the edit, got %q", got.Number)
	}
	if got.Status != invoicing.StatusPaid {
		t.Fatalf("expected status paid, got %s", got.Status)
	}
	if got.PDFPath != result.Path {
		t.Fatalf("expected pdf path %q, got %q", result.Path, got.PDFPath)
	}
	if !got.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("expected created at %v, got %v", before.CreatedAt, got.CreatedAt)
	}
	if got.Subject != "Korrigiert" {
		t.Fatalf("expected edited subject, got %q", got.Subject)
	}
	if current, _ := f.counters.Current(ctx, 2025); current != 1 {
		t.Fatalf("expected no extra number allocated, got counter %d", current)
	}

	backwards := &invoicing.Invoice{
		ID:         inv.ID,
		SupplierID: 1,
		CustomerID: 7,
		Status:     invoicing.StatusDraft,
		Lines:      draftInvoice().Lines,
	}
	if err := f.svc.Save(ctx, backwards); !errors.Is(err, invoicing.ErrInvalidStatusTransition) {
		t.Fatalf("expected backwards status to fail, got %v", err)
	}
	if got, _ := f.svc.Get(ctx, inv.ID); got.Status != invoicing.StatusPaid {
		t.Fatalf("expected status to stay paid, got %s", got.Status)
	}

	missing := draftInvoice()
	missing.ID = 404
	if err := f.svc.Save(ctx, missing); !errors.Is(err, invoicing.ErrInvoiceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveSkipsHandEnteredNumber(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	manual := draftInvoice()
	manual.Number = "RE-2025-0001"
	if err := f.svc.Save(ctx, manual); err != nil {
		t.Fatalf("save manual: %v", err)
	}

	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	if inv.Number != "RE-2025-0002" {
		t.Fatalf("expected RE-2025-0002, got %q", inv.Number)
	}
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}

	want := []invoicing.Status{invoicing.StatusSent, invoicing.StatusPaid, invoicing.StatusPaid}
	for i, w := range want {
		got, err := f.svc.Advance(ctx, inv.ID)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("advance %d: expected %s, got %s", i, w, got)
		}
	}

	if err := f.svc.SetStatus(ctx, inv.ID, invoicing.StatusDraft); !errors.Is(err, invoicing.ErrInvalidStatusTransition) {
		t.Fatalf("expected backwards transition to fail, got %v", err)
	}
	if err := f.svc.SetStatus(ctx, inv.ID, "cancelled"); !errors.Is(err, invoicing.ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := f.svc.Advance(ctx, 404); !errors.Is(err, invoicing.ErrInvoiceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDuplicateCreatesFreshDraft(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	src := draftInvoice()
	src.ServicePeriod = "Mai 2025"
	src.Discount = &invoicing.Discount{Kind: invoicing.DiscountPercentage, Value: decimal.NewFromInt(10)}
	if err := f.svc.Save(ctx, src); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.svc.Advance(ctx, src.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	cp, err := f.svc.Duplicate(ctx, src.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if cp.ID == src.ID || cp.Number != "RE-2025-0002" {
		t.Fatalf("expected a new invoice with the next number, got id=%d number=%s", cp.ID, cp.Number)
	}
	if cp.Status != invoicing.StatusDraft {
		t.Fatalf("expected draft, got %s", cp.Status)
	}
	if cp.ServicePeriod != "" {
		t.Fatalf("expected service period to be cleared, got %q", cp.ServicePeriod)
	}
	if cp.Discount == nil || !cp.Discount.Value.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected discount to be copied, got %+v", cp.Discount)
	}
	if len(cp.Lines) != len(src.Lines) {
		t.Fatalf("expected %d lines, got %d", len(src.Lines), len(cp.Lines))
	}
	for i := range cp.Lines {
		if cp.Lines[i].ID == src.Lines[i].ID {
			t.Fatalf("line %d shares id with source", i)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.svc.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, inv.ID); !errors.Is(err, invoicing.ErrInvoiceNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, inv.ID); !errors.Is(err, invoicing.ErrInvoiceNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	next := draftInvoice()
	if err := f.svc.Save(ctx, next); err != nil {
		t.Fatalf("save: %v", err)
	}
	if next.Number != "RE-2025-0002" {
		t.Fatalf("expected deleted numbers to stay consumed, got %s", next.Number)
	}
}

func TestExportMarksDraftSent(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := f.svc.Export(ctx, inv.ID, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !result.Embedded || result.EmbedErr != nil {
		t.Fatalf("expected embedded export, got %+v", result)
	}
	if result.Status != invoicing.StatusSent {
		t.Fatalf("expected sent, got %s", result.Status)
	}
	stored, err := f.svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PDFPath != result.Path || stored.Status != invoicing.StatusSent {
		t.Fatalf("expected path and status persisted, got %q %s", stored.PDFPath, stored.Status)
	}

	var exported bool
	for _, e := range f.audit.Entries() {
		if e.Action == audit.ActionInvoiceExported {
			exported = true
		}
	}
	if !exported {
		t.Fatalf("expected export audit entry")
	}
}

func TestExportKeepsDocumentWhenEmbeddingFails(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.embedder.err = errors.New("attachment failed")
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := f.svc.Export(ctx, inv.ID, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Embedded || result.EmbedErr == nil {
		t.Fatalf("expected embed failure to be reported, got %+v", result)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Fatalf("expected document to remain: %v", err)
	}
}

func TestExportWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.svc.Export(ctx, inv.ID, false); err != nil {
		t.Fatalf("export: %v", err)
	}
	if f.embedder.calls != 0 {
		t.Fatalf("expected embedder not to run, got %d calls", f.embedder.calls)
	}
}

func TestExportRenderFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.renderer.err = errors.New("no space")
	inv := draftInvoice()
	if err := f.svc.Save(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.svc.Export(ctx, inv.ID, true); err == nil {
		t.Fatalf("expected render failure")
	}
	stored, err := f.svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != invoicing.StatusDraft {
		t.Fatalf("expected status unchanged after failed render, got %s", stored.Status)
	}
}

func TestDocumentThankYouFallback(t *testing.T) {
	doc := Document{Invoice: &invoicing.Invoice{}, Supplier: masterdata.Supplier{ThankYouNote: "Danke!"}}
	if got := doc.ThankYouNote(); got != "Danke!" {
		t.Fatalf("expected supplier note, got %q", got)
	}
	doc.Supplier.ThankYouNote = ""
	if got := doc.ThankYouNote(); got != masterdata.DefaultThankYouNote {
		t.Fatalf("expected default note, got %q", got)
	}
	doc.Invoice.ThankYouNote = "Bis bald"
	if got := doc.ThankYouNote(); got != "Bis bald" {
		t.Fatalf("expected invoice note, got %q", got)
	}
}
