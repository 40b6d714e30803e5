package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	invoicing "invoice-desk/internal/invoicing/domain"
)

func TestCounterRepository_IncrementPerYear(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepository()
	for want := 1; want <= 3; want++ {
		got, err := repo.Increment(ctx, 2025)
		if err != nil || got != want {
			t.Fatalf("increment: expected %d, got %d (%v)", want, got, err)
		}
	}
	if got, _ := repo.Increment(ctx, 2026); got != 1 {
		t.Fatalf("expected independent year, got %d", got)
	}
	if got, _ := repo.Current(ctx, 2024); got != 0 {
		t.Fatalf("expected 0 for unseen year, got %d", got)
	}
}

func TestCounterRepository_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepository()
	const workers = 50

	var wg sync.WaitGroup
	seen := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.Increment(ctx, 2025)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			seen <- seq
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int]bool)
	for seq := range seen {
		if unique[seq] {
			t.Fatalf("sequence %d issued twice", seq)
		}
		unique[seq] = true
	}
	if len(unique) != workers {
		t.Fatalf("expected %d sequences, got %d", workers, len(unique))
	}
	if got, _ := repo.Current(ctx, 2025); got != workers {
		t.Fatalf("expected counter %d, got %d", workers, got)
	}
}

func TestInvoiceRepository_UniqueNumbers(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	first := &invoicing.Invoice{Number: "RE-2025-0001", Status: invoicing.StatusDraft}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &invoicing.Invoice{Number: "RE-2025-0001"}
	if err := repo.Create(ctx, dup); !errors.Is(err, invoicing.ErrDuplicateNumber) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	exists, _ := repo.NumberExists(ctx, "RE-2025-0001")
	if !exists {
		t.Fatalf("expected number to exist")
	}
}

func TestInvoiceRepository_UpdateReplacesLinesAndIsolates(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	inv := &invoicing.Invoice{
		Number: "RE-2025-0002",
		Date:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Lines: []invoicing.InvoiceLine{
			{Position: 1, Description: "a", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	}
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	inv.Lines[0].Description = "mutated after create"
	stored, _ := repo.Get(ctx, inv.ID)
	if stored.Lines[0].Description != "a" {
		t.Fatalf("repository shares state with caller")
	}

	stored.Lines = append(stored.Lines, invoicing.InvoiceLine{Position: 2, Description: "b"})
	if err := repo.Update(ctx, stored); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.Get(ctx, inv.ID)
	if len(again.Lines) != 2 || again.Lines[1].ID == 0 {
		t.Fatalf("unexpected lines %+v", again.Lines)
	}

	if err := repo.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.Get(ctx, inv.ID); got != nil {
		t.Fatalf("expected deleted invoice")
	}
}

func TestInvoiceRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	for i, tc := range []struct {
		number, subject string
		status          invoicing.Status
	}{
		{"RE-2025-0001", "Heizung Wartung", invoicing.StatusPaid},
		{"RE-2025-0002", "Fenster", invoicing.StatusDraft},
		{"RE-2025-0003", "Heizung Reparatur", invoicing.StatusDraft},
	} {
		inv := &invoicing.Invoice{
			Number:  tc.number,
			Subject: tc.subject,
			Status:  tc.status,
			Date:    time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.Create(ctx, inv); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, _ := repo.List(ctx, invoicing.SearchFilter{Query: "heizung", Status: invoicing.StatusDraft})
	if len(got) != 1 || got[0].Number != "RE-2025-0003" {
		t.Fatalf("unexpected filter result %+v", got)
	}
	all, _ := repo.List(ctx, invoicing.SearchFilter{})
	if len(all) != 3 || all[0].Number != "RE-2025-0003" {
		t.Fatalf("expected newest first, got %+v", all)
	}
}
