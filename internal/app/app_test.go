package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoice-desk/internal/config"
	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
)

func newMemoryApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.DocumentsDir = filepath.Join(dir, "Rechnungen")
	cfg.Paths.BackupsDir = filepath.Join(dir, "backups")
	cfg.Backup.AutoOnExit = true
	desk, err := NewMemory(&cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new memory app: %v", err)
	}
	return desk
}

func TestMemoryApp_InvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	desk := newMemoryApp(t)

	supplier := &masterdata.Supplier{
		Company:    "Malerbetrieb Muster",
		Street:     "Hauptstr. 1",
		PostalCode: "10115",
		City:       "Berlin",
		VATID:      "DE123456789",
		IBAN:       "de02 1203 0000 0000 2020 51",
	}
	if err := desk.Masterdata.SaveSupplier(ctx, supplier); err != nil {
		t.Fatalf("save supplier: %v", err)
	}
	customer := &masterdata.Customer{Salutation: "Herr", LastName: "Schulz", PostalCode: "20095", City: "Hamburg"}
	if err := desk.Masterdata.SaveCustomer(ctx, customer); err != nil {
		t.Fatalf("save customer: %v", err)
	}

	inv := &invoicing.Invoice{
		SupplierID: supplier.ID,
		CustomerID: customer.ID,
		Subject:    "Treppenhaus",
		Lines: []invoicing.InvoiceLine{
			{Description: "Streichen", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("39.90"), TaxRate: decimal.NewFromInt(19), Eligible: true},
		},
	}
	if err := desk.Invoices.Save(ctx, inv); err != nil {
		t.Fatalf("save invoice: %v", err)
	}

	res, err := desk.Invoices.Export(ctx, inv.ID, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !res.Embedded || res.EmbedErr != nil {
		t.Fatalf("expected embedded e-invoice, got %+v", res)
	}
	if res.Status != invoicing.StatusSent {
		t.Fatalf("expected sent, got %s", res.Status)
	}
	body, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}

	archivePath := filepath.Join(desk.Config.Paths.DataDir, "archiv.xlsx")
	n, err := desk.ExportArchive(ctx, invoicing.SearchFilter{Status: invoicing.StatusSent}, archivePath)
	if err != nil {
		t.Fatalf("export archive: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 archived invoice, got %d", n)
	}
	rows, err := desk.ArchiveRows(ctx, invoicing.SearchFilter{})
	if err != nil {
		t.Fatalf("archive rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Customer != "Herr Schulz" {
		t.Fatalf("unexpected archive rows %+v", rows)
	}

	if err := desk.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(desk.Config.Paths.BackupsDir, "auto_*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one automatic backup on close, got %v", matches)
	}
}

func TestNewMemory_NilConfig(t *testing.T) {
	if _, err := NewMemory(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
