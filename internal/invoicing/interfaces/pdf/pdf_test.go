package pdf

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"invoice-desk/internal/invoicing/application"
	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
)

func TestFormatEUR(t *testing.T) {
	cases := map[string]string{
		"0":          "0,00 €",
		"5":          "5,00 €",
		"999.999":    "1.000,00 €",
		"1234.5":     "1.234,50 €",
		"1234567.89": "1.234.567,89 €",
		"-42.1":      "-42,10 €",
		"-1234.56":   "-1.234,56 €",
	}
	for in, want := range cases {
		if got := FormatEUR(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatEUR(%s): expected %q, got %q", in, want, got)
		}
	}
}

func TestFormatRateAndQuantity(t *testing.T) {
	if got := FormatRate(decimal.RequireFromString("19.00")); got != "19%" {
		t.Fatalf("expected 19%%, got %q", got)
	}
	if got := FormatRate(decimal.RequireFromString("7.5")); got != "7,5%" {
		t.Fatalf("expected 7,5%%, got %q", got)
	}
	if got := FormatQuantity(decimal.RequireFromString("1.5")); got != "1,50" {
		t.Fatalf("expected 1,50, got %q", got)
	}
}

func TestDocumentPath(t *testing.T) {
	date := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	got := DocumentPath("/docs", "RE-2025-0007", date)
	want := filepath.Join("/docs", "Rechnungen - 022025", "RE-2025-0007.pdf")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := DocumentPath("/docs", "A/B", date); filepath.Base(got) != "A_B.pdf" {
		t.Fatalf("expected separators to be replaced, got %s", got)
	}
	if FormatDate(time.Time{}) != "" {
		t.Fatalf("expected zero date to render empty")
	}
}

func sampleDocument(lines int) application.Document {
	inv := &invoicing.Invoice{
		ID:              3,
		Number:          "RE-2025-0003",
		Date:            time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
		Subject:         "Gartenpflege Frühjahr",
		Property:        "WEG Sonnenweg 4",
		ServicePeriod:   "April 2025",
		PaymentTermDays: 14,
		Discount:        &invoicing.Discount{Kind: invoicing.DiscountPercentage, Value: decimal.NewFromInt(5)},
		Notes:           "Bitte Rechnungsnummer bei Zahlung angeben.",
	}
	for i := 0; i < lines; i++ {
		rate := decimal.NewFromInt(19)
		if i%3 == 0 {
			rate = decimal.NewFromInt(7)
		}
		inv.Lines = append(inv.Lines, invoicing.InvoiceLine{
			Description: "Hecke schneiden und Grünschnitt entsorgen, inklusive Anfahrt und Kleinmaterial",
			Quantity:    decimal.RequireFromString("1.5"),
			UnitPrice:   decimal.RequireFromString("48.90"),
			TaxRate:     rate,
			Eligible:    i%2 == 0,
		})
	}
	inv.RenumberLines()
	return application.Document{
		Invoice: inv,
		Totals:  inv.ComputeTotals(),
		Supplier: masterdata.Supplier{
			Company: "Garten Müller", Owner: "Jörg Müller", Street: "Lindenstraße 1", PostalCode: "50667", City: "Köln",
			Phone: "0221 123456", Email: "info@garten-mueller.de", Bank: "Sparkasse", IBAN: "DE89370400440532013000",
			BIC: "COBADEFFXXX", TaxNumber: "214/5678/9012", VATID: "DE123456789", LogoPath: "/does/not/exist.png",
		},
		Customer: masterdata.Customer{ID: 12, Salutation: "Herr", FirstName: "Max", LastName: "Mustermann", Street: "Hauptstraße 5", PostalCode: "50668", City: "Köln"},
	}
}

func TestBuildProducesPDF(t *testing.T) {
	data, err := Build(sampleDocument(3))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", data[:8])
	}
}

func TestBuildManyLines(t *testing.T) {
	short, err := Build(sampleDocument(2))
	if err != nil {
		t.Fatalf("build short: %v", err)
	}
	long, err := Build(sampleDocument(80))
	if err != nil {
		t.Fatalf("build long: %v", err)
	}
	if len(long) <= len(short) {
		t.Fatalf("expected multi-page document to be larger")
	}
}

func TestBuildWithoutOptionalFields(t *testing.T) {
	doc := sampleDocument(1)
	doc.Invoice.Discount = nil
	doc.Invoice.Subject = ""
	doc.Invoice.Property = ""
	doc.Invoice.ServicePeriod = ""
	doc.Invoice.Notes = ""
	doc.Invoice.Lines[0].Eligible = false
	doc.Totals = doc.Invoice.ComputeTotals()
	doc.Supplier = masterdata.Supplier{Company: "Kurz"}
	doc.Customer = masterdata.Customer{ID: 1, Company: "Firma X"}
	if _, err := Build(doc); err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestBuildWithAttachment(t *testing.T) {
	doc := sampleDocument(2)
	plain, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	attached, err := Build(doc, gofpdf.Attachment{Content: bytes.Repeat([]byte("<x/>"), 512), Filename: "factur-x.xml"})
	if err != nil {
		t.Fatalf("build with attachment: %v", err)
	}
	if len(attached) <= len(plain) {
		t.Fatalf("expected attachment to grow the document")
	}
}

func TestRenderWritesMonthFolder(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(dir)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	doc := sampleDocument(2)
	path, err := r.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := filepath.Join(dir, "Rechnungen - 052025", "RE-2025-0003.pdf")
	if path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("expected written pdf, got %v", err)
	}
}

func TestNewRendererRequiresDir(t *testing.T) {
	if _, err := NewRenderer(" "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
