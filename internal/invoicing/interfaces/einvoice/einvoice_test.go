package einvoice

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoice-desk/internal/invoicing/application"
	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
)

func sampleDocument() application.Document {
	inv := &invoicing.Invoice{
		ID:              9,
		Number:          "RE-2025-0009",
		Date:            time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		ServiceDate:     time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC),
		PaymentTermDays: 14,
		Subject:         "Reparatur <Heizung> & Wartung",
		Discount:        &invoicing.Discount{Kind: invoicing.DiscountFixed, Value: decimal.RequireFromString("10")},
		Lines: []invoicing.InvoiceLine{
			{Description: "Arbeitszeit", Quantity: decimal.RequireFromString("3"), UnitPrice: decimal.RequireFromString("33.33"), TaxRate: decimal.NewFromInt(19), Eligible: true},
			{Description: "Ersatzteil", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("20.01"), TaxRate: decimal.NewFromInt(7)},
			{Description: "Entsorgung", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("5"), TaxRate: decimal.Zero},
		},
	}
	inv.RenumberLines()
	return application.Document{
		Invoice: inv,
		Totals:  inv.ComputeTotals(),
		Supplier: masterdata.Supplier{
			Company: "Heizung & Sanitär GmbH", Street: "Ring 2", PostalCode: "80331", City: "München",
			Email: "rechnung@hs.de", IBAN: "DE89 3704 0044 0532 0130 00", BIC: "COBADEFFXXX",
			VATID: "DE123456789", TaxNumber: "143/123/45678",
		},
		Customer: masterdata.Customer{ID: 4, FirstName: "Anna", LastName: "Schmidt", Street: "Weg 1", PostalCode: "80333", City: "München"},
	}
}

type parsedInvoice struct {
	ID         string `xml:"ExchangedDocument>ID"`
	TypeCode   string `xml:"ExchangedDocument>TypeCode"`
	IssueDate  string `xml:"ExchangedDocument>IssueDateTime>DateTimeString"`
	Guideline  string `xml:"ExchangedDocumentContext>GuidelineSpecifiedDocumentContextParameter>ID"`
	Lines      []struct {
		LineID string `xml:"AssociatedDocumentLineDocument>LineID"`
		Total  string `xml:"SpecifiedLineTradeSettlement>SpecifiedTradeSettlementLineMonetarySummation>LineTotalAmount"`
	} `xml:"SupplyChainTradeTransaction>IncludedSupplyChainTradeLineItem"`
	Seller     string `xml:"SupplyChainTradeTransaction>ApplicableHeaderTradeAgreement>SellerTradeParty>Name"`
	Buyer      string `xml:"SupplyChainTradeTransaction>ApplicableHeaderTradeAgreement>BuyerTradeParty>Name"`
	Settlement struct {
		IBAN  string `xml:"SpecifiedTradeSettlementPaymentMeans>PayeePartyCreditorFinancialAccount>IBANID"`
		Taxes []struct {
			Amount   string `xml:"CalculatedAmount"`
			Basis    string `xml:"BasisAmount"`
			Category string `xml:"CategoryCode"`
			Rate     string `xml:"RateApplicablePercent"`
		} `xml:"ApplicableTradeTax"`
		Allowances []struct {
			Amount string `xml:"ActualAmount"`
		} `xml:"SpecifiedTradeAllowanceCharge"`
		Due       string `xml:"SpecifiedTradePaymentTerms>DueDateDateTime>DateTimeString"`
		LineTotal string `xml:"SpecifiedTradeSettlementHeaderMonetarySummation>LineTotalAmount"`
		Allowance string `xml:"SpecifiedTradeSettlementHeaderMonetarySummation>AllowanceTotalAmount"`
		Basis     string `xml:"SpecifiedTradeSettlementHeaderMonetarySummation>TaxBasisTotalAmount"`
		TaxTotal  string `xml:"SpecifiedTradeSettlementHeaderMonetarySummation>TaxTotalAmount"`
		Grand     string `xml:"SpecifiedTradeSettlementHeaderMonetarySummation>GrandTotalAmount"`
	} `xml:"SupplyChainTradeTransaction>ApplicableHeaderTradeSettlement"`
}

func TestBuildCII(t *testing.T) {
	doc := sampleDocument()
	data, err := BuildCII(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Fatalf("expected xml header")
	}
	if !strings.Contains(string(data), "&lt;Heizung&gt; &amp; Wartung") {
		t.Fatalf("expected escaped subject")
	}

	var got parsedInvoice
	if err := xml.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "RE-2025-0009" || got.TypeCode != "380" || got.IssueDate != "20250301" {
		t.Fatalf("unexpected header: %+v", got)
	}
	if got.Guideline != GuidelineEN16931 {
		t.Fatalf("unexpected guideline %q", got.Guideline)
	}
	if len(got.Lines) != 3 || got.Lines[0].LineID != "1" || got.Lines[0].Total != "99.99" {
		t.Fatalf("unexpected lines: %+v", got.Lines)
	}
	if got.Seller != "Heizung & Sanitär GmbH" || got.Buyer != "Anna Schmidt" {
		t.Fatalf("unexpected parties: %q %q", got.Seller, got.Buyer)
	}

	s := got.Settlement
	if s.IBAN != "DE89370400440532013000" {
		t.Fatalf("expected compact IBAN, got %q", s.IBAN)
	}
	if s.Due != "20250315" {
		t.Fatalf("expected due date 20250315, got %q", s.Due)
	}
	if len(s.Taxes) != 3 {
		t.Fatalf("expected 3 tax groups including zero rate, got %d", len(s.Taxes))
	}
	if s.Taxes[0].Category != "Z" || s.Taxes[1].Category != "S" {
		t.Fatalf("unexpected categories: %+v", s.Taxes)
	}

	totals := doc.Totals
	if s.LineTotal != totals.Net.StringFixed(2) || s.Basis != totals.NetAfterDiscount.StringFixed(2) {
		t.Fatalf("unexpected summation: %+v", s)
	}
	if s.TaxTotal != totals.TaxTotal.StringFixed(2) || s.Grand != totals.Gross.StringFixed(2) {
		t.Fatalf("unexpected tax or grand total: %+v", s)
	}
	if s.Allowance != "10.00" {
		t.Fatalf("expected allowance total 10.00, got %q", s.Allowance)
	}

	sum := decimal.Zero
	for _, a := range s.Allowances {
		sum = sum.Add(decimal.RequireFromString(a.Amount))
	}
	if !sum.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected allowances to add up to the discount, got %s", sum)
	}
	taxSum := decimal.Zero
	for _, tax := range s.Taxes {
		taxSum = taxSum.Add(decimal.RequireFromString(tax.Amount))
	}
	if !taxSum.Equal(totals.TaxTotal) {
		t.Fatalf("expected tax groups to add up to %s, got %s", totals.TaxTotal, taxSum)
	}
}

func TestBuildCIIWithoutNumber(t *testing.T) {
	doc := sampleDocument()
	doc.Invoice.Number = ""
	if _, err := BuildCII(doc); err == nil {
		t.Fatalf("expected error for missing number")
	}
	if _, err := BuildCII(application.Document{}); err == nil {
		t.Fatalf("expected error for nil invoice")
	}
}

func TestEmbedReplacesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "RE-2025-0009.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.3 original"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := NewEmbedder().Embed(context.Background(), path, sampleDocument()); err != nil {
		t.Fatalf("embed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) == "%PDF-1.3 original" || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected rebuilt pdf")
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be gone, found %d entries", len(entries))
	}
}

func TestEmbedFailureKeepsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "RE-2025-0009.pdf")
	original := []byte("%PDF-1.3 original")
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc := sampleDocument()
	doc.Invoice.Number = ""
	if err := NewEmbedder().Embed(context.Background(), path, doc); err == nil {
		t.Fatalf("expected embed failure")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Fatalf("expected original document to be untouched")
	}
}

func TestEmbedMissingDocument(t *testing.T) {
	err := NewEmbedder().Embed(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), sampleDocument())
	if err == nil {
		t.Fatalf("expected error for missing document")
	}
}
