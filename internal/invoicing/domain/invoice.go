package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaymentTermDays is used when an invoice carries no payment term.
const DefaultPaymentTermDays = 14

// InvoiceLine is one ordered position of an invoice.
type InvoiceLine struct {
	ID          int64
	InvoiceID   int64
	Position    int
	ArticleID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Eligible    bool
}

// Item converts the line to calculator input.
func (l InvoiceLine) Item() LineItem {
	return LineItem{
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		TaxRate:   l.TaxRate,
		Eligible:  l.Eligible,
	}
}

// Total returns the derived line net.
func (l InvoiceLine) Total() decimal.Decimal {
	return l.Item().Total()
}

// Invoice is a persisted invoice with its lines.
type Invoice struct {
	ID               int64
	SupplierID       int64
	CustomerID       int64
	Number           string
	Date             time.Time
	Subject          string
	Property         string
	ServiceDate      time.Time
	ServicePeriod    string
	PaymentTermDays  int
	Discount         *Discount
	ThankYouNote     string
	Notes            string
	Status           Status
	Net              decimal.Decimal
	TaxTotal         decimal.Decimal
	Gross            decimal.Decimal
	EligibleSubtotal decimal.Decimal
	PDFPath          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Lines            []InvoiceLine
}

// Items returns the calculator input for all lines.
func (inv *Invoice) Items() []LineItem {
	items := make([]LineItem, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		items = append(items, line.Item())
	}
	return items
}

// ComputeTotals computes the breakdown from the current lines and discount.
func (inv *Invoice) ComputeTotals() Totals {
	return ComputeTotals(inv.Items(), inv.Discount)
}

// ApplyTotals stores the summary figures of t on the invoice.
func (inv *Invoice) ApplyTotals(t Totals) {
	inv.Net = t.Net
	inv.TaxTotal = t.TaxTotal
	inv.Gross = t.Gross
	inv.EligibleSubtotal = t.EligibleSubtotal
}

// RenumberLines assigns positions 1..n in slice order.
func (inv *Invoice) RenumberLines() {
	for i := range inv.Lines {
		inv.Lines[i].Position = i + 1
		inv.Lines[i].InvoiceID = inv.ID
	}
}

// DueDate returns the invoice date plus the payment term.
func (inv *Invoice) DueDate() time.Time {
	days := inv.PaymentTermDays
	if days <= 0 {
		days = DefaultPaymentTermDays
	}
	return inv.Date.AddDate(0, 0, days)
}

// Clone returns a deep copy.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	cp := *inv
	if inv.Discount != nil {
		d := *inv.Discount
		cp.Discount = &d
	}
	cp.Lines = append([]InvoiceLine(nil), inv.Lines...)
	return &cp
}
