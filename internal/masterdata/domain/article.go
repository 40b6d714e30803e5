package masterdata

import (
	"time"

	"github.com/shopspring/decimal"

	"invoice-desk/internal/validation"
)

// DefaultTaxRate is the standard German VAT rate.
var DefaultTaxRate = decimal.NewFromInt(19)

// Article is a reusable catalogue entry copied into invoice lines.
type Article struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	TaxRate     decimal.Decimal
	Eligible    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GrossPrice returns the price including tax, unrounded.
func (a Article) GrossPrice() decimal.Decimal {
	return a.Price.Add(a.Price.Mul(a.TaxRate).Div(decimal.NewFromInt(100)))
}

// Validate checks user entered fields.
func (a Article) Validate() validation.Problems {
	return validation.Collect(
		validation.Required(a.Name, "Bezeichnung"),
		validation.NonNegative(a.Price, "Preis"),
		validation.NonNegative(a.TaxRate, "MwSt-Satz"),
	)
}
