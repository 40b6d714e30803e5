package invoicing

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercentage applies Value percent of the net total.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed subtracts Value as an absolute amount.
	DiscountFixed DiscountKind = "fixed"
)

// Valid reports whether the kind is known.
func (k DiscountKind) Valid() bool {
	return k == DiscountPercentage || k == DiscountFixed
}

// Discount is an invoice level discount; a nil *Discount means none.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// Amount returns the discount for the given net total.
// Fixed amounts are not clamped to net.
func (d *Discount) Amount(net decimal.Decimal) decimal.Decimal {
	if d == nil || !d.Value.IsPositive() {
		return decimal.Zero
	}
	switch d.Kind {
	case DiscountPercentage:
		return net.Mul(d.Value).Div(hundred).Round(2)
	case DiscountFixed:
		return d.Value.Round(2)
	default:
		return decimal.Zero
	}
}

// LineItem is the calculator input for one invoice line.
type LineItem struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Eligible  bool
}

// Total returns quantity times unit price rounded to cents.
func (l LineItem) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Round(2)
}

// RateTax is the tax owed at one rate.
// Base is the prorated net after discount rounded to cents; Amount is computed from the unrounded base.
type RateTax struct {
	Rate   decimal.Decimal
	Base   decimal.Decimal
	Amount decimal.Decimal
}

// Totals is the computed breakdown of an invoice.
type Totals struct {
	Net              decimal.Decimal
	Discount         decimal.Decimal
	NetAfterDiscount decimal.Decimal
	Taxes            []RateTax
	TaxTotal         decimal.Decimal
	Gross            decimal.Decimal
	EligibleSubtotal decimal.Decimal
}

// Tax returns the tax owed at rate and whether the rate is present.
func (t Totals) Tax(rate decimal.Decimal) (decimal.Decimal, bool) {
	for _, tax := range t.Taxes {
		if tax.Rate.Equal(rate) {
			return tax.Amount, true
		}
	}
	return decimal.Zero, false
}

// Rates returns the reported rates in ascending order.
func (t Totals) Rates() []decimal.Decimal {
	rates := make([]decimal.Decimal, 0, len(t.Taxes))
	for _, tax := range t.Taxes {
		rates = append(rates, tax.Rate)
	}
	return rates
}

type rateGroup struct {
	rate decimal.Decimal
	net  decimal.Decimal
}

// ComputeTotals computes net, discount, per-rate tax, gross and the eligible subtotal.
// Rounding is half away from zero at two places. Inputs are not validated.
func ComputeTotals(lines []LineItem, discount *Discount) Totals {
	totals := Totals{
		Net:              decimal.Zero,
		Discount:         decimal.Zero,
		NetAfterDiscount: decimal.Zero,
		Taxes:            []RateTax{},
		TaxTotal:         decimal.Zero,
		Gross:            decimal.Zero,
		EligibleSubtotal: decimal.Zero,
	}
	if len(lines) == 0 {
		return totals
	}

	sum := decimal.Zero
	eligible := decimal.Zero
	var groups []rateGroup
	for _, line := range lines {
		total := line.Total()
		sum = sum.Add(total)
		if line.Eligible {
			eligible = eligible.Add(total)
		}
		idx := -1
		for i := range groups {
			if groups[i].rate.Equal(line.TaxRate) {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, rateGroup{rate: line.TaxRate, net: decimal.Zero})
			idx = len(groups) - 1
		}
		groups[idx].net = groups[idx].net.Add(total)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].rate.LessThan(groups[j].rate)
	})

	net := sum.Round(2)
	discountAmount := discount.Amount(net)
	totals.Net = net
	totals.Discount = discountAmount
	totals.NetAfterDiscount = net.Sub(discountAmount).Round(2)
	totals.EligibleSubtotal = eligible.Round(2)

	taxSum := decimal.Zero
	for _, group := range groups {
		if !group.rate.IsPositive() {
			continue
		}
		base := group.net
		if net.IsPositive() {
			base = group.net.Sub(discountAmount.Mul(group.net).Div(net))
		}
		amount := base.Mul(group.rate).Div(hundred).Round(2)
		taxSum = taxSum.Add(amount)
		totals.Taxes = append(totals.Taxes, RateTax{
			Rate:   group.rate,
			Base:   base.Round(2),
			Amount: amount,
		})
	}
	totals.TaxTotal = taxSum.Round(2)
	totals.Gross = totals.NetAfterDiscount.Add(totals.TaxTotal).Round(2)
	return totals
}
