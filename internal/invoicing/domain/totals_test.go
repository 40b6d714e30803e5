package invoicing

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(qty, price, rate string, eligible bool) LineItem {
	return LineItem{Quantity: dec(qty), UnitPrice: dec(price), TaxRate: dec(rate), Eligible: eligible}
}

func assertDec(t *testing.T, got decimal.Decimal, want, name string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", name, want, got.String())
	}
}

func TestComputeTotals_Empty(t *testing.T) {
	got := ComputeTotals(nil, nil)
	assertDec(t, got.Net, "0", "net")
	assertDec(t, got.Discount, "0", "discount")
	assertDec(t, got.NetAfterDiscount, "0", "net after discount")
	assertDec(t, got.TaxTotal, "0", "tax")
	assertDec(t, got.Gross, "0", "gross")
	assertDec(t, got.EligibleSubtotal, "0", "eligible")
	if len(got.Taxes) != 0 {
		t.Fatalf("expected no taxes, got %d", len(got.Taxes))
	}
}

func TestComputeTotals_EmptyWithDiscount(t *testing.T) {
	got := ComputeTotals([]LineItem{}, &Discount{Kind: DiscountPercentage, Value: dec("10")})
	assertDec(t, got.Discount, "0", "discount")
	assertDec(t, got.Gross, "0", "gross")
}

func TestComputeTotals_SingleRate(t *testing.T) {
	lines := []LineItem{line("2", "50.00", "19", false)}
	assertDec(t, lines[0].Total(), "100.00", "line total")

	got := ComputeTotals(lines, nil)
	assertDec(t, got.Net, "100.00", "net")
	assertDec(t, got.TaxTotal, "19.00", "tax")
	assertDec(t, got.Gross, "119.00", "gross")
	tax, ok := got.Tax(dec("19"))
	if !ok {
		t.Fatalf("expected 19%% rate present")
	}
	assertDec(t, tax, "19.00", "tax 19")
	if len(got.Taxes) != 1 {
		t.Fatalf("expected one rate, got %d", len(got.Taxes))
	}
}

func TestComputeTotals_MixedRatesPercentageDiscount(t *testing.T) {
	lines := []LineItem{
		line("1", "100.00", "19", false),
		line("1", "100.00", "7", false),
	}
	got := ComputeTotals(lines, &Discount{Kind: DiscountPercentage, Value: dec("10")})

	assertDec(t, got.Net, "200.00", "net")
	assertDec(t, got.Discount, "20.00", "discount")
	assertDec(t, got.NetAfterDiscount, "180.00", "net after discount")
	tax19, _ := got.Tax(dec("19"))
	tax7, _ := got.Tax(dec("7"))
	assertDec(t, tax19, "17.10", "tax 19")
	assertDec(t, tax7, "6.30", "tax 7")
	assertDec(t, got.TaxTotal, "23.40", "tax total")
	assertDec(t, got.Gross, "203.40", "gross")

	if !got.Taxes[0].Rate.Equal(dec("7")) || !got.Taxes[1].Rate.Equal(dec("19")) {
		t.Fatalf("expected rates ascending, got %v", got.Rates())
	}
	assertDec(t, got.Taxes[0].Base, "90.00", "base 7")
	assertDec(t, got.Taxes[1].Base, "90.00", "base 19")
}

func TestComputeTotals_ZeroRateOmitted(t *testing.T) {
	lines := []LineItem{
		line("1", "100.00", "0", false),
		line("1", "100.00", "19", false),
	}
	got := ComputeTotals(lines, &Discount{Kind: DiscountFixed, Value: dec("20")})

	if _, ok := got.Tax(dec("0")); ok {
		t.Fatalf("expected 0%% rate omitted")
	}
	if len(got.Taxes) != 1 {
		t.Fatalf("expected one rate, got %d", len(got.Taxes))
	}
	assertDec(t, got.Net, "200.00", "net")
	// 19% group carries half of the discount: (100 - 10) * 0.19
	assertDec(t, got.TaxTotal, "17.10", "tax")
	assertDec(t, got.Gross, "197.10", "gross")
}

func TestComputeTotals_EligibleIgnoresDiscount(t *testing.T) {
	lines := []LineItem{line("1", "50", "19", true)}
	got := ComputeTotals(lines, &Discount{Kind: DiscountPercentage, Value: dec("50")})
	assertDec(t, got.Discount, "25.00", "discount")
	assertDec(t, got.EligibleSubtotal, "50.00", "eligible")
}

func TestComputeTotals_EligibleOnlyFlaggedLines(t *testing.T) {
	lines := []LineItem{
		line("3", "40", "19", true),
		line("1", "15.50", "19", false),
		line("2", "7.25", "7", true),
	}
	got := ComputeTotals(lines, nil)
	assertDec(t, got.EligibleSubtotal, "134.50", "eligible")
	assertDec(t, got.Net, "150.00", "net")
}

func TestComputeTotals_FixedDiscountNotClamped(t *testing.T) {
	lines := []LineItem{line("1", "50.00", "19", false)}
	got := ComputeTotals(lines, &Discount{Kind: DiscountFixed, Value: dec("80")})

	assertDec(t, got.Discount, "80.00", "discount")
	assertDec(t, got.NetAfterDiscount, "-30.00", "net after discount")
	assertDec(t, got.TaxTotal, "-5.70", "tax")
	assertDec(t, got.Gross, "-35.70", "gross")
}

func TestComputeTotals_NonPositiveDiscountIgnored(t *testing.T) {
	lines := []LineItem{line("1", "100", "19", false)}
	for _, d := range []*Discount{
		{Kind: DiscountFixed, Value: dec("0")},
		{Kind: DiscountFixed, Value: dec("-5")},
		{Kind: DiscountPercentage, Value: dec("-10")},
		{Kind: DiscountKind("other"), Value: dec("10")},
	} {
		got := ComputeTotals(lines, d)
		assertDec(t, got.Discount, "0", "discount")
		assertDec(t, got.Gross, "119.00", "gross")
	}
}

func TestComputeTotals_ZeroNetNoProration(t *testing.T) {
	lines := []LineItem{line("0", "100", "19", false)}
	got := ComputeTotals(lines, &Discount{Kind: DiscountFixed, Value: dec("10")})
	assertDec(t, got.Net, "0", "net")
	assertDec(t, got.NetAfterDiscount, "-10.00", "net after discount")
	tax, ok := got.Tax(dec("19"))
	if !ok {
		t.Fatalf("expected 19%% rate present")
	}
	assertDec(t, tax, "0", "tax")
	assertDec(t, got.Gross, "-10.00", "gross")
}

func TestComputeTotals_NegativeValuesComputedThrough(t *testing.T) {
	lines := []LineItem{line("1", "-20", "19", false), line("1", "50", "19", false)}
	got := ComputeTotals(lines, nil)
	assertDec(t, got.Net, "30.00", "net")
	assertDec(t, got.TaxTotal, "5.70", "tax")
}

func TestComputeTotals_RoundsHalfAwayFromZero(t *testing.T) {
	l := line("1", "0.125", "19", false)
	assertDec(t, l.Total(), "0.13", "line total")
	neg := line("1", "-0.125", "19", false)
	assertDec(t, neg.Total(), "-0.13", "negative line total")

	// 10.05 * 7% = 0.7035 -> 0.70; 0.5 * 19% = 0.095 -> 0.10
	got := ComputeTotals([]LineItem{line("1", "10.05", "7", false), line("1", "0.50", "19", false)}, nil)
	tax7, _ := got.Tax(dec("7"))
	tax19, _ := got.Tax(dec("19"))
	assertDec(t, tax7, "0.70", "tax 7")
	assertDec(t, tax19, "0.10", "tax 19")
}

func TestComputeTotals_TaxSumOfRoundedGroups(t *testing.T) {
	// 1/3 discount split across three rates leaves per-group rounding residue.
	lines := []LineItem{
		line("1", "33.33", "19", false),
		line("1", "33.33", "7", false),
		line("1", "33.34", "16", false),
	}
	got := ComputeTotals(lines, &Discount{Kind: DiscountFixed, Value: dec("10")})
	sum := decimal.Zero
	for _, tax := range got.Taxes {
		sum = sum.Add(tax.Amount)
	}
	if !got.TaxTotal.Equal(sum.Round(2)) {
		t.Fatalf("expected tax total %s, got %s", sum.Round(2), got.TaxTotal)
	}
	if !got.Gross.Equal(got.NetAfterDiscount.Add(got.TaxTotal).Round(2)) {
		t.Fatalf("gross mismatch: %s", got.Gross)
	}
}

func TestComputeTotals_GroupsEqualRatesAcrossScale(t *testing.T) {
	lines := []LineItem{line("1", "10", "19", false), line("1", "10", "19.00", false)}
	got := ComputeTotals(lines, nil)
	if len(got.Taxes) != 1 {
		t.Fatalf("expected one group, got %d", len(got.Taxes))
	}
	assertDec(t, got.TaxTotal, "3.80", "tax")
}

func TestComputeTotals_Deterministic(t *testing.T) {
	lines := []LineItem{
		line("2.5", "19.99", "19", true),
		line("1", "7.77", "7", false),
		line("4", "1.11", "0", false),
	}
	discount := &Discount{Kind: DiscountPercentage, Value: dec("12.5")}
	first := ComputeTotals(lines, discount)
	for i := 0; i < 10; i++ {
		again := ComputeTotals(lines, discount)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}
