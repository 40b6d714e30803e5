package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequired(t *testing.T) {
	if got := Required("  ", "Firma"); got != "Firma ist ein Pflichtfeld." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Required("Muster GmbH", "Firma"); got != "" {
		t.Fatalf("expected ok, got %q", got)
	}
}

func TestPostalCode(t *testing.T) {
	cases := map[string]bool{
		"":       true,
		"12345":  true,
		" 12345": true,
		"1234":   false,
		"123456": false,
		"12a45":  false,
	}
	for input, ok := range cases {
		if got := PostalCode(input); (got == "") != ok {
			t.Fatalf("postal code %q: expected ok=%v, got %q", input, ok, got)
		}
	}
}

func TestEmail(t *testing.T) {
	cases := map[string]bool{
		"":                    true,
		"info@example.de":     true,
		"a.b@sub.example.org": true,
		"info@example":        false,
		"info example.de":     false,
		"@example.de":         false,
	}
	for input, ok := range cases {
		if got := Email(input); (got == "") != ok {
			t.Fatalf("email %q: expected ok=%v, got %q", input, ok, got)
		}
	}
}

func TestIBAN(t *testing.T) {
	cases := map[string]bool{
		"":                            true,
		"DE89 3704 0044 0532 0130 00": true,
		"de89370400440532013000":      true,
		"DE8937":                      false,
		"1234370400440532013000":      false,
	}
	for input, ok := range cases {
		if got := IBAN(input); (got == "") != ok {
			t.Fatalf("iban %q: expected ok=%v, got %q", input, ok, got)
		}
	}
	if got := NormalizeIBAN("de89 3704"); got != "DE893704" {
		t.Fatalf("unexpected normalized iban %q", got)
	}
}

func TestNonNegative(t *testing.T) {
	if got := NonNegative(decimal.NewFromInt(-1), "Preis"); got != "Preis darf nicht negativ sein." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := NonNegative(decimal.Zero, "Preis"); got != "" {
		t.Fatalf("expected ok, got %q", got)
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(decimal.NewFromInt(150), "Rabatt"); got != "Rabatt muss zwischen 0 und 100 liegen." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Percentage(decimal.NewFromInt(-1), "Rabatt"); got == "" {
		t.Fatalf("expected complaint for negative percentage")
	}
	if got := Percentage(decimal.NewFromInt(100), "Rabatt"); got != "" {
		t.Fatalf("expected ok, got %q", got)
	}
}

func TestCollect(t *testing.T) {
	problems := Collect("", PostalCode("1"), Email("x"), "")
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", problems)
	}
	err := problems.Err()
	var target Problems
	if !errors.As(err, &target) || len(target) != 2 {
		t.Fatalf("expected Problems error, got %v", err)
	}
	if Collect("", "").Err() != nil {
		t.Fatalf("expected nil error for no problems")
	}
}
