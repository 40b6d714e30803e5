package masterdata

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCustomer_DisplayName(t *testing.T) {
	cases := []struct {
		name     string
		customer Customer
		want     string
	}{
		{"full", Customer{Salutation: "Herr", Title: "Dr.", FirstName: "Max", LastName: "Muster"}, "Herr Dr. Max Muster"},
		{"bare salutation", Customer{Salutation: "Firma", Company: "Muster GmbH"}, "Muster GmbH"},
		{"only company", Customer{Company: "Muster GmbH"}, "Muster GmbH"},
		{"nothing", Customer{Salutation: "Frau"}, "Unbenannter Kunde"},
		{"last name only", Customer{LastName: "Muster"}, "Muster"},
	}
	for _, tc := range cases {
		if got := tc.customer.DisplayName(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestCustomer_FullName(t *testing.T) {
	if got := (Customer{Salutation: "Herr", FirstName: "Max", LastName: "Muster"}).FullName(); got != "Max Muster" {
		t.Fatalf("unexpected full name %q", got)
	}
	if got := (Customer{Company: "ACME"}).FullName(); got != "ACME" {
		t.Fatalf("unexpected full name %q", got)
	}
	if got := (Customer{}).FullName(); got != "Unbenannter Kunde" {
		t.Fatalf("unexpected full name %q", got)
	}
}

func TestCustomer_Validate(t *testing.T) {
	if problems := (Customer{PostalCode: "123"}).Validate(); len(problems) != 2 {
		t.Fatalf("expected name and postal code problems, got %v", problems)
	}
	if problems := (Customer{Company: "ACME", PostalCode: "12345"}).Validate(); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestSupplier_NormalizeAndValidate(t *testing.T) {
	s := Supplier{Company: "Muster", IBAN: "de89 3704 0044 0532 0130 00"}
	s.Normalize()
	if s.IBAN != "DE89370400440532013000" {
		t.Fatalf("unexpected iban %q", s.IBAN)
	}
	if s.ThankYouNote != DefaultThankYouNote {
		t.Fatalf("expected default thank you note, got %q", s.ThankYouNote)
	}
	if problems := s.Validate(); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
	if problems := (Supplier{Email: "nope"}).Validate(); len(problems) != 2 {
		t.Fatalf("expected two problems, got %v", problems)
	}
}

func TestArticle_GrossPrice(t *testing.T) {
	a := Article{Name: "Fenster putzen", Price: decimal.RequireFromString("100"), TaxRate: decimal.NewFromInt(19)}
	if got := a.GrossPrice(); !got.Equal(decimal.RequireFromString("119")) {
		t.Fatalf("unexpected gross %s", got)
	}
	if problems := (Article{Price: decimal.NewFromInt(-1)}).Validate(); len(problems) != 2 {
		t.Fatalf("expected two problems, got %v", problems)
	}
}
