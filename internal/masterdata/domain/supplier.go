package masterdata

import (
	"time"

	"invoice-desk/internal/validation"
)

// DefaultThankYouNote closes every invoice unless overridden.
const DefaultThankYouNote = "Vielen Dank für Ihren Auftrag!"

// Supplier is the issuing business printed in the invoice header and footer.
type Supplier struct {
	ID           int64
	Company      string
	Owner        string
	Street       string
	PostalCode   string
	City         string
	POBox        string
	Phone        string
	Phone2       string
	Mobile       string
	Fax          string
	Email        string
	Web          string
	TaxNumber    string
	VATID        string
	Bank         string
	IBAN         string
	BIC          string
	LogoPath     string
	ThankYouNote string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks user entered fields.
func (s Supplier) Validate() validation.Problems {
	return validation.Collect(
		validation.Required(s.Company, "Firma"),
		validation.PostalCode(s.PostalCode),
		validation.Email(s.Email),
		validation.IBAN(s.IBAN),
	)
}

// Normalize applies defaults and canonical forms before persisting.
func (s *Supplier) Normalize() {
	if s.ThankYouNote == "" {
		s.ThankYouNote = DefaultThankYouNote
	}
	if s.IBAN != "" {
		s.IBAN = validation.NormalizeIBAN(s.IBAN)
	}
}

// CityLine returns "PLZ Ort".
func (s Supplier) CityLine() string {
	return joinNonEmpty(" ", s.PostalCode, s.City)
}
