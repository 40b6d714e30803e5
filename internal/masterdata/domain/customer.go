package masterdata

import (
	"fmt"
	"strings"
	"time"

	"invoice-desk/internal/validation"
)

const unnamedCustomer = "Unbenannter Kunde"

// bareSalutations carry no name on their own.
var bareSalutations = map[string]struct{}{
	"Herr":    {},
	"Frau":    {},
	"Firma":   {},
	"Diverse": {},
}

// Customer is an invoice recipient.
type Customer struct {
	ID         int64
	Salutation string
	Title      string
	FirstName  string
	LastName   string
	Company    string
	Street     string
	PostalCode string
	City       string
	Email      string
	Phone      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns salutation, title and name, or the company when no name is set.
func (c Customer) DisplayName() string {
	name := joinNonEmpty(" ", c.Salutation, c.Title, c.FirstName, c.LastName)
	if _, bare := bareSalutations[name]; name == "" || bare {
		return c.companyOrUnnamed()
	}
	return name
}

// FullName returns first and last name, or the company.
func (c Customer) FullName() string {
	name := joinNonEmpty(" ", c.FirstName, c.LastName)
	if name == "" {
		return c.companyOrUnnamed()
	}
	return name
}

// Number is the printed customer number.
func (c Customer) Number() string {
	return fmt.Sprintf("K-%d", c.ID)
}

// CityLine returns "PLZ Ort".
func (c Customer) CityLine() string {
	return joinNonEmpty(" ", c.PostalCode, c.City)
}

// Validate checks user entered fields.
func (c Customer) Validate() validation.Problems {
	var nameProblem string
	if strings.TrimSpace(c.LastName) == "" && strings.TrimSpace(c.Company) == "" {
		nameProblem = validation.Required(c.LastName, "Nachname oder Firma")
	}
	return validation.Collect(
		nameProblem,
		validation.PostalCode(c.PostalCode),
		validation.Email(c.Email),
	)
}

func (c Customer) companyOrUnnamed() string {
	if c.Company != "" {
		return c.Company
	}
	return unnamedCustomer
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
