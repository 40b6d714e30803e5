// Package validation holds stateless field checks for user input.
// Every check returns "" when the value is acceptable, otherwise a complaint for display.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	postalCodePattern = regexp.MustCompile(`^\d{5}$`)
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	ibanPattern       = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{4,30}$`)
)

// Required complains about empty or blank values.
func Required(value, field string) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s ist ein Pflichtfeld.", field)
	}
	return ""
}

// PostalCode accepts empty values and five digit German postal codes.
func PostalCode(value string) string {
	if value != "" && !postalCodePattern.MatchString(strings.TrimSpace(value)) {
		return "PLZ muss 5 Ziffern haben."
	}
	return ""
}

// Email accepts empty values and a loose address shape.
func Email(value string) string {
	if value != "" && !emailPattern.MatchString(strings.TrimSpace(value)) {
		return "Ungültige E-Mail-Adresse."
	}
	return ""
}

// IBAN accepts empty values and the IBAN shape after removing spaces.
func IBAN(value string) string {
	if value == "" {
		return ""
	}
	if !ibanPattern.MatchString(NormalizeIBAN(value)) {
		return "Ungültiges IBAN-Format."
	}
	return ""
}

// NormalizeIBAN strips spaces and upper-cases.
func NormalizeIBAN(value string) string {
	return strings.ToUpper(strings.ReplaceAll(value, " ", ""))
}

// NonNegative complains about values below zero.
func NonNegative(value decimal.Decimal, field string) string {
	if value.IsNegative() {
		return fmt.Sprintf("%s darf nicht negativ sein.", field)
	}
	return ""
}

// Percentage complains about values outside 0 to 100.
func Percentage(value decimal.Decimal, field string) string {
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Sprintf("%s muss zwischen 0 und 100 liegen.", field)
	}
	return ""
}

// Problems is a list of complaints; it is returned as an error by services.
type Problems []string

// Collect keeps the non-empty complaints.
func Collect(results ...string) Problems {
	var out Problems
	for _, r := range results {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Err returns nil when there are no complaints.
func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

func (p Problems) Error() string {
	return strings.Join(p, "\n")
}
