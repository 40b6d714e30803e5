package pdf

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "02.01.2006"

// FormatEUR renders an amount as "1.234,56 €".
func FormatEUR(v decimal.Decimal) string {
	return FormatAmount(v) + " €"
}

// FormatAmount renders an amount with two decimals, a decimal comma and dot grouping.
func FormatAmount(v decimal.Decimal) string {
	s := v.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "," + frac
}

// FormatQuantity renders a quantity with two decimals and a decimal comma.
func FormatQuantity(v decimal.Decimal) string {
	return strings.Replace(v.StringFixed(2), ".", ",", 1)
}

// FormatRate renders a tax or discount percentage without trailing zeros, e.g. "19%" or "7,5%".
func FormatRate(v decimal.Decimal) string {
	return strings.Replace(v.String(), ".", ",", 1) + "%"
}

// FormatDate renders dd.mm.yyyy; the zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// MonthFolder names the folder an invoice dated t is filed under.
func MonthFolder(t time.Time) string {
	return "Rechnungen - " + t.Format("012006")
}

// DocumentPath returns <baseDir>/Rechnungen - MMYYYY/<number>.pdf.
func DocumentPath(baseDir, number string, date time.Time) string {
	return filepath.Join(baseDir, MonthFolder(date), fileName(number)+".pdf")
}

func fileName(number string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(number))
	if name == "" {
		return "Rechnung"
	}
	return name
}
