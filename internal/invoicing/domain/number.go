package invoicing

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberPrefix is the fixed prefix of every invoice number.
const NumberPrefix = "RE"

const numberSeparator = "-"

// YearCounter is the last issued sequence of one year.
type YearCounter struct {
	Year         int
	LastSequence int
}

// FormatNumber renders RE-YYYY-NNNN.
func FormatNumber(year, sequence int) string {
	return fmt.Sprintf("%s%s%d%s%04d", NumberPrefix, numberSeparator, year, numberSeparator, sequence)
}

// ParseNumber recovers year and sequence from a formatted number.
// Only the canonical rendering of a year >= 1000 and a sequence >= 1 is accepted.
func ParseNumber(number string) (int, int, error) {
	parts := strings.Split(number, numberSeparator)
	if len(parts) != 3 || parts[0] != NumberPrefix {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	year, err := parseDigits(parts[1])
	if err != nil || year < 1000 || strconv.Itoa(year) != parts[1] {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	seq, err := parseDigits(parts[2])
	if err != nil || seq < 1 || fmt.Sprintf("%04d", seq) != parts[2] {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	return year, seq, nil
}

func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
