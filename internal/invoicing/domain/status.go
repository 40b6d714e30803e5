package invoicing

import "fmt"

// Status is the invoice lifecycle state.
type Status string

const (
	// StatusDraft is an invoice that has not been sent.
	StatusDraft Status = "draft"
	// StatusSent is an invoice delivered to the customer.
	StatusSent Status = "sent"
	// StatusPaid is a settled invoice; terminal.
	StatusPaid Status = "paid"
)

var statusRank = map[Status]int{
	StatusDraft: 0,
	StatusSent:  1,
	StatusPaid:  2,
}

var statusLabels = map[Status]string{
	StatusDraft: "Entwurf",
	StatusSent:  "Versendet",
	StatusPaid:  "Bezahlt",
}

// ParseStatus validates a stored or user supplied status.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return status, nil
}

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Next returns the following status; paid stays paid.
func (s Status) Next() Status {
	switch s {
	case StatusDraft:
		return StatusSent
	case StatusSent, StatusPaid:
		return StatusPaid
	default:
		return s
	}
}

// CanTransitionTo reports whether target is reachable without moving backwards.
func (s Status) CanTransitionTo(target Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to >= from
}

// Label returns the display name.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}
