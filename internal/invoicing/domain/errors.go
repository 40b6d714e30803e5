package invoicing

import "errors"

var (
	// ErrStorageUnavailable is returned when the durable store cannot complete an operation.
	ErrStorageUnavailable = errors.New("invoicing: storage unavailable")
	// ErrMalformedNumber is returned when an invoice number does not parse.
	ErrMalformedNumber = errors.New("invoicing: malformed invoice number")
	// ErrInvoiceNotFound is returned when an invoice is not found.
	ErrInvoiceNotFound = errors.New("invoicing: invoice not found")
	// ErrDuplicateNumber is returned when an invoice number is already taken.
	ErrDuplicateNumber = errors.New("invoicing: duplicate invoice number")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invoicing: invalid status")
	// ErrInvalidStatusTransition is returned when a status would move backwards.
	ErrInvalidStatusTransition = errors.New("invoicing: invalid status transition")
	// ErrInvalidDiscount is returned for unknown discount kinds.
	ErrInvalidDiscount = errors.New("invoicing: invalid discount kind")
	// ErrNilInvoice is returned when saving a nil invoice.
	ErrNilInvoice = errors.New("invoicing: nil invoice")
	// ErrMissingParty is returned when supplier or customer is not set.
	ErrMissingParty = errors.New("invoicing: supplier and customer required")
	// ErrNoLines is returned when an invoice has no lines.
	ErrNoLines = errors.New("invoicing: invoice has no lines")
)
