package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"invoice-desk/internal/audit"
	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/observability/metrics"
)

// Allocator issues gapless per-year invoice numbers.
type Allocator struct {
	counters invoicing.CounterStore
	lookup   invoicing.NumberLookup
	clock    Clock
	audit    audit.Logger
	logger   zerolog.Logger
}

// AllocatorOption configures the allocator.
type AllocatorOption func(*Allocator)

// WithAllocatorClock overrides the clock used for the current year.
func WithAllocatorClock(clock Clock) AllocatorOption {
	return func(a *Allocator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithAllocatorAudit records allocations.
func WithAllocatorAudit(logger audit.Logger) AllocatorOption {
	return func(a *Allocator) {
		if logger != nil {
			a.audit = logger
		}
	}
}

// WithAllocatorLogger sets the allocator logger.
func WithAllocatorLogger(logger zerolog.Logger) AllocatorOption {
	return func(a *Allocator) {
		a.logger = logger
	}
}

// NewAllocator constructs an allocator over a counter store and an invoice lookup.
func NewAllocator(counters invoicing.CounterStore, lookup invoicing.NumberLookup, opts ...AllocatorOption) (*Allocator, error) {
	if counters == nil {
		return nil, errors.New("allocator: nil counter store")
	}
	if lookup == nil {
		return nil, errors.New("allocator: nil number lookup")
	}
	a := &Allocator{
		counters: counters,
		lookup:   lookup,
		clock:    SystemClock{},
		audit:    audit.Nop{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Allocate increments the counter for year and returns the formatted number.
// Numbers already attached to an invoice are skipped.
// The counter is persisted before the number is returned; failures are not retried.
func (a *Allocator) Allocate(ctx context.Context, year int) (string, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveNumberAllocation(result, time.Since(start))
	}()

	var (
		sequence int
		number   string
	)
	for {
		var err error
		sequence, err = a.counters.Increment(ctx, year)
		if err != nil {
			result = metrics.ResultError
			a.logger.Error().Err(err).Int("year", year).Msg("invoice number allocation failed")
			return "", &StorageError{Op: "allocate", Year: year, Err: err}
		}
		number = invoicing.FormatNumber(year, sequence)
		taken, err := a.lookup.NumberExists(ctx, number)
		if err != nil {
			result = metrics.ResultError
			return "", &StorageError{Op: "allocate", Year: year, Number: number, Err: err}
		}
		if !taken {
			break
		}
		// Entered by hand on another invoice; move past it.
		a.logger.Warn().Str("number", number).Msg("invoice number already in use, skipping")
	}
	a.logger.Info().Int("year", year).Int("sequence", sequence).Str("number", number).Msg("invoice number allocated")

	if err := a.audit.Log(ctx, audit.Entry{
		Action:       audit.ActionNumberAllocated,
		ResourceType: audit.ResourceNumber,
		ResourceID:   number,
		Metadata:     audit.Metadata(map[string]int{"year": year, "sequence": sequence}),
	}); err != nil {
		a.logger.Warn().Err(err).Str("number", number).Msg("audit log failed")
	}
	return number, nil
}

// AllocateCurrentYear allocates for the clock's current year.
func (a *Allocator) AllocateCurrentYear(ctx context.Context) (string, error) {
	return a.Allocate(ctx, a.clock.Now().Year())
}

// Peek returns the last issued sequence for year without changing it; 0 when unseen.
func (a *Allocator) Peek(ctx context.Context, year int) (int, error) {
	sequence, err := a.counters.Current(ctx, year)
	if err != nil {
		return 0, &StorageError{Op: "peek", Year: year, Err: err}
	}
	return sequence, nil
}

// Exists reports whether number is attached to a persisted invoice.
func (a *Allocator) Exists(ctx context.Context, number string) (bool, error) {
	exists, err := a.lookup.NumberExists(ctx, number)
	if err != nil {
		return false, &StorageError{Op: "exists", Number: number, Err: err}
	}
	return exists, nil
}

// Next previews the number the next allocation for year would return.
func (a *Allocator) Next(ctx context.Context, year int) (string, error) {
	sequence, err := a.Peek(ctx, year)
	if err != nil {
		return "", err
	}
	return invoicing.FormatNumber(year, sequence+1), nil
}
