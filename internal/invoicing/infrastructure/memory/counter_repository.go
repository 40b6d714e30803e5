package memory

import (
	"context"
	"sort"
	"sync"

	invoicing "invoice-desk/internal/invoicing/domain"
)

// CounterRepository keeps per-year counters behind a mutex.
type CounterRepository struct {
	mu       sync.Mutex
	counters map[int]int
}

// NewCounterRepository constructs a repository.
func NewCounterRepository() *CounterRepository {
	return &CounterRepository{counters: make(map[int]int)}
}

// Increment bumps the counter for year under the lock.
func (r *CounterRepository) Increment(ctx context.Context, year int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[year]++
	return r.counters[year], nil
}

// Current returns the last issued sequence, 0 for an unseen year.
func (r *CounterRepository) Current(ctx context.Context, year int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[year], nil
}

// List returns all counters ordered by year.
func (r *CounterRepository) List(ctx context.Context) ([]invoicing.YearCounter, error) {
	_ = ctx
	r.mu.Lock()
	result := make([]invoicing.YearCounter, 0, len(r.counters))
	for year, seq := range r.counters {
		result = append(result, invoicing.YearCounter{Year: year, LastSequence: seq})
	}
	r.mu.Unlock()
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	return result, nil
}

// Put overwrites one counter.
func (r *CounterRepository) Put(counter invoicing.YearCounter) {
	r.mu.Lock()
	r.counters[counter.Year] = counter.LastSequence
	r.mu.Unlock()
}
