package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	masterdata "invoice-desk/internal/masterdata/domain"
)

// SupplierRepository is an in-memory repository for suppliers.
type SupplierRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]masterdata.Supplier
}

// NewSupplierRepository constructs a repository.
func NewSupplierRepository() *SupplierRepository {
	return &SupplierRepository{data: make(map[int64]masterdata.Supplier)}
}

// Get loads a supplier; nil when absent.
func (r *SupplierRepository) Get(ctx context.Context, id int64) (*masterdata.Supplier, error) {
	_ = ctx
	r.mu.RLock()
	s, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// List returns suppliers ordered by company.
func (r *SupplierRepository) List(ctx context.Context) ([]masterdata.Supplier, error) {
	_ = ctx
	r.mu.RLock()
	result := make([]masterdata.Supplier, 0, len(r.data))
	for _, s := range r.data {
		result = append(result, s)
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Company != result[j].Company {
			return result[i].Company < result[j].Company
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save inserts or updates.
func (r *SupplierRepository) Save(ctx context.Context, s *masterdata.Supplier) error {
	_ = ctx
	if s == nil {
		return masterdata.ErrNilRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if s.ID == 0 {
		r.nextID++
		s.ID = r.nextID
		s.CreatedAt = now
	} else if existing, ok := r.data[s.ID]; ok {
		s.CreatedAt = existing.CreatedAt
	} else {
		return masterdata.ErrNotFound
	}
	s.UpdatedAt = now
	r.data[s.ID] = *s
	return nil
}

// Put stores a supplier under its own id.
func (r *SupplierRepository) Put(s masterdata.Supplier) {
	r.mu.Lock()
	r.data[s.ID] = s
	if s.ID > r.nextID {
		r.nextID = s.ID
	}
	r.mu.Unlock()
}

// Delete removes a supplier.
func (r *SupplierRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return masterdata.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// CustomerRepository is an in-memory repository for customers.
type CustomerRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]masterdata.Customer
}

// NewCustomerRepository constructs a repository.
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{data: make(map[int64]masterdata.Customer)}
}

// Get loads a customer; nil when absent.
func (r *CustomerRepository) Get(ctx context.Context, id int64) (*masterdata.Customer, error) {
	_ = ctx
	r.mu.RLock()
	c, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// List returns customers ordered by last name.
func (r *CustomerRepository) List(ctx context.Context) ([]masterdata.Customer, error) {
	return r.Search(ctx, "")
}

// Search matches name, company and city case-insensitively.
func (r *CustomerRepository) Search(ctx context.Context, query string) ([]masterdata.Customer, error) {
	_ = ctx
	q := strings.ToLower(query)
	r.mu.RLock()
	result := make([]masterdata.Customer, 0, len(r.data))
	for _, c := range r.data {
		if q == "" || containsFold(q, c.FirstName, c.LastName, c.Company, c.City) {
			result = append(result, c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save inserts or updates.
func (r *CustomerRepository) Save(ctx context.Context, c *masterdata.Customer) error {
	_ = ctx
	if c == nil {
		return masterdata.ErrNilRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
		c.CreatedAt = now
	} else if existing, ok := r.data[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		return masterdata.ErrNotFound
	}
	c.UpdatedAt = now
	r.data[c.ID] = *c
	return nil
}

// Put stores a customer under its own id.
func (r *CustomerRepository) Put(c masterdata.Customer) {
	r.mu.Lock()
	r.data[c.ID] = c
	if c.ID > r.nextID {
		r.nextID = c.ID
	}
	r.mu.Unlock()
}

// Delete removes a customer.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return masterdata.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// ArticleRepository is an in-memory repository for articles.
type ArticleRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]masterdata.Article
}

// NewArticleRepository constructs a repository.
func NewArticleRepository() *ArticleRepository {
	return &ArticleRepository{data: make(map[int64]masterdata.Article)}
}

// Get loads an article; nil when absent.
func (r *ArticleRepository) Get(ctx context.Context, id int64) (*masterdata.Article, error) {
	_ = ctx
	r.mu.RLock()
	a, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// List returns articles ordered by name.
func (r *ArticleRepository) List(ctx context.Context) ([]masterdata.Article, error) {
	return r.Search(ctx, "")
}

// Search matches name and description case-insensitively.
func (r *ArticleRepository) Search(ctx context.Context, query string) ([]masterdata.Article, error) {
	_ = ctx
	q := strings.ToLower(query)
	r.mu.RLock()
	result := make([]masterdata.Article, 0, len(r.data))
	for _, a := range r.data {
		if q == "" || containsFold(q, a.Name, a.Description) {
			result = append(result, a)
		}
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save inserts or updates.
func (r *ArticleRepository) Save(ctx context.Context, a *masterdata.Article) error {
	_ = ctx
	if a == nil {
		return masterdata.ErrNilRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if a.ID == 0 {
		r.nextID++
		a.ID = r.nextID
		a.CreatedAt = now
	} else if existing, ok := r.data[a.ID]; ok {
		a.CreatedAt = existing.CreatedAt
	} else {
		return masterdata.ErrNotFound
	}
	a.UpdatedAt = now
	r.data[a.ID] = *a
	return nil
}

// Put stores an article under its own id.
func (r *ArticleRepository) Put(a masterdata.Article) {
	r.mu.Lock()
	r.data[a.ID] = a
	if a.ID > r.nextID {
		r.nextID = a.ID
	}
	r.mu.Unlock()
}

// Delete removes an article.
func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return masterdata.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
