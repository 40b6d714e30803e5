package masterdata

import "context"

// SupplierRepository manages supplier persistence.
type SupplierRepository interface {
	Get(ctx context.Context, id int64) (*Supplier, error)
	List(ctx context.Context) ([]Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
	Delete(ctx context.Context, id int64) error
}

// CustomerRepository manages customer persistence.
type CustomerRepository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
	Search(ctx context.Context, query string) ([]Customer, error)
	Save(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id int64) error
}

// ArticleRepository manages article persistence.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (*Article, error)
	List(ctx context.Context) ([]Article, error)
	Search(ctx context.Context, query string) ([]Article, error)
	Save(ctx context.Context, article *Article) error
	Delete(ctx context.Context, id int64) error
}
