package application

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	masterdata "invoice-desk/internal/masterdata/domain"
)

// Service provides validated master data commands.
type Service struct {
	suppliers masterdata.SupplierRepository
	customers masterdata.CustomerRepository
	articles  masterdata.ArticleRepository
	logger    zerolog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a master data service.
func NewService(suppliers masterdata.SupplierRepository, customers masterdata.CustomerRepository, articles masterdata.ArticleRepository, opts ...Option) (*Service, error) {
	if suppliers == nil {
		return nil, errors.New("masterdata service: nil supplier repository")
	}
	if customers == nil {
		return nil, errors.New("masterdata service: nil customer repository")
	}
	if articles == nil {
		return nil, errors.New("masterdata service: nil article repository")
	}
	s := &Service{suppliers: suppliers, customers: customers, articles: articles, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveSupplier validates and saves a supplier.
func (s *Service) SaveSupplier(ctx context.Context, supplier *masterdata.Supplier) error {
	if supplier == nil {
		return masterdata.ErrNilRecord
	}
	supplier.Normalize()
	if err := supplier.Validate().Err(); err != nil {
		return err
	}
	if err := s.suppliers.Save(ctx, supplier); err != nil {
		return err
	}
	s.logger.Info().Int64("supplier_id", supplier.ID).Msg("supplier saved")
	return nil
}

// SaveCustomer validates and saves a customer.
func (s *Service) SaveCustomer(ctx context.Context, customer *masterdata.Customer) error {
	if customer == nil {
		return masterdata.ErrNilRecord
	}
	if err := customer.Validate().Err(); err != nil {
		return err
	}
	if err := s.customers.Save(ctx, customer); err != nil {
		return err
	}
	s.logger.Info().Int64("customer_id", customer.ID).Msg("customer saved")
	return nil
}

// SaveArticle validates and saves an article.
func (s *Service) SaveArticle(ctx context.Context, article *masterdata.Article) error {
	if article == nil {
		return masterdata.ErrNilRecord
	}
	if err := article.Validate().Err(); err != nil {
		return err
	}
	if err := s.articles.Save(ctx, article); err != nil {
		return err
	}
	s.logger.Info().Int64("article_id", article.ID).Msg("article saved")
	return nil
}

// Supplier loads a supplier or returns ErrNotFound.
func (s *Service) Supplier(ctx context.Context, id int64) (*masterdata.Supplier, error) {
	supplier, err := s.suppliers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, masterdata.ErrNotFound
	}
	return supplier, nil
}

// Customer loads a customer or returns ErrNotFound.
func (s *Service) Customer(ctx context.Context, id int64) (*masterdata.Customer, error) {
	customer, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, masterdata.ErrNotFound
	}
	return customer, nil
}

// Article loads an article or returns ErrNotFound.
func (s *Service) Article(ctx context.Context, id int64) (*masterdata.Article, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, masterdata.ErrNotFound
	}
	return article, nil
}

// Suppliers lists all suppliers.
func (s *Service) Suppliers(ctx context.Context) ([]masterdata.Supplier, error) {
	return s.suppliers.List(ctx)
}

// Customers lists customers, filtered when query is set.
func (s *Service) Customers(ctx context.Context, query string) ([]masterdata.Customer, error) {
	if query == "" {
		return s.customers.List(ctx)
	}
	return s.customers.Search(ctx, query)
}

// Articles lists articles, filtered when query is set.
func (s *Service) Articles(ctx context.Context, query string) ([]masterdata.Article, error) {
	if query == "" {
		return s.articles.List(ctx)
	}
	return s.articles.Search(ctx, query)
}

// DeleteSupplier removes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	return s.suppliers.Delete(ctx, id)
}

// DeleteCustomer removes a customer.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.customers.Delete(ctx, id)
}

// DeleteArticle removes an article.
func (s *Service) DeleteArticle(ctx context.Context, id int64) error {
	return s.articles.Delete(ctx, id)
}
