package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	invoicing "invoice-desk/internal/invoicing/domain"
	invpostgres "invoice-desk/internal/invoicing/infrastructure/postgres"
	masterdata "invoice-desk/internal/masterdata/domain"
	mdpostgres "invoice-desk/internal/masterdata/infrastructure/postgres"
	"invoice-desk/internal/storage"
)

// PostgresStore dumps and restores the Postgres record store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Dump reads all tables from one repeatable-read snapshot.
func (s *PostgresStore) Dump(ctx context.Context) (*Data, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("backup store: nil db")
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var data Data
	if data.Suppliers, err = mdpostgres.NewSupplierRepository(tx).List(ctx); err != nil {
		return nil, fmt.Errorf("suppliers: %w", err)
	}
	if data.Customers, err = mdpostgres.NewCustomerRepository(tx).List(ctx); err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}
	if data.Articles, err = mdpostgres.NewArticleRepository(tx).List(ctx); err != nil {
		return nil, fmt.Errorf("articles: %w", err)
	}
	if data.Counters, err = invpostgres.NewCounterRepository(tx).List(ctx); err != nil {
		return nil, fmt.Errorf("invoice numbers: %w", err)
	}
	if data.Invoices, err = invpostgres.DumpInvoices(ctx, tx); err != nil {
		return nil, fmt.Errorf("invoices: %w", err)
	}
	return &data, nil
}

// Restore runs fn in one transaction and resets id sequences before committing.
func (s *PostgresStore) Restore(ctx context.Context, fn func(Restorer) error) error {
	if s == nil || s.db == nil {
		return errors.New("backup store: nil db")
	}
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r := &postgresRestorer{
			tx:        tx,
			suppliers: mdpostgres.NewSupplierRepository(tx),
			customers: mdpostgres.NewCustomerRepository(tx),
			articles:  mdpostgres.NewArticleRepository(tx),
			counters:  invpostgres.NewCounterRepository(tx),
		}
		if err := fn(r); err != nil {
			return err
		}
		if err := mdpostgres.ResetSequences(ctx, tx); err != nil {
			return err
		}
		return invpostgres.ResetSequences(ctx, tx)
	})
}

type postgresRestorer struct {
	tx        *sql.Tx
	suppliers *mdpostgres.SupplierRepository
	customers *mdpostgres.CustomerRepository
	articles  *mdpostgres.ArticleRepository
	counters  *invpostgres.CounterRepository
}

func (r *postgresRestorer) PutSupplier(ctx context.Context, s masterdata.Supplier) error {
	return r.suppliers.Put(ctx, s)
}

func (r *postgresRestorer) PutCustomer(ctx context.Context, c masterdata.Customer) error {
	return r.customers.Put(ctx, c)
}

func (r *postgresRestorer) PutArticle(ctx context.Context, a masterdata.Article) error {
	return r.articles.Put(ctx, a)
}

func (r *postgresRestorer) PutCounter(ctx context.Context, c invoicing.YearCounter) error {
	if c.LastSequence < 0 {
		return fmt.Errorf("%w: negative sequence for %d", ErrInvalidSnapshot, c.Year)
	}
	return r.counters.Restore(ctx, c)
}

func (r *postgresRestorer) PutInvoice(ctx context.Context, inv invoicing.Invoice) error {
	return invpostgres.PutInvoice(ctx, r.tx, inv)
}

func (r *postgresRestorer) PutLine(ctx context.Context, line invoicing.InvoiceLine) error {
	return invpostgres.PutLine(ctx, r.tx, line)
}
