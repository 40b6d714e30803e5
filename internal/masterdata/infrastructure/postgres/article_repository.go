package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "invoice-desk/internal/masterdata/domain"
)

const defaultArticlesTable = "articles"

const articleColumns = `id, name, description, price, tax_rate, eligible, created_at, updated_at`

// ArticleRepository is a Postgres implementation for articles.
type ArticleRepository struct {
	db    DBTX
	table string
}

// NewArticleRepository constructs a repository.
func NewArticleRepository(db DBTX, opts ...ArticleOption) *ArticleRepository {
	repo := &ArticleRepository{db: db, table: defaultArticlesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ArticleOption configures the repository.
type ArticleOption func(*ArticleRepository)

// WithArticleTable overrides the default table name.
func WithArticleTable(table string) ArticleOption {
	return func(repo *ArticleRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads an article by id.
func (r *ArticleRepository) Get(ctx context.Context, id int64) (*masterdata.Article, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("article repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, articleColumns, r.table)
	return scanArticle(r.db.QueryRowContext(ctx, query, id))
}

// List returns all articles ordered by name.
func (r *ArticleRepository) List(ctx context.Context) ([]masterdata.Article, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("article repo: nil db")
	}
	return r.query(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY name, id`, articleColumns, r.table))
}

// Search matches name and description case-insensitively.
func (r *ArticleRepository) Search(ctx context.Context, q string) ([]masterdata.Article, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("article repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE name ILIKE $1 OR description ILIKE $1
ORDER BY name, id`, articleColumns, r.table)
	return r.query(ctx, query, likePattern(q))
}

func (r *ArticleRepository) query(ctx context.Context, query string, args ...any) ([]masterdata.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		if article != nil {
			result = append(result, *article)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save inserts an article without id, otherwise updates it.
func (r *ArticleRepository) Save(ctx context.Context, a *masterdata.Article) error {
	if r == nil || r.db == nil {
		return errors.New("article repo: nil db")
	}
	if a == nil {
		return masterdata.ErrNilRecord
	}
	args := []any{a.Name, a.Description, a.Price, a.TaxRate, a.Eligible}
	if a.ID == 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (name, description, price, tax_rate, eligible)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at, updated_at`, r.table)
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return err
		}
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		return nil
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	name = $1, description = $2, price = $3, tax_rate = $4, eligible = $5, updated_at = NOW()
WHERE id = $6
RETURNING updated_at`, r.table)
	if err := r.db.QueryRowContext(ctx, query, append(args, a.ID)...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	a.UpdatedAt = a.UpdatedAt.UTC()
	return nil
}

// Delete removes an article; invoice lines keep their copied values.
func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("article repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanArticle(row rowScanner) (*masterdata.Article, error) {
	var a masterdata.Article
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Price, &a.TaxRate, &a.Eligible, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}
