package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"miniecom/internal/product/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL,
			currency    TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			meta        JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price_cents, currency, image_url, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Currency, p.ImageURL, p.Meta, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, price_cents, currency, image_url, meta, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Meta, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repository) Update(ctx context.Context, p domain.Product) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, price_cents = $4, currency = $5, image_url = $6, meta = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Currency, p.ImageURL, p.Meta, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *Repository) List(ctx context.Context, page, limit int) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, price_cents, currency, image_url, meta, created_at, updated_at
		FROM products ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, page*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
