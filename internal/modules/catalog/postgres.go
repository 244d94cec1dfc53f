package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Products are stored one JSON document per row so Postgres behaves like the
// document store: a read or write always touches exactly one row.
const createProductsTable = `
CREATE TABLE IF NOT EXISTS catalog_products (
  id         UUID PRIMARY KEY,
  doc        JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type rowDocument struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Variants []Variant       `json:"variants"`
}

func encodeRow(p *Product) ([]byte, error) {
	variants := p.Variants
	if variants == nil {
		variants = []Variant{}
	}
	return json.Marshal(rowDocument{Name: p.Name, Price: p.Price, Category: p.Category, Variants: variants})
}

func decodeRow(id uuid.UUID, raw []byte) (*Product, error) {
	var doc rowDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	if doc.Variants == nil {
		doc.Variants = []Variant{}
	}
	return &Product{ID: id.String(), Name: doc.Name, Price: doc.Price, Category: doc.Category, Variants: doc.Variants}, nil
}

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository stores products in the catalog_products table. Call
// EnsureSchema once at startup.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// EnsureSchema creates the catalog_products table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createProductsTable)
	return err
}

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	doc, err := encodeRow(p)
	if err != nil {
		return err
	}
	id := uuid.New()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_products (id, doc) VALUES ($1, $2)`, id, doc); err != nil {
		return err
	}
	p.ID = id.String()
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	var raw []byte
	err = r.db.QueryRowContext(ctx, `SELECT doc FROM catalog_products WHERE id=$1`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRow(uid, raw)
}

func (r *postgresRepo) List(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, doc FROM catalog_products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		var (
			id  uuid.UUID
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		p, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	uid, err := uuid.Parse(p.ID)
	if err != nil {
		return ErrProductNotFound
	}
	doc, err := encodeRow(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE catalog_products SET doc=$1, updated_at=NOW() WHERE id=$2`, doc, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM catalog_products WHERE id=$1`, uid)
	return err
}

func (r *postgresRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_products`).Scan(&n)
	return n, err
}

func (r *postgresRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *postgresRepo) Close(context.Context) error { return r.db.Close() }
