package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finflow/internal/product/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// Postgres persists products. The products table references the
// institutions table through institution_id.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const productColumns = `id, institution_id, name, type, rate_min, rate_max, is_active, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, product *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, institution_id, name, type, rate_min, rate_max, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		product.ID.String(), product.InstitutionID.String(), product.Name, product.Type,
		product.RateMin, product.RateMax, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, productID.String())
	return scanProduct(row)
}

func (s *Postgres) FindAll(ctx context.Context) ([]*models.Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at`)
}

func (s *Postgres) FindByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE institution_id = $1 ORDER BY created_at`,
		institutionID.String())
}

func (s *Postgres) Update(ctx context.Context, product *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, type = $3, rate_min = $4, rate_max = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		product.ID.String(), product.Name, product.Type, product.RateMin,
		product.RateMax, product.Active, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, productID id.ProductID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID.String())
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		product        models.Product
		rawID          string
		rawInstitution string
	)
	err := row.Scan(&rawID, &rawInstitution, &product.Name, &product.Type,
		&product.RateMin, &product.RateMax, &product.Active,
		&product.CreatedAt, &product.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if product.ID, err = id.ParseProductID(rawID); err != nil {
		return nil, fmt.Errorf("product id %q: %w", rawID, err)
	}
	if product.InstitutionID, err = id.ParseInstitutionID(rawInstitution); err != nil {
		return nil, fmt.Errorf("institution id %q: %w", rawInstitution, err)
	}
	return &product, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
