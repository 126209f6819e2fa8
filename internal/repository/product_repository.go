package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog-api/internal/domain"
)

const productColumns = `pid, catid, name, price, description, image_url, thumbnail_url, image_blurhash, created_at`

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	UpdateImages(ctx context.Context, id int64, imageURL, thumbnailURL, blurHash *string) error
	Delete(ctx context.Context, id int64) (*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.Name,
		&product.Price,
		&product.Description,
		&product.ImageURL,
		&product.ThumbnailURL,
		&product.ImageBlurHash,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Create inserts a new product and fills in its ID, stored price and creation time
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (catid, name, price, description, image_url, thumbnail_url, image_blurhash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING pid, price, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.CategoryID,
		product.Name,
		product.Price,
		product.Description,
		product.ImageURL,
		product.ThumbnailURL,
		product.ImageBlurHash,
	).Scan(&product.ID, &product.Price, &product.CreatedAt)

	if err != nil {
		if isPgError(err, pgForeignKeyViolation, "fk_products_category") {
			return ErrInvalidCategory
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces every mutable column of a product in one statement.
// The price is read back as stored, rounded to two decimals.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET catid = $2, name = $3, price = $4, description = $5,
		    image_url = $6, thumbnail_url = $7, image_blurhash = $8
		WHERE pid = $1
		RETURNING price, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Price,
		product.Description,
		product.ImageURL,
		product.ThumbnailURL,
		product.ImageBlurHash,
	).Scan(&product.Price, &product.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if isPgError(err, pgForeignKeyViolation, "fk_products_category") {
			return ErrInvalidCategory
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// UpdateImages swaps the derivative references of a product
func (r *productRepository) UpdateImages(ctx context.Context, id int64, imageURL, thumbnailURL, blurHash *string) error {
	query := `
		UPDATE products
		SET image_url = $2, thumbnail_url = $3, image_blurhash = $4
		WHERE pid = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, imageURL, thumbnailURL, blurHash)
	if err != nil {
		return fmt.Errorf("failed to update product images: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product and returns the row as it was
func (r *productRepository) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	query := `DELETE FROM products WHERE pid = $1 RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	return product, nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE pid = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products newest first with optional category, text and page filters
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var conditions []string
	args := []interface{}{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("catid = $%d", len(args)))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, pid DESC"

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return scanProducts(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
