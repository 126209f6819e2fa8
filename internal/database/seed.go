package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type sampleProduct struct {
	category    string
	name        string
	price       float64
	description string
	image       string
}

var sampleCategories = []string{"Gaming", "Food"}

var sampleProducts = []sampleProduct{
	{"Gaming", "Gaming Controller", 29.99, "Professional gaming controller with responsive controls and ergonomic design.", "/images/controller.jpg"},
	{"Gaming", "Gaming Keyboard", 79.99, "Mechanical gaming keyboard with RGB lighting and programmable keys.", "/images/keyboard.jpg"},
	{"Gaming", "Gaming Glasses", 49.99, "Blue light blocking gaming glasses to reduce eye strain during long gaming sessions.", "/images/glasses.jpg"},
	{"Food", "Basic White Bread", 3.30, "Simply delicious, just buy it!", "/images/bread.jpg"},
	{"Food", "Fresh Beef", 10.00, "Expensive beef, buy or it is your loss!", "/images/Beef.jpg.webp"},
}

// SeedSampleData fills an empty catalog with the storefront's demo categories and products.
// It does nothing when at least one category exists. Returns true when data was inserted.
func SeedSampleData(ctx context.Context, db *sql.DB, logger *zap.Logger) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize concurrent seeders on the categories table
	if _, err := tx.ExecContext(ctx, `LOCK TABLE categories IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return false, fmt.Errorf("failed to lock categories: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		logger.Debug("Catalog already populated, skipping sample data", zap.Int("categories", count))
		return false, nil
	}

	ids := make(map[string]int64, len(sampleCategories))
	for _, name := range sampleCategories {
		var id int64
		err := tx.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING catid`, name).Scan(&id)
		if err != nil {
			return false, fmt.Errorf("failed to insert sample category %q: %w", name, err)
		}
		ids[name] = id
	}

	for _, p := range sampleProducts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (catid, name, price, description, image_url, thumbnail_url)
			VALUES ($1, $2, $3, $4, $5, $5)
		`, ids[p.category], p.name, p.price, p.description, p.image)
		if err != nil {
			return false, fmt.Errorf("failed to insert sample product %q: %w", p.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit sample data: %w", err)
	}

	logger.Info("Inserted sample catalog",
		zap.Int("categories", len(sampleCategories)),
		zap.Int("products", len(sampleProducts)),
	)
	return true, nil
}
