package domain

import (
	"time"
)

// Category groups products in the catalog
type Category struct {
	ID   int64  `json:"catid" db:"catid"`
	Name string `json:"name" db:"name"`
}

// Product represents a product in the catalog.
// ImageURL and ThumbnailURL are either both set or both nil.
type Product struct {
	ID            int64     `json:"pid" db:"pid"`
	CategoryID    int64     `json:"catid" db:"catid"`
	Name          string    `json:"name" db:"name"`
	Price         float64   `json:"price" db:"price"`
	Description   string    `json:"description" db:"description"`
	ImageURL      *string   `json:"image_url" db:"image_url"`
	ThumbnailURL  *string   `json:"thumbnail_url" db:"thumbnail_url"`
	ImageBlurHash *string   `json:"image_blurhash" db:"image_blurhash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// HasImage reports whether the product carries a derivative pair
func (p *Product) HasImage() bool {
	return p.ImageURL != nil && p.ThumbnailURL != nil
}

// ImageRefs returns the stored derivative references, skipping nil ones
func (p *Product) ImageRefs() []string {
	var refs []string
	if p.ImageURL != nil {
		refs = append(refs, *p.ImageURL)
	}
	if p.ThumbnailURL != nil {
		refs = append(refs, *p.ThumbnailURL)
	}
	return refs
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	CategoryID *int64
	Query      string
	Page       int
	PageSize   int // zero means no pagination
}

// Admin is an account allowed to mutate the catalog when auth is enabled
type Admin struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
