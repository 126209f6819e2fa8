package service

import (
	"errors"
	"fmt"

	"catalog-api/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrImageProcessing    = errors.New("error processing image")
)

// ImageError reports a product that was saved but whose image could not be stored.
// The product keeps no image references.
type ImageError struct {
	Product *domain.Product
	Err     error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("product %d saved without image: %v", e.Product.ID, e.Err)
}

func (e *ImageError) Unwrap() []error {
	return []error{ErrImageProcessing, e.Err}
}
