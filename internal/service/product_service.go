package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-api/internal/domain"
	"catalog-api/internal/media"
	"catalog-api/internal/repository"

	"go.uber.org/zap"
)

// MediaStore derives and removes product images
type MediaStore interface {
	Derive(ctx context.Context, productID int64, upload *media.Upload) (media.Derivatives, error)
	Delete(refs ...string)
}

// ProductInput carries the editable fields of a product
type ProductInput struct {
	CategoryID  int64
	Name        string
	Price       float64
	Description string
}

// ProductService defines the interface for product business logic
type ProductService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, input ProductInput, upload *media.Upload) (*domain.Product, error)
	Update(ctx context.Context, id int64, input ProductInput, upload *media.Upload) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	media        MediaStore
	logger       *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	media MediaStore,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		media:        media,
		logger:       logger,
	}
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// Create inserts the product and then derives its image, if any.
// When the image fails the product is kept without one and an *ImageError is returned.
func (s *productService) Create(ctx context.Context, input ProductInput, upload *media.Upload) (*domain.Product, error) {
	defer upload.Discard(s.logger)

	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &domain.Product{
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	if upload == nil {
		return product, nil
	}

	derived, err := s.media.Derive(ctx, product.ID, upload)
	if err != nil {
		s.logger.Error("Product image processing failed",
			zap.Int64("pid", product.ID),
			zap.Error(err),
		)
		return product, &ImageError{Product: product, Err: err}
	}

	err = s.productRepo.UpdateImages(ctx, product.ID, &derived.ImageURL, &derived.ThumbnailURL, &derived.BlurHash)
	if err != nil {
		s.media.Delete(derived.ImageURL, derived.ThumbnailURL)
		s.logger.Error("Failed to attach product image",
			zap.Int64("pid", product.ID),
			zap.Error(err),
		)
		return product, &ImageError{Product: product, Err: err}
	}

	product.ImageURL = &derived.ImageURL
	product.ThumbnailURL = &derived.ThumbnailURL
	product.ImageBlurHash = &derived.BlurHash
	return product, nil
}

// Update replaces the product fields, and the image when an upload is given.
// New derivatives are written before the row changes; old ones are removed after.
func (s *productService) Update(ctx context.Context, id int64, input ProductInput, upload *media.Upload) (*domain.Product, error) {
	defer upload.Discard(s.logger)

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	updated := *existing
	updated.CategoryID = input.CategoryID
	updated.Name = strings.TrimSpace(input.Name)
	updated.Price = input.Price
	updated.Description = strings.TrimSpace(input.Description)

	if upload != nil {
		derived, err := s.media.Derive(ctx, id, upload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrImageProcessing, err)
		}
		updated.ImageURL = &derived.ImageURL
		updated.ThumbnailURL = &derived.ThumbnailURL
		updated.ImageBlurHash = &derived.BlurHash
	}

	if err := s.productRepo.Update(ctx, &updated); err != nil {
		if upload != nil {
			s.media.Delete(staleRefs(updated.ImageRefs(), existing.ImageRefs())...)
		}
		return nil, err
	}

	if upload != nil {
		if stale := staleRefs(existing.ImageRefs(), updated.ImageRefs()); len(stale) > 0 {
			s.media.Delete(stale...)
		}
	}

	return &updated, nil
}

// Delete removes the product row, then its stored images
func (s *productService) Delete(ctx context.Context, id int64) error {
	product, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.media.Delete(product.ImageRefs()...)

	s.logger.Info("Product deleted", zap.Int64("pid", id))
	return nil
}

func (s *productService) checkCategory(ctx context.Context, id int64) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return repository.ErrInvalidCategory
		}
		return fmt.Errorf("failed to verify category: %w", err)
	}
	return nil
}

// staleRefs returns the refs in from that are absent in keep
func staleRefs(from, keep []string) []string {
	var stale []string
	for _, ref := range from {
		found := false
		for _, k := range keep {
			if ref == k {
				found = true
				break
			}
		}
		if !found {
			stale = append(stale, ref)
		}
	}
	return stale
}
