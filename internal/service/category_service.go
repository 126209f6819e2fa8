package service

import (
	"context"
	"fmt"
	"strings"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"go.uber.org/zap"
)

// CategoryService defines the interface for category business logic
type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Get(ctx context.Context, id int64) (*domain.Category, error)
	Create(ctx context.Context, name string) (*domain.Category, error)
	Rename(ctx context.Context, id int64, name string) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	media        MediaStore
	logger       *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categoryRepo repository.CategoryRepository, media MediaStore, logger *zap.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		media:        media,
		logger:       logger,
	}
}

func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

// Create adds a category. Duplicate names fail with repository.ErrCategoryAlreadyExists.
func (s *categoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	category := &domain.Category{Name: strings.TrimSpace(name)}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created",
		zap.Int64("catid", category.ID),
		zap.String("name", category.Name),
	)
	return category, nil
}

func (s *categoryService) Rename(ctx context.Context, id int64, name string) (*domain.Category, error) {
	category := &domain.Category{ID: id, Name: strings.TrimSpace(name)}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes the category with its products, then their stored images
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	removed, err := s.categoryRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	for _, product := range removed {
		s.media.Delete(product.ImageRefs()...)
	}

	s.logger.Info("Category deleted",
		zap.Int64("catid", id),
		zap.Int("products_removed", len(removed)),
	)
	return nil
}
