package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/domain"
	"catalog-api/internal/media"
	"catalog-api/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockCategoryRepository struct {
	categories map[int64]*domain.Category
	products   *mockProductRepository
	nextID     int64
}

func newMockCategoryRepository(products *mockProductRepository) *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[int64]*domain.Category),
		products:   products,
		nextID:     1,
	}
}

func (m *mockCategoryRepository) nameTaken(name string, except int64) bool {
	for _, c := range m.categories {
		if c.Name == name && c.ID != except {
			return true
		}
	}
	return false
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if m.nameTaken(category.Name, 0) {
		return repository.ErrCategoryAlreadyExists
	}
	category.ID = m.nextID
	m.nextID++
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	list := []*domain.Category{}
	for _, c := range m.categories {
		copied := *c
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	if m.nameTaken(category.Name, category.ID) {
		return repository.ErrCategoryAlreadyExists
	}
	m.categories[category.ID].Name = category.Name
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) ([]*domain.Product, error) {
	if _, ok := m.categories[id]; !ok {
		return nil, repository.ErrCategoryNotFound
	}
	delete(m.categories, id)

	removed := []*domain.Product{}
	for pid, p := range m.products.products {
		if p.CategoryID == id {
			removed = append(removed, p)
			delete(m.products.products, pid)
		}
	}
	return removed, nil
}

type mockProductRepository struct {
	products        map[int64]*domain.Product
	nextID          int64
	updateErr       error
	updateImagesErr error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[int64]*domain.Product),
		nextID:   1,
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = m.nextID
	product.CreatedAt = time.Now()
	m.nextID++
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) UpdateImages(ctx context.Context, id int64, imageURL, thumbnailURL, blurHash *string) error {
	if m.updateImagesErr != nil {
		return m.updateImagesErr
	}
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.ImageURL = imageURL
	p.ThumbnailURL = thumbnailURL
	p.ImageBlurHash = blurHash
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	delete(m.products, id)
	return p, nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	list := []*domain.Product{}
	for _, p := range m.products {
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		copied := *p
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

type mockAdminRepository struct {
	admins map[string]*domain.Admin
	nextID int64
}

func newMockAdminRepository() *mockAdminRepository {
	return &mockAdminRepository{admins: make(map[string]*domain.Admin), nextID: 1}
}

func (m *mockAdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	if _, exists := m.admins[admin.Username]; exists {
		return repository.ErrAdminAlreadyExists
	}
	admin.ID = m.nextID
	admin.CreatedAt = time.Now()
	m.nextID++
	m.admins[admin.Username] = admin
	return nil
}

func (m *mockAdminRepository) FindByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	admin, exists := m.admins[username]
	if !exists {
		return nil, repository.ErrAdminNotFound
	}
	return admin, nil
}

func (m *mockAdminRepository) FindByID(ctx context.Context, id int64) (*domain.Admin, error) {
	for _, admin := range m.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, repository.ErrAdminNotFound
}

var errStore = errors.New("store unavailable")

type catalogFixture struct {
	products   *mockProductRepository
	categories *mockCategoryRepository
	pipeline   *media.Pipeline
	cfg        config.MediaConfig
	productSvc ProductService
	catSvc     CategoryService
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.MediaConfig{
		UploadsDir: filepath.Join(root, "uploads"),
		TempDir:    filepath.Join(root, "tmp"),
		MaxBytes:   10 * 1024 * 1024,
		FullMax:    1024,
		ThumbMax:   300,
	}
	pipeline, err := media.NewPipeline(cfg, zap.NewNop())
	require.NoError(t, err)

	products := newMockProductRepository()
	categories := newMockCategoryRepository(products)

	return &catalogFixture{
		products:   products,
		categories: categories,
		pipeline:   pipeline,
		cfg:        cfg,
		productSvc: NewProductService(products, categories, pipeline, zap.NewNop()),
		catSvc:     NewCategoryService(categories, pipeline, zap.NewNop()),
	}
}
