package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/domain"
	"catalog-api/internal/media"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory repositories sharing one product table
type memCatalog struct {
	categories map[int64]*domain.Category
	products   map[int64]*domain.Product
	nextCatID  int64
	nextPID    int64
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		categories: make(map[int64]*domain.Category),
		products:   make(map[int64]*domain.Product),
		nextCatID:  1,
		nextPID:    1,
	}
}

type memCategoryRepository struct{ *memCatalog }

func (m memCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	category.ID = m.nextCatID
	m.nextCatID++
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m memCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	list := []*domain.Category{}
	for _, c := range m.categories {
		copied := *c
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m memCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m memCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	for _, c := range m.categories {
		if c.Name == category.Name && c.ID != category.ID {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID].Name = category.Name
	return nil
}

func (m memCategoryRepository) Delete(ctx context.Context, id int64) ([]*domain.Product, error) {
	if _, ok := m.categories[id]; !ok {
		return nil, repository.ErrCategoryNotFound
	}
	delete(m.categories, id)

	removed := []*domain.Product{}
	for pid, p := range m.products {
		if p.CategoryID == id {
			removed = append(removed, p)
			delete(m.products, pid)
		}
	}
	return removed, nil
}

type memProductRepository struct{ *memCatalog }

func (m memProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, ok := m.categories[product.CategoryID]; !ok {
		return repository.ErrInvalidCategory
	}
	product.ID = m.nextPID
	product.CreatedAt = time.Now()
	m.nextPID++
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m memProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m memProductRepository) UpdateImages(ctx context.Context, id int64, imageURL, thumbnailURL, blurHash *string) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.ImageURL = imageURL
	p.ThumbnailURL = thumbnailURL
	p.ImageBlurHash = blurHash
	return nil
}

func (m memProductRepository) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	delete(m.products, id)
	return p, nil
}

func (m memProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m memProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
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

type testAPI struct {
	router  chi.Router
	catalog *memCatalog
	media   config.MediaConfig
}

func newTestAPI(t *testing.T) *testAPI {
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

	catalog := newMemCatalog()
	categories := memCategoryRepository{catalog}
	products := memProductRepository{catalog}

	router := chi.NewRouter()
	NewCategoryHandler(service.NewCategoryService(categories, pipeline, zap.NewNop()), zap.NewNop()).RegisterRoutes(router)
	NewProductHandler(service.NewProductService(products, categories, pipeline, zap.NewNop()), pipeline, zap.NewNop()).RegisterRoutes(router)

	return &testAPI{router: router, catalog: catalog, media: cfg}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createCategory(t *testing.T, name string) domain.Category {
	t.Helper()
	rec := a.do(t, jsonRequest(t, http.MethodPost, "/api/categories", map[string]string{"name": name}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var category domain.Category
	decodeBody(t, rec, &category)
	return category
}

func (a *testAPI) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(a.media.TempDir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (a *testAPI) uploadedFiles(t *testing.T, sub string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(a.media.UploadsDir, sub))
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	contentType string
	data        []byte
}

// multipartRequest builds a product form. A nil image sends no file part.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, image *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="photo"`)
		header.Set("Content-Type", image.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(image.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
