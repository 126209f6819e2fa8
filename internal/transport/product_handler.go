package transport

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"catalog-api/internal/domain"
	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type productRequest struct {
	CategoryID  int64    `form:"catid" validate:"required,gt=0"`
	Name        string   `form:"name" validate:"required,max=255"`
	Price       *float64 `form:"price" validate:"required,gte=0,lte=99999999.99"`
	Description string   `form:"description" validate:"required"`
}

func (p productRequest) input() service.ProductInput {
	return service.ProductInput{
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Price:       *p.Price,
		Description: p.Description,
	}
}

// ProductHandler serves /api/products
type ProductHandler struct {
	products service.ProductService
	uploads  Uploader
	logger   *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products service.ProductService, uploads Uploader, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		uploads:  uploads,
		logger:   logger,
	}
}

// RegisterRoutes registers product routes. Write routes run behind writeMiddleware.
func (h *ProductHandler) RegisterRoutes(r chi.Router, writeMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{pid}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(writeMiddleware...)
			r.Post("/", h.Create)
			r.Put("/{pid}", h.Update)
			r.Delete("/{pid}", h.Delete)
		})
	})
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseProductFilter(r)
	if problem != "" {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidation, problem)
		return
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{pid}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "pid")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgProductMissing)
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	values, upload, err := readForm(w, r, h.uploads, h.logger)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req, errs := parseProductRequest(values)
	if len(errs) > 0 {
		upload.Discard(h.logger)
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	product, err := h.products.Create(r.Context(), req.input(), upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Product created",
		zap.Int64("pid", product.ID),
		zap.Int64("catid", product.CategoryID),
		zap.Bool("image", product.HasImage()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update handles PUT /api/products/{pid}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "pid")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgProductMissing)
		return
	}

	values, upload, err := readForm(w, r, h.uploads, h.logger)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req, errs := parseProductRequest(values)
	if len(errs) > 0 {
		upload.Discard(h.logger)
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	product, err := h.products.Update(r.Context(), id, req.input(), upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Product updated",
		zap.Int64("pid", product.ID),
		zap.Bool("new_image", upload != nil),
	)
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{pid}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "pid")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgProductMissing)
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *ProductHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var limits uploadLimits
	if h.uploads != nil {
		limits = uploadLimits{maxBytes: h.uploads.MaxBytes(), maxPixels: h.uploads.MaxPixels()}
	}
	respondError(w, r, h.logger, limits, err)
}

// parseProductRequest converts form values and validates them.
// Numbers that do not parse are reported once, without a second "required" error.
func parseProductRequest(values map[string]string) (productRequest, []middleware.ValidationError) {
	var errs []middleware.ValidationError
	bad := map[string]bool{}

	req := productRequest{
		Name:        trimmed(values, "name"),
		Description: trimmed(values, "description"),
	}

	if raw := trimmed(values, "catid"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "catid", Message: msgInvalidCategory})
			bad["catid"] = true
		}
		req.CategoryID = id
	}

	if raw := trimmed(values, "price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			errs = append(errs, middleware.ValidationError{Field: "price", Message: "Value must be a number"})
			bad["price"] = true
		} else {
			req.Price = &price
		}
	}

	if err := middleware.ValidateRequest(&req); err != nil {
		for _, e := range middleware.FormatValidationErrors(err) {
			if !bad[e.Field] {
				errs = append(errs, e)
			}
		}
	}

	return req, errs
}

// parseProductFilter reads catid, q, page and page_size. Without page or page_size
// every matching product is returned.
func parseProductFilter(r *http.Request) (domain.ProductFilter, string) {
	query := r.URL.Query()
	filter := domain.ProductFilter{Query: strings.TrimSpace(query.Get("q"))}

	if raw := strings.TrimSpace(query.Get("catid")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, msgInvalidCategory
		}
		filter.CategoryID = &id
	}

	rawPage := strings.TrimSpace(query.Get("page"))
	rawSize := strings.TrimSpace(query.Get("page_size"))
	if rawPage == "" && rawSize == "" {
		return filter, ""
	}

	filter.Page = 1
	filter.PageSize = defaultPageSize
	if rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page < 1 {
			return filter, "Invalid page"
		}
		filter.Page = page
	}
	if rawSize != "" {
		size, err := strconv.Atoi(rawSize)
		if err != nil || size < 1 {
			return filter, "Invalid page size"
		}
		filter.PageSize = min(size, maxPageSize)
	}

	return filter, ""
}
