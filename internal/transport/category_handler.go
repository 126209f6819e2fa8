package transport

import (
	"net/http"

	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryHandler serves /api/categories
type CategoryHandler struct {
	categories service.CategoryService
	logger     *zap.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		logger:     logger,
	}
}

// RegisterRoutes registers category routes. Write routes run behind writeMiddleware.
func (h *CategoryHandler) RegisterRoutes(r chi.Router, writeMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{catid}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(writeMiddleware...)
			r.Post("/", h.Create)
			r.Put("/{catid}", h.Update)
			r.Delete("/{catid}", h.Delete)
		})
	})
}

// List handles GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Get handles GET /api/categories/{catid}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "catid")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgCategoryMissing)
		return
	}

	category, err := h.categories.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	category, err := h.categories.Create(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Update handles PUT /api/categories/{catid}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "catid")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgCategoryMissing)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	category, err := h.categories.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Category renamed", zap.Int64("catid", id), zap.String("name", category.Name))
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{catid}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "catid")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgCategoryMissing)
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

func (h *CategoryHandler) decode(w http.ResponseWriter, r *http.Request) (categoryRequest, bool) {
	values, _, err := readForm(w, r, nil, h.logger)
	if err != nil {
		h.fail(w, r, err)
		return categoryRequest{}, false
	}

	req := categoryRequest{Name: trimmed(values, "name")}
	if err := middleware.ValidateRequest(&req); err != nil {
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return categoryRequest{}, false
	}
	return req, true
}

func (h *CategoryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, h.logger, uploadLimits{}, err)
}
