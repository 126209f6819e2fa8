package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"catalog-api/internal/media"
	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	msgInvalidCategory = "Invalid category ID"
	msgDuplicateName   = "Category name already exists"
	msgCategoryMissing = "Category not found"
	msgProductMissing  = "Product not found"
	msgInvalidType     = "Invalid file type. Only JPEG, PNG, WebP, and GIF are allowed."
	msgImageTooLarge   = "Image dimensions too large. Maximum is %d megapixels."
	msgInternal        = "Internal server error"
)

// respondError maps service and repository errors onto status codes and error bodies
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, limits uploadLimits, err error) {
	var imageErr *service.ImageError

	switch {
	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgCategoryMissing)
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, middleware.CodeNotFound, msgProductMissing)
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeDuplicateName, msgDuplicateName)
	case errors.Is(err, repository.ErrInvalidCategory):
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidCategory, msgInvalidCategory)
	case errors.Is(err, media.ErrFileTooLarge):
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeMediaRejected, fileTooLargeMessage(limits.maxBytes))
	case errors.Is(err, media.ErrImageTooLarge):
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeMediaRejected,
			fmt.Sprintf(msgImageTooLarge, limits.maxPixels/1_000_000))
	case errors.Is(err, media.ErrUnsupportedType):
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeMediaRejected, msgInvalidType)
	case errors.Is(err, errMalformedForm):
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidation, "invalid request body")
	case errors.As(err, &imageErr):
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeMediaError,
			fmt.Sprintf("Error processing image: product %d was saved without an image", imageErr.Product.ID))
	case errors.Is(err, service.ErrImageProcessing):
		logger.Error("Image processing failed", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeMediaError,
			"Error processing image: the image could not be decoded or stored")
	default:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternal, msgInternal)
	}
}

// uploadLimits feed the media rejection messages
type uploadLimits struct {
	maxBytes  int64
	maxPixels int64
}

func fileTooLargeMessage(maxUpload int64) string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", maxUpload>>20)
}

// pathID reads a positive integer URL parameter. Anything else names no row.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
