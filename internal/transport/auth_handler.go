package transport

import (
	"errors"
	"net/http"
	"time"

	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthHandler issues admin access tokens
type AuthHandler struct {
	auth        service.AuthService
	tokenExpiry time.Duration
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth service.AuthService, tokenExpiry time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		tokenExpiry: tokenExpiry,
		logger:      logger,
	}
}

// RegisterRoutes registers the login route, which is subject to the same
// middleware as other write routes except authentication.
func (h *AuthHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.With(middlewares...).Post("/api/auth/login", h.Login)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if errs := middleware.FormatValidationErrors(err); len(errs) > 0 {
			middleware.RespondWithValidationErrors(w, errs)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidation, "invalid request body")
		return
	}

	token, admin, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Warn("Failed admin login", zap.String("username", req.Username))
			middleware.RespondWithError(w, http.StatusUnauthorized, middleware.CodeUnauthorized, "Invalid username or password")
			return
		}
		respondError(w, r, h.logger, uploadLimits{}, err)
		return
	}

	h.logger.Info("Admin logged in", zap.Int64("admin_id", admin.ID))
	middleware.RespondWithJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenExpiry.Seconds()),
	})
}
