package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category name already exists")
	ErrProductNotFound       = errors.New("product not found")
	ErrInvalidCategory       = errors.New("invalid category ID")
	ErrAdminNotFound         = errors.New("admin not found")
	ErrAdminAlreadyExists    = errors.New("admin with this username already exists")
)

// PostgreSQL SQLSTATE codes the repositories translate
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
