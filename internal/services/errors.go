package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")
	ErrConflict     = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrFetchFailed  = errors.New("failed to fetch content metadata")
	ErrInvalidInput = errors.New("invalid input")
)

// ListForbiddenError is returned when a viewer may not see a private list. It
// carries the stub a client needs to render a "request access" state.
type ListForbiddenError struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

func (e *ListForbiddenError) Error() string {
	return fmt.Sprintf("list %d is private", e.ID)
}

func (e *ListForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// isUniqueViolation reports whether err came from a unique constraint.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// translate maps store errors onto the service taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return err
}
