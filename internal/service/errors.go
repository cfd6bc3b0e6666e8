package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrUnauthorized            = errors.New("not authorized to access this resource")
	ErrUnauthenticated         = errors.New("not authenticated")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidInput            = errors.New("invalid input")
	ErrConflict                = errors.New("conflict")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// storeError maps persistence errors onto the service taxonomy, keeping the
// original error in the chain.
func storeError(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s: %v", ErrConflict, msg, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
