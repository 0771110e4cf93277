package repositories

import (
	"errors"
	"fmt"
	"strings"

	apperr "alumnet/internal/errors"

	"gorm.io/gorm"
)

// notFound maps gorm's missing-row error onto the domain taxonomy.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

// isDuplicate relies on gorm.Config.TranslateError; the message check covers
// dialects that return the raw driver error.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
