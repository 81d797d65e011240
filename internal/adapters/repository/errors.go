package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/competemcgill/techgames/internal/domain/model"
)

// ErrUnsupportedDriver is returned by Open for unknown database drivers.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// isUniqueViolation reports whether err comes from a unique index. Drivers
// with an error translator return gorm.ErrDuplicatedKey; the string checks
// cover the ones without.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// classify maps a storage error onto a domain kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return model.WrapKind(op, model.ErrDuplicateAccount, err)
	}
	return model.WrapKind(op, model.ErrDirectory, err)
}
