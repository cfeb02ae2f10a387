package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict marks a transaction aborted by lock contention. It also
	// matches ErrStoreUnavailable; the whole transaction may be retried.
	ErrConflict         = errors.New("transaction conflict")
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// IsDuplicateKey reports whether err is a unique-constraint violation.
// gorm translates driver errors when TranslateError is on; the raw MySQL
// and SQLite forms are matched as well for handles opened without it.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsConflict reports whether err is a deadlock or lock wait timeout.
func IsConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	return false
}

// wrap classifies a gorm error into one of the package sentinels.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case IsDuplicateKey(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicateKey)
	case IsConflict(err):
		return fmt.Errorf("%s: %w: %w: %w", op, ErrConflict, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}
