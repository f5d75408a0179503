// errors_helper.go: categorized error construction for database operations
package datastore

import (
	"context"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/tphakala/mediscan/internal/errors"
)

// dbError wraps err with datastore context. The category follows the cause:
// duplicates are conflicts, missing rows are not-found, cancellation is
// cancellation. Corruption escalates to critical priority.
func dbError(err error, operation, priority string, context ...any) error {
	category := errors.CategoryDatabase
	switch {
	case errors.Is(err, ErrDuplicate):
		category = errors.CategoryConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserMissing):
		category = errors.CategoryNotFound
	case isCancellation(err):
		category = errors.CategoryCancellation
	}
	if isDatabaseCorruption(err) {
		priority = errors.PriorityCritical
	}

	builder := errors.New(err).
		Component("datastore").
		Category(category).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundOr maps gorm.ErrRecordNotFound to ErrNotFound and wraps anything
// else as a database error.
func notFoundOr(err error, operation string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dbError(ErrNotFound, operation, errors.PriorityLow)
	}
	return dbError(err, operation, errors.PriorityMedium)
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey detects unique constraint violations across drivers.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate entry")
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isDatabaseCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "file is not a database")
}

// errorType is the metrics label for a failed operation.
func errorType(err error) string {
	switch {
	case isCancellation(err):
		return "cancelled"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrUserMissing):
		return "user_missing"
	case strings.Contains(strings.ToLower(err.Error()), "locked"):
		return "locked"
	default:
		return "other"
	}
}
