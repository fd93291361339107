// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to tell a
// missing record apart from a lost compare-and-swap race or a uniqueness
// violation, and translate each into the matching domain error.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrRestaurantNotFound is returned when no restaurant matches the
// requested id or admin.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrVersionConflict is returned by UpdateIfVersion when the stored
// version no longer matches the one the caller read.  The caller should
// re-read and retry.
var ErrVersionConflict = errors.New("version conflict")

// ErrAdminHasRestaurant is returned when creating a second restaurant for
// an admin that already owns one.
var ErrAdminHasRestaurant = errors.New("admin already has a restaurant")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// isDuplicateKey reports whether err is a unique constraint violation on
// either supported driver.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
