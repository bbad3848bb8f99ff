// Package repository persists the domain models with gorm on MySQL.
//
// Uniqueness that the booking rules depend on (one holder per slot, one
// active bed booking per patient, one review per appointment) is enforced by
// unique indexes, and status changes are conditional updates on the expected
// current status, so concurrent requests cannot both win.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale is returned when a conditional update finds the row no longer
	// in the expected state.
	ErrStale = errors.New("record changed concurrently")
)

const mysqlDuplicateEntry = 1062

// translate maps driver and gorm errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return err
}
