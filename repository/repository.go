// Package repository holds the gorm-backed stores the batch jobs and the
// notification API read from and write to.
package repository

import (
	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup or a targeted update matches no row.
var ErrNotFound = errors.New("record not found")

func wrapNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.WithStack(ErrNotFound)
	}
	return errors.Wrapf(err, format, args...)
}
