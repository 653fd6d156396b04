// Package store is the only code that reads or writes tenant data. Every
// query is scoped to one tenant unless a handler explicitly passes a
// super-admin context, and every cross-entity reference is re-read here
// before it is accepted.
package store

import (
	"errors"

	"taskhub/internal/apperr"

	"gorm.io/gorm"
)

// Page is a normalized pagination request.
type Page struct {
	Number int
	Size   int
}

// NormalizePage clamps raw query values into a usable page.
func NormalizePage(number, size, defaultSize, maxSize int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages returns the page count for a total row count.
func (p Page) TotalPages(total int64) int64 {
	if p.Size == 0 {
		return 0
	}
	return (total + int64(p.Size) - 1) / int64(p.Size)
}

// notFoundOr maps gorm's record-not-found to the taxonomy and wraps
// everything else as internal.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal("storage failure", err)
}
