// Package pagination is the shared paginate-and-sort capability used by
// every list endpoint. Handlers parse Params from the query string, repos
// apply them as gorm scopes.
package pagination

import (
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Page  int
	Limit int
}

// FromQuery builds normalized Params from raw query-string values.
func FromQuery(pageStr, limitStr string) Params {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = DefaultPage
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

func (p Params) Normalize() Params {
	return FromQuery(strconv.Itoa(p.Page), strconv.Itoa(p.Limit))
}

func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Scope applies offset/limit to a gorm query.
func Scope(p Params) func(*gorm.DB) *gorm.DB {
	n := p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(n.Offset()).Limit(n.Limit)
	}
}

// SortScope orders by a whitelisted column. Callers pass column names from
// their own code, never from user input.
func SortScope(column string, desc bool) func(*gorm.DB) *gorm.DB {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column + " " + dir)
	}
}

// Slice paginates an in-memory list, for result sets that are reduced in
// application code after the store query (e.g. the subscription feed).
func Slice[T any](items []T, p Params) []T {
	n := p.Normalize()
	start := n.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + n.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
