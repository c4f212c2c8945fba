package util

import (
	"math"
	"strconv"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate turns a 1-based page into an offset. Pages too far out for the
// offset to fit in an int land on math.MaxInt, which Window treats as empty.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt, size
	}
	return (page - 1) * size, size
}

// Window returns the [from, to) bounds of a page within n items.
func Window(n, from, limit int) (int, int) {
	if from < 0 || from >= n {
		return n, n
	}
	if limit <= 0 {
		return from, from
	}
	if limit >= n-from {
		return from, n
	}
	return from, from + limit
}

// HasNext reports whether items remain after the page at from.
func HasNext(from, limit int, total int64) bool {
	return int64(from) < total-int64(limit)
}

func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
