// Package paging implements page/limit pagination shared by list endpoints.
package paging

import (
	"fmt"
	"math"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is a 1-based page request.
type Request struct {
	Page  int
	Limit int
}

// Normalize fills defaults and rejects out of range values.
func (r Request) Normalize() (Request, error) {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Page < 1 {
		return r, fmt.Errorf("page must be >= 1")
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return r, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	if r.Page-1 > math.MaxInt32/r.Limit {
		return r, fmt.Errorf("page %d is out of range", r.Page)
	}
	return r, nil
}

// Offset is the number of rows to skip. Pages too far out to address
// report math.MaxInt32, which is past the end of any result.
func (r Request) Offset() int {
	if r.Page < 1 || r.Limit < 1 {
		return 0
	}
	if r.Page-1 > math.MaxInt32/r.Limit {
		return math.MaxInt32
	}
	return (r.Page - 1) * r.Limit
}

// Result is one page of items plus the total count across all pages.
type Result[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Slice pages an in-memory, already ordered collection.
func Slice[T any](items []T, req Request) Result[T] {
	res := Result[T]{Data: []T{}, Total: len(items), Page: req.Page, Limit: req.Limit}
	start := req.Offset()
	if start >= len(items) {
		return res
	}
	end := start + req.Limit
	if end > len(items) {
		end = len(items)
	}
	res.Data = append(res.Data, items[start:end]...)
	return res
}
