// Package pagination normalizes page requests and shapes paged responses.
package pagination

import "math"

const (
	// DefaultPageSize is used when a request asks for no size.
	DefaultPageSize = 10
	// MaxPageSize caps every request.
	MaxPageSize = 100
)

// Request is a zero based page request.
type Request struct {
	Page int
	Size int
}

// Normalize clamps page and size into their valid ranges.
func (r Request) Normalize() Request {
	if r.Page < 0 {
		r.Page = 0
	}
	switch {
	case r.Size <= 0:
		r.Size = DefaultPageSize
	case r.Size > MaxPageSize:
		r.Size = MaxPageSize
	}
	return r
}

// Offset is the number of rows skipped by the page.
func (r Request) Offset() int {
	n := r.Normalize()
	return n.Page * n.Size
}

// Page is one page of results.
type Page[T any] struct {
	Content       []T  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Last          bool `json:"last"`
}

// NewPage builds the page envelope for content out of total elements.
func NewPage[T any](content []T, req Request, total int) Page[T] {
	req = req.Normalize()
	if content == nil {
		content = []T{}
	}
	totalPages := int(math.Ceil(float64(total) / float64(req.Size)))
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          req.Page >= totalPages-1,
	}
}

// Map converts the content of p with fn, keeping the envelope.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, v := range p.Content {
		out[i] = fn(v)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Last:          p.Last,
	}
}
