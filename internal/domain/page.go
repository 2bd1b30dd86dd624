package domain

import "math"

// Limites de paginação aplicados na borda HTTP.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1_000_000
	// MaxOffset limita o deslocamento para não estourar int nem o OFFSET do banco.
	MaxOffset = math.MaxInt32
)

// PageRequest pede uma página (Page começa em 0).
type PageRequest struct {
	Page int
	Size int
}

// Offset devolve o deslocamento para a consulta paginada, saturado em MaxOffset.
func (r PageRequest) Offset() int {
	n := r.normalized()
	if n.Page > MaxOffset/n.Size {
		return MaxOffset
	}
	return n.Page * n.Size
}

// Limit devolve o tamanho efetivo da página.
func (r PageRequest) Limit() int {
	return r.normalized().Size
}

func (r PageRequest) normalized() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

// Page é o resultado de uma consulta paginada.
type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	TotalItems int
	TotalPages int
}

// NewPage calcula os metadados da página.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	req = req.normalized()
	totalPages := 0
	if total > 0 {
		totalPages = (total + req.Size - 1) / req.Size
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: req.Page, Size: req.Size, TotalItems: total, TotalPages: totalPages}
}
