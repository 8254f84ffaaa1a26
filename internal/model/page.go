package model

// Page is one page of a paginated result.
//
// Number is 1-based, like the ?page= query parameter it comes from.
// TotalPages is never less than 1: an empty list still has one (empty) page.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	TotalItems int
	TotalPages int
}

// NewPage computes the page metadata for a result window.
func NewPage[T any](items []T, number, size, totalItems int) Page[T] {
	return Page[T]{
		Items:      items,
		Number:     number,
		Size:       size,
		TotalItems: totalItems,
		TotalPages: TotalPages(totalItems, size),
	}
}

// TotalPages returns ceil(total/size), with a minimum of 1.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

func (p Page[T]) HasPrev() bool   { return p.Number > 1 }
func (p Page[T]) HasNext() bool   { return p.Number < p.TotalPages }
func (p Page[T]) PrevNumber() int { return p.Number - 1 }
func (p Page[T]) NextNumber() int { return p.Number + 1 }
