package client

const PageSize = 5

// Pager reveals a fixed list a page at a time. Its functions return new
// values and never mutate the receiver.
type Pager[T any] struct {
	Items        []T
	VisibleCount int
	PageSize     int
}

// Load starts a pager over items with nothing visible yet.
func Load[T any](items []T) Pager[T] {
	return Pager[T]{Items: items, PageSize: PageSize}
}

// NextPage returns the advanced pager and the items it just revealed.
func NextPage[T any](p Pager[T]) (Pager[T], []T) {
	size := p.PageSize
	if size <= 0 {
		size = PageSize
	}
	start := min(p.VisibleCount, len(p.Items))
	end := min(start+size, len(p.Items))

	page := p.Items[start:end]
	p.VisibleCount = end
	return p, page
}

func HasMore[T any](p Pager[T]) bool {
	return p.VisibleCount < len(p.Items)
}

// Visible is everything revealed so far.
func Visible[T any](p Pager[T]) []T {
	return p.Items[:min(p.VisibleCount, len(p.Items))]
}
