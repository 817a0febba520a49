package http

import "context"

// PageFetcher fetches one page of items, reporting whether more pages exist.
type PageFetcher[T any] func(ctx context.Context, page int) (items []T, hasMore bool, err error)

// PageIterator walks a paginated endpoint lazily, one page at a time.
type PageIterator[T any] struct {
	fetch   PageFetcher[T]
	page    int
	buffer  []T
	done    bool
	err     error
	fetched int
}

// NewPageIterator creates an iterator over fetch, starting at page 0.
func NewPageIterator[T any](fetch PageFetcher[T]) *PageIterator[T] {
	return &PageIterator[T]{fetch: fetch}
}

// Next returns the next item. The second return is false once iteration is
// exhausted. After an error, Next keeps returning that error.
func (p *PageIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if p.err != nil {
		return zero, false, p.err
	}

	if len(p.buffer) == 0 && !p.done {
		items, hasMore, err := p.fetch(ctx, p.page)
		if err != nil {
			p.err = err
			return zero, false, err
		}
		p.buffer = items
		p.done = !hasMore
		p.page++
	}

	if len(p.buffer) == 0 {
		return zero, false, nil
	}

	item := p.buffer[0]
	p.buffer = p.buffer[1:]
	p.fetched++
	return item, true, nil
}

// All drains the iterator into a slice.
func (p *PageIterator[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, item)
	}
}

// ForEach calls fn for each remaining item, stopping at the first error.
func (p *PageIterator[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// Err returns the error that stopped iteration, if any.
func (p *PageIterator[T]) Err() error {
	return p.err
}

// Fetched returns how many items have been yielded so far.
func (p *PageIterator[T]) Fetched() int {
	return p.fetched
}

// Reset rewinds the iterator to the first page, discarding buffered items.
func (p *PageIterator[T]) Reset() {
	p.page = 0
	p.buffer = nil
	p.done = false
	p.err = nil
	p.fetched = 0
}
