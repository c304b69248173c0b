package importer

import (
	"context"
	"iter"
)

// Page is one page of results from a cursor-paginated source.
type Page[T any] struct {
	Items []T

	// Cursor requests the next page when HasMore is true.
	Cursor string

	HasMore bool

	// Total is the source's count of matching items across all pages,
	// or negative when the source does not report one.
	Total int
}

// FetchFunc fetches a single page. An empty cursor requests the first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Paginate walks every page of a cursor-paginated endpoint and yields its
// items one at a time. A fetch error is yielded once, then the sequence
// ends. The sequence is single-pass and advances the cursor internally.
func Paginate[T any](ctx context.Context, fetch FetchFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var cursor string

		for {
			page, err := fetch(ctx, cursor)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			if !page.HasMore {
				return
			}
			cursor = page.Cursor
		}
	}
}

// Collect gathers up to max items from a paginated endpoint into a slice.
// A max of zero or less collects everything.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], max int) ([]T, error) {
	var items []T

	for item, err := range Paginate(ctx, fetch) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if max > 0 && len(items) >= max {
			break
		}
	}

	return items, nil
}
