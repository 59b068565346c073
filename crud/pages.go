package crud

import (
	"context"
	"fmt"
)

// ListPage fetches one page of a paginated listing, read through the cache.
// Requires the pagination capability; without it the call fails immediately
// with a ConfigError, it never degrades to the unpaginated list.
func (r *Resource[T]) ListPage(ctx context.Context, params PageParams) (Page[T], error) {
	var zero Page[T]
	if r.caps.paginated == nil {
		return zero, &ConfigError{
			Entity:  string(r.entity),
			Message: fmt.Sprintf("infinite queries not supported for %s", r.entity),
		}
	}
	if params.Page <= 0 {
		params.Page = 1
	}

	raw, err := r.store.Fetch(ctx, r.keys.Infinite(params), r.staleTime, func(ctx context.Context) (any, error) {
		return r.caps.paginated.ListPaginated(ctx, params)
	})
	if err != nil {
		return zero, err
	}
	page, ok := raw.(Page[T])
	if !ok {
		return zero, fmt.Errorf("%s page %d: unexpected cached type %T", r.entity, params.Page, raw)
	}
	return page, nil
}

// EachPage walks the paginated listing from params.Page forward, invoking fn
// for every page until fn returns false or the cursor terminates. The cursor
// advances per Page.Next: page+1 while the server reports more data.
func (r *Resource[T]) EachPage(ctx context.Context, params PageParams, fn func(Page[T]) bool) error {
	for {
		page, err := r.ListPage(ctx, params)
		if err != nil {
			return err
		}
		if !fn(page) {
			return nil
		}
		next, ok := page.Next()
		if !ok {
			return nil
		}
		params.Page = next
	}
}
