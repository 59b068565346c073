package crud

import "context"

// Adapter is the required port onto the remote API for one entity family.
// Implementations return the authoritative server representation of the
// entity they acted on.
type Adapter[T any] interface {
	List(ctx context.Context, params any) ([]T, error)
	GetByID(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, data T) (T, error)
	Update(ctx context.Context, id int64, data T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// PageParams selects one page of a paginated listing.
type PageParams struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	// Filter carries entity-specific list filters; it becomes part of the
	// query key, so equal filters must be structurally equal values.
	Filter any `json:"filter,omitempty"`
}

// Page is one page of results plus the cursor bookkeeping needed to advance.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PerPage    int  `json:"perPage"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Next returns the next page number, or false when pagination terminates:
// HasMore wins when the server reports it, otherwise Page < TotalPages.
func (p Page[T]) Next() (int, bool) {
	if p.HasMore {
		return p.Page + 1, true
	}
	if p.TotalPages > 0 && p.Page < p.TotalPages {
		return p.Page + 1, true
	}
	return 0, false
}

// BatchUpdateItem pairs an id with its replacement data.
type BatchUpdateItem[T any] struct {
	ID   int64
	Data T
}

// Optional adapter capabilities. They are resolved once, at resource
// construction, by type assertion; missing capabilities make the dependent
// operations fail with a ConfigError instead of being probed per call.

// PaginatedAdapter supports cursor/offset pagination for infinite lists.
type PaginatedAdapter[T any] interface {
	ListPaginated(ctx context.Context, params PageParams) (Page[T], error)
}

// BatchAdapter supports bulk mutations.
type BatchAdapter[T any] interface {
	BatchCreate(ctx context.Context, items []T) ([]T, error)
	BatchUpdate(ctx context.Context, items []BatchUpdateItem[T]) ([]T, error)
	BatchDelete(ctx context.Context, ids []int64) error
}

// SearchAdapter supports server-side search.
type SearchAdapter[T any] interface {
	Search(ctx context.Context, query string, params any) ([]T, error)
}

// CountAdapter supports server-side counting.
type CountAdapter interface {
	Count(ctx context.Context, params any) (int, error)
}

// RelatedAdapter resolves related collections of an entity.
type RelatedAdapter interface {
	GetRelated(ctx context.Context, id int64, relation string) (any, error)
}

// capabilities is the one-time resolution of the optional adapter surfaces.
type capabilities[T any] struct {
	paginated PaginatedAdapter[T]
	batch     BatchAdapter[T]
	search    SearchAdapter[T]
	count     CountAdapter
	related   RelatedAdapter
}

func resolveCapabilities[T any](adapter Adapter[T]) capabilities[T] {
	var caps capabilities[T]
	if p, ok := adapter.(PaginatedAdapter[T]); ok {
		caps.paginated = p
	}
	if b, ok := adapter.(BatchAdapter[T]); ok {
		caps.batch = b
	}
	if s, ok := adapter.(SearchAdapter[T]); ok {
		caps.search = s
	}
	if c, ok := adapter.(CountAdapter); ok {
		caps.count = c
	}
	if r, ok := adapter.(RelatedAdapter); ok {
		caps.related = r
	}
	return caps
}
