// Package apiclient implements the crud adapter ports over a REST API using
// resty. One Rest adapter serves one resource family; routes follow the usual
// collection conventions (GET /tickets, POST /tickets, GET /tickets/42, ...).
//
// Response bodies may arrive either as a bare payload or wrapped in a
// {"data": ...} envelope; both are tolerated.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"resty.dev/v3"

	"github.com/goliatone/go-entity-cache/crud"
)

// Rest is a resty-backed adapter for one resource.
type Rest[T any] struct {
	client   *resty.Client
	resource string
}

// NewRest builds an adapter for the named resource on an existing client.
// The client carries the base URL, auth, and timeouts; the adapter only adds
// routes.
func NewRest[T any](client *resty.Client, resource string) (*Rest[T], error) {
	if client == nil {
		return nil, fmt.Errorf("apiclient: client cannot be nil")
	}
	if resource == "" {
		return nil, fmt.Errorf("apiclient: resource cannot be empty")
	}
	return &Rest[T]{client: client, resource: resource}, nil
}

// List fetches the collection, optionally filtered by params.
func (r *Rest[T]) List(ctx context.Context, params any) ([]T, error) {
	req := r.client.R().SetContext(ctx)
	applyQueryParams(req, params)
	resp, err := req.Get("/" + r.resource)
	if err != nil {
		return nil, fmt.Errorf("apiclient: list %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return nil, r.statusError("list", resp)
	}
	return decodePayload[[]T](resp.Bytes())
}

// GetByID fetches a single entity.
func (r *Rest[T]) GetByID(ctx context.Context, id int64) (T, error) {
	var zero T
	resp, err := r.client.R().SetContext(ctx).Get(fmt.Sprintf("/%s/%d", r.resource, id))
	if err != nil {
		return zero, fmt.Errorf("apiclient: get %s/%d: %w", r.resource, id, err)
	}
	if resp.IsError() {
		return zero, r.statusError("get", resp)
	}
	return decodePayload[T](resp.Bytes())
}

// Create persists a new entity and returns the server representation.
func (r *Rest[T]) Create(ctx context.Context, data T) (T, error) {
	var zero T
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Post("/" + r.resource)
	if err != nil {
		return zero, fmt.Errorf("apiclient: create %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return zero, r.statusError("create", resp)
	}
	return decodePayload[T](resp.Bytes())
}

// Update replaces an entity and returns the server representation.
func (r *Rest[T]) Update(ctx context.Context, id int64, data T) (T, error) {
	var zero T
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Put(fmt.Sprintf("/%s/%d", r.resource, id))
	if err != nil {
		return zero, fmt.Errorf("apiclient: update %s/%d: %w", r.resource, id, err)
	}
	if resp.IsError() {
		return zero, r.statusError("update", resp)
	}
	return decodePayload[T](resp.Bytes())
}

// Delete removes an entity.
func (r *Rest[T]) Delete(ctx context.Context, id int64) error {
	resp, err := r.client.R().SetContext(ctx).Delete(fmt.Sprintf("/%s/%d", r.resource, id))
	if err != nil {
		return fmt.Errorf("apiclient: delete %s/%d: %w", r.resource, id, err)
	}
	if resp.IsError() {
		return r.statusError("delete", resp)
	}
	return nil
}

// ListPaginated fetches one page of the collection.
func (r *Rest[T]) ListPaginated(ctx context.Context, params crud.PageParams) (crud.Page[T], error) {
	var zero crud.Page[T]
	req := r.client.R().
		SetContext(ctx).
		SetQueryParam("page", fmt.Sprintf("%d", params.Page)).
		SetQueryParam("perPage", fmt.Sprintf("%d", params.PerPage))
	applyQueryParams(req, params.Filter)
	resp, err := req.Get("/" + r.resource)
	if err != nil {
		return zero, fmt.Errorf("apiclient: page %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return zero, r.statusError("page", resp)
	}
	return decodePayload[crud.Page[T]](resp.Bytes())
}

// BatchCreate persists several entities in one round trip.
func (r *Rest[T]) BatchCreate(ctx context.Context, items []T) ([]T, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"items": items}).
		Post(fmt.Sprintf("/%s/batch", r.resource))
	if err != nil {
		return nil, fmt.Errorf("apiclient: batch create %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return nil, r.statusError("batch create", resp)
	}
	return decodePayload[[]T](resp.Bytes())
}

// BatchUpdate applies several updates in one round trip.
func (r *Rest[T]) BatchUpdate(ctx context.Context, items []crud.BatchUpdateItem[T]) ([]T, error) {
	payload := make([]map[string]any, len(items))
	for i, item := range items {
		payload[i] = map[string]any{"id": item.ID, "data": item.Data}
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"items": payload}).
		Put(fmt.Sprintf("/%s/batch", r.resource))
	if err != nil {
		return nil, fmt.Errorf("apiclient: batch update %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return nil, r.statusError("batch update", resp)
	}
	return decodePayload[[]T](resp.Bytes())
}

// BatchDelete removes several entities in one round trip.
func (r *Rest[T]) BatchDelete(ctx context.Context, ids []int64) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"ids": ids}).
		Post(fmt.Sprintf("/%s/batch/delete", r.resource))
	if err != nil {
		return fmt.Errorf("apiclient: batch delete %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return r.statusError("batch delete", resp)
	}
	return nil
}

// Search runs a server-side search.
func (r *Rest[T]) Search(ctx context.Context, query string, params any) ([]T, error) {
	req := r.client.R().SetContext(ctx).SetQueryParam("q", query)
	applyQueryParams(req, params)
	resp, err := req.Get(fmt.Sprintf("/%s/search", r.resource))
	if err != nil {
		return nil, fmt.Errorf("apiclient: search %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return nil, r.statusError("search", resp)
	}
	return decodePayload[[]T](resp.Bytes())
}

// Count returns the collection size for the given params.
func (r *Rest[T]) Count(ctx context.Context, params any) (int, error) {
	req := r.client.R().SetContext(ctx)
	applyQueryParams(req, params)
	resp, err := req.Get(fmt.Sprintf("/%s/count", r.resource))
	if err != nil {
		return 0, fmt.Errorf("apiclient: count %s: %w", r.resource, err)
	}
	if resp.IsError() {
		return 0, r.statusError("count", resp)
	}
	return decodeCount(resp.Bytes())
}

// GetRelated resolves a related collection of one entity.
func (r *Rest[T]) GetRelated(ctx context.Context, id int64, relation string) (any, error) {
	resp, err := r.client.R().SetContext(ctx).Get(fmt.Sprintf("/%s/%d/%s", r.resource, id, relation))
	if err != nil {
		return nil, fmt.Errorf("apiclient: related %s/%d/%s: %w", r.resource, id, relation, err)
	}
	if resp.IsError() {
		return nil, r.statusError("related", resp)
	}
	return decodePayload[any](resp.Bytes())
}

func (r *Rest[T]) statusError(op string, resp *resty.Response) error {
	return fmt.Errorf("apiclient: %s %s: unexpected status %s", op, r.resource, resp.Status())
}

// envelope is the optional {"data": ...} wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodePayload accepts either a bare payload or an envelope around it.
func decodePayload[V any](body []byte) (V, error) {
	var out V
	if len(body) == 0 {
		return out, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return out, fmt.Errorf("apiclient: decode envelope payload: %w", err)
		}
		return out, nil
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("apiclient: decode payload: %w", err)
	}
	return out, nil
}

// decodeCount accepts {"count": n}, {"data": n}, or a bare number.
func decodeCount(body []byte) (int, error) {
	var counted struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(body, &counted); err == nil && counted.Count != nil {
		return *counted.Count, nil
	}
	return decodePayload[int](body)
}

// applyQueryParams maps the supported params shapes onto the request query
// string: nil, map[string]string, map[string]any, url.Values, or any
// JSON-marshalable struct (flattened one level).
func applyQueryParams(req *resty.Request, params any) {
	switch p := params.(type) {
	case nil:
	case map[string]string:
		req.SetQueryParams(p)
	case url.Values:
		for key, values := range p {
			for _, value := range values {
				req.SetQueryParam(key, value)
			}
		}
	case map[string]any:
		for key, value := range p {
			req.SetQueryParam(key, fmt.Sprintf("%v", value))
		}
	default:
		raw, err := json.Marshal(params)
		if err != nil {
			return
		}
		var flat map[string]any
		if err := json.Unmarshal(raw, &flat); err != nil {
			return
		}
		for key, value := range flat {
			req.SetQueryParam(key, fmt.Sprintf("%v", value))
		}
	}
}
