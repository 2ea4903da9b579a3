// Package pagination slices querysets into pages and builds the standard
// list envelope. Paginators count and slice through the suspend-capable
// queryset interface, so page math itself stays pure.
package pagination

import (
	"context"
	"strconv"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/storage"
)

// Page is one slice of a queryset plus the navigation metadata the
// envelope needs.
type Page struct {
	Items    []any
	Count    int
	Next     *string
	Previous *string
}

// Paginator slices a queryset according to request parameters.
type Paginator interface {
	Paginate(ctx context.Context, qs storage.Queryset, r *request.Request) (*Page, error)
}

// Envelope wraps rendered results in the standard list body.
func Envelope(page *Page, results any) map[string]any {
	out := map[string]any{
		"count":    page.Count,
		"next":     nil,
		"previous": nil,
		"results":  results,
	}
	if page.Next != nil {
		out["next"] = *page.Next
	}
	if page.Previous != nil {
		out["previous"] = *page.Previous
	}
	return out
}

// PageNumber paginates with page/page_size query parameters.
type PageNumber struct {
	// Size is the default page size.
	Size int

	// SizeParam, when set, lets clients choose a page size up to MaxSize.
	SizeParam string
	MaxSize   int
}

// Paginate implements Paginator. An out-of-range or malformed page number
// is a not-found error, matching detail-route semantics for missing pages.
func (p *PageNumber) Paginate(ctx context.Context, qs storage.Queryset, r *request.Request) (*Page, error) {
	size := p.Size
	if size <= 0 {
		size = 25
	}
	if p.SizeParam != "" {
		if v := r.Query(p.SizeParam); v != "" {
			n, err := strconv.Atoi(v)
			if err == nil && n > 0 {
				size = n
				if p.MaxSize > 0 && size > p.MaxSize {
					size = p.MaxSize
				}
			}
		}
	}

	number := 1
	if v := r.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, restflow.NewNotFoundError("page")
		}
		number = n
	}

	count, err := qs.Count(ctx)
	if err != nil {
		return nil, err
	}
	pages := (count + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number > pages {
		return nil, restflow.NewNotFoundError("page")
	}

	items, err := qs.Slice(ctx, (number-1)*size, size)
	if err != nil {
		return nil, err
	}
	page := &Page{Items: items, Count: count}
	if number < pages {
		page.Next = pageURL(r, "page", strconv.Itoa(number+1))
	}
	if number > 1 {
		prev := ""
		if number > 2 {
			prev = strconv.Itoa(number - 1)
		}
		page.Previous = pageURL(r, "page", prev)
	}
	return page, nil
}

// LimitOffset paginates with limit/offset query parameters.
type LimitOffset struct {
	// Default is the limit applied when the client sends none.
	Default int
	MaxSize int
}

// Paginate implements Paginator.
func (p *LimitOffset) Paginate(ctx context.Context, qs storage.Queryset, r *request.Request) (*Page, error) {
	limit := p.Default
	if limit <= 0 {
		limit = 25
	}
	if v := r.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if p.MaxSize > 0 && limit > p.MaxSize {
		limit = p.MaxSize
	}
	offset := 0
	if v := r.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	count, err := qs.Count(ctx)
	if err != nil {
		return nil, err
	}
	items, err := qs.Slice(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	page := &Page{Items: items, Count: count}
	if offset+limit < count {
		page.Next = pageURL(r, "offset", strconv.Itoa(offset+limit))
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		if prev == 0 {
			page.Previous = pageURL(r, "offset", "")
		} else {
			page.Previous = pageURL(r, "offset", strconv.Itoa(prev))
		}
	}
	return page, nil
}

// pageURL rebuilds the request URL with one query parameter replaced. An
// empty value drops the parameter, so first pages keep clean URLs.
func pageURL(r *request.Request, param, value string) *string {
	u := *r.Raw.URL
	q := u.Query()
	if value == "" {
		q.Del(param)
	} else {
		q.Set(param, value)
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
