package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/projection"
)

// ErrNoCache is returned by the cached reads of a Conn without a cache.
var ErrNoCache = errors.New("repository: no cache configured")

type cachedPage struct {
	Rows  []storedRow `json:"rows"`
	Total int64       `json:"total,omitempty"`
}

func (r *Repository[T]) cacheKey(kind, query string) string {
	return kind + ":" + r.mapping.Schema + "." + r.mapping.Name + ":" + query
}

func (r *Repository[T]) cached(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (cachedPage, error)) (cachedPage, error) {
	var c cachedPage
	raw, err := r.conn.cache.GetOrCreate(ctx, key, ttl, r.tags(ctx), func(ctx context.Context) ([]byte, error) {
		page, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(page)
	})
	if err != nil {
		return c, err
	}
	err = json.Unmarshal(raw, &c)
	return c, err
}

// LoadOneCached is LoadOne through the tenant cache.
func (r *Repository[T]) LoadOneCached(ctx context.Context, q *managers.Query, ttl time.Duration) (T, error) {
	var zero T
	if r.conn.cache == nil {
		return zero, ErrNoCache
	}
	t, err := r.loadOne(q)
	if err != nil {
		return zero, err
	}
	c, err := r.cached(ctx, r.cacheKey("one", t.SQL), ttl, func(ctx context.Context) (cachedPage, error) {
		rows, err := r.loadRows(ctx, "load_one", t)
		return cachedPage{Rows: rows}, err
	})
	if err != nil {
		return zero, err
	}
	return r.first(c.Rows)
}

// LoadCached is Load through the tenant cache. A page and its total are
// cached together.
func (r *Repository[T]) LoadCached(ctx context.Context, q *managers.Query, page, size int, includeTotal bool, ttl time.Duration) (*Page[T], error) {
	if r.conn.cache == nil {
		return nil, ErrNoCache
	}
	t, err := r.translate(q, managers.Payload(), managers.WithPaging(page, size))
	if err != nil {
		return nil, err
	}
	kind := "page"
	if includeTotal {
		kind = "page+total"
	}
	c, err := r.cached(ctx, r.cacheKey(kind, t.SQL), ttl, func(ctx context.Context) (cachedPage, error) {
		rows, total, err := r.loadPage(ctx, q, page, size, includeTotal)
		return cachedPage{Rows: rows, Total: total}, err
	})
	if err != nil {
		return nil, err
	}
	items, err := r.decode(c.Rows)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Page: page, PageSize: size, TotalRows: c.Total}, nil
}

// CountCached is Count through the tenant cache.
func (r *Repository[T]) CountCached(ctx context.Context, q *managers.Query, ttl time.Duration) (int64, error) {
	if r.conn.cache == nil {
		return 0, ErrNoCache
	}
	t, err := r.translate(q, managers.Count())
	if err != nil {
		return 0, err
	}
	raw, err := r.conn.cache.GetOrCreate(ctx, r.cacheKey("count", t.SQL), ttl, r.tags(ctx), func(ctx context.Context) ([]byte, error) {
		v, err := r.conn.scalar(ctx, "count", t.SQL)
		if err != nil {
			return nil, err
		}
		n, err := projection.ToInt64(v)
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, n, 10), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}
