package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erymuzuan/motorent-sub003/cache"
	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/projection"
	"github.com/erymuzuan/motorent-sub003/tenant"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

// Repository reads and writes one entity type.
type Repository[T entity.Entity] struct {
	conn    *Conn
	mapping *entity.Mapping[T]
}

// For binds conn to the entity described by m.
func For[T entity.Entity](conn *Conn, m *entity.Mapping[T]) *Repository[T] {
	return &Repository[T]{conn: conn, mapping: m}
}

// Query starts a query over the entity.
func (r *Repository[T]) Query() *managers.Query {
	return managers.From(&r.mapping.Meta)
}

// Page is one page of a paged load. TotalRows is only set when it was
// requested.
type Page[T any] struct {
	Items     []T
	Page      int
	PageSize  int
	TotalRows int64
}

func (r *Repository[T]) table() *nodes.Table {
	return nodes.NewTable(r.mapping.Schema, r.mapping.Name)
}

func (r *Repository[T]) translate(q *managers.Query, shape managers.Shape, opts ...managers.TranslateOption) (*managers.Translation, error) {
	if r.conn.policy != nil {
		opts = append(opts, managers.WithPass(r.conn.policy))
	}
	t, err := managers.Translate(q, shape, r.conn.dialect, opts...)
	if err != nil {
		return nil, err
	}
	if t.Select.HasPlaceholder() {
		return nil, fmt.Errorf("%w: %s", visitors.ErrUnresolvedPlaceholder, q)
	}
	return t, nil
}

// storedRow is an entity as stored: its key and undecoded JSON payload.
// Cached loads keep rows in this form, so entities decode from the same
// JSON they were saved as.
type storedRow struct {
	Key  int64           `json:"key"`
	JSON json.RawMessage `json:"json"`
}

// loadRows runs t, which must read whole entities.
func (r *Repository[T]) loadRows(ctx context.Context, op string, t *managers.Translation) ([]storedRow, error) {
	rows, err := r.conn.queryRows(ctx, op, t.SQL)
	if err != nil {
		return nil, err
	}
	out := make([]storedRow, 0, len(rows))
	for _, row := range rows {
		v, err := t.Reader.Read(row)
		if err != nil {
			return nil, err
		}
		er, ok := v.(projection.EntityRow)
		if !ok {
			return nil, fmt.Errorf("query %s does not read whole %s entities", t.Shape, r.mapping.Name)
		}
		out = append(out, storedRow{Key: er.Key, JSON: er.Payload})
	}
	return out, nil
}

func (r *Repository[T]) decode(rows []storedRow) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		e, err := entity.Decode(r.mapping, row.Key, row.JSON)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository[T]) loadOne(q *managers.Query) (*managers.Translation, error) {
	return r.translate(q, managers.Payload(), managers.WithPaging(1, 1))
}

// LoadOne returns the first entity q matches, or ErrNotFound.
func (r *Repository[T]) LoadOne(ctx context.Context, q *managers.Query) (T, error) {
	var zero T
	t, err := r.loadOne(q)
	if err != nil {
		return zero, err
	}
	rows, err := r.loadRows(ctx, "load_one", t)
	if err != nil {
		return zero, err
	}
	return r.first(rows)
}

func (r *Repository[T]) first(rows []storedRow) (T, error) {
	var zero T
	if len(rows) == 0 {
		return zero, ErrNotFound
	}
	items, err := r.decode(rows[:1])
	if err != nil {
		return zero, err
	}
	return items[0], nil
}

// LoadOneWhere is LoadOne over the entity filtered by predicate.
func (r *Repository[T]) LoadOneWhere(ctx context.Context, predicate expr.Expr) (T, error) {
	return r.LoadOne(ctx, r.Query().Where(predicate))
}

// Get loads the entity with the given surrogate key.
func (r *Repository[T]) Get(ctx context.Context, id int64) (T, error) {
	return r.LoadOneWhere(ctx, expr.Eq(expr.Field(r.mapping.KeyColumn()), id))
}

// Load returns the 1-based page of q. When includeTotal is set the total
// row count is read concurrently with the page.
func (r *Repository[T]) Load(ctx context.Context, q *managers.Query, page, size int, includeTotal bool) (*Page[T], error) {
	rows, total, err := r.loadPage(ctx, q, page, size, includeTotal)
	if err != nil {
		return nil, err
	}
	items, err := r.decode(rows)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Page: page, PageSize: size, TotalRows: total}, nil
}

func (r *Repository[T]) loadPage(ctx context.Context, q *managers.Query, page, size int, includeTotal bool) ([]storedRow, int64, error) {
	t, err := r.translate(q, managers.Payload(), managers.WithPaging(page, size))
	if err != nil {
		return nil, 0, err
	}
	var count *managers.Translation
	if includeTotal {
		if count, err = r.translate(q, managers.Count()); err != nil {
			return nil, 0, err
		}
	}

	var (
		rows  []storedRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = r.loadRows(gctx, "load", t)
		return err
	})
	if count != nil {
		g.Go(func() error {
			v, err := r.conn.scalar(gctx, "count", count.SQL)
			if err != nil {
				return err
			}
			total, err = projection.ToInt64(v)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Insert stores a new entity and returns its surrogate key, which is also
// set on e. A missing WebId is generated and the audit fields are stamped.
func (r *Repository[T]) Insert(ctx context.Context, e T, actor string) (int64, error) {
	if e.EntityWebID() == "" {
		e.SetEntityWebID(r.conn.webID())
	}
	e.StampCreated(actor, r.conn.now())
	payload, err := entity.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", r.mapping.Name, err)
	}

	d := r.conn.dialect
	m := managers.NewInsertManager(r.table()).Set(entity.JSONColumn, string(payload))
	for i, v := range r.mapping.Promoted(e) {
		m.Set(r.mapping.Columns[i].ColumnName(), storeValue(v))
	}
	if d.ReturnsKey() {
		m.Returning(r.mapping.KeyColumn())
	}
	if r.conn.policy != nil {
		m.Use(r.conn.policy)
	}
	query, args, err := m.ToSQL(d.NewFormatter(visitors.WithParams()))
	if err != nil {
		return 0, err
	}

	var id int64
	if d.ReturnsKey() {
		v, err := r.conn.scalar(ctx, "insert", query, args...)
		if err != nil {
			return 0, err
		}
		if id, err = projection.ToInt64(v); err != nil {
			return 0, fmt.Errorf("insert %s: returned key: %w", r.mapping.Name, err)
		}
	} else {
		res, err := r.conn.exec(ctx, "insert", query, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("insert %s: last insert id: %w", r.mapping.Name, err)
		}
	}
	e.SetEntityID(id)
	r.invalidate(ctx)
	return id, nil
}

func (r *Repository[T]) keyColumn() *nodes.Column {
	return &nodes.Column{Name: r.mapping.KeyColumn(), Type: entity.TypeInt}
}

// Update rewrites the payload and promoted columns of e and returns the
// number of rows changed.
func (r *Repository[T]) Update(ctx context.Context, e T, actor string) (int64, error) {
	e.StampChanged(actor, r.conn.now())
	payload, err := entity.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", r.mapping.Name, err)
	}
	m := managers.NewUpdateManager(r.table()).Set(entity.JSONColumn, string(payload))
	for i, v := range r.mapping.Promoted(e) {
		m.Set(r.mapping.Columns[i].ColumnName(), storeValue(v))
	}
	m.Where(r.keyColumn().Eq(e.EntityID()))
	if r.conn.policy != nil {
		m.Use(r.conn.policy)
	}
	query, args, err := m.ToSQL(r.conn.dialect.NewFormatter(visitors.WithParams()))
	if err != nil {
		return 0, err
	}
	return r.affected(ctx, "update", query, args...)
}

// Delete removes e by its key.
func (r *Repository[T]) Delete(ctx context.Context, e T) (int64, error) {
	m := managers.NewDeleteManager(r.table()).Where(r.keyColumn().Eq(e.EntityID()))
	if r.conn.policy != nil {
		m.Use(r.conn.policy)
	}
	query, args, err := m.ToSQL(r.conn.dialect.NewFormatter(visitors.WithParams()))
	if err != nil {
		return 0, err
	}
	return r.affected(ctx, "delete", query, args...)
}

// DeleteQuery removes every row q matches. q may only filter.
func (r *Repository[T]) DeleteQuery(ctx context.Context, q *managers.Query) (int64, error) {
	t, err := r.translate(q, managers.DeleteRows())
	if err != nil {
		return 0, err
	}
	return r.affected(ctx, "delete", t.SQL)
}

// DeleteWhere removes every row matching predicate.
func (r *Repository[T]) DeleteWhere(ctx context.Context, predicate expr.Expr) (int64, error) {
	return r.DeleteQuery(ctx, r.Query().Where(predicate))
}

func (r *Repository[T]) affected(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := r.conn.exec(ctx, op, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s %s: rows affected: %w", op, r.mapping.Name, err)
	}
	r.invalidate(ctx)
	return n, nil
}

func (r *Repository[T]) tags(ctx context.Context) []string {
	return cache.Tags(tenant.From(ctx), r.mapping.Schema, r.mapping.Name)
}

// invalidate drops cached reads of the entity for the tenant on ctx. The
// write has already happened, so a failure is only logged.
func (r *Repository[T]) invalidate(ctx context.Context) {
	if r.conn.cache == nil {
		return
	}
	tag := cache.EntityTag(tenant.From(ctx), r.mapping.Schema, r.mapping.Name)
	if err := r.conn.cache.RemoveByTag(ctx, tag); err != nil {
		r.conn.logger.Error("cache invalidation failed", zap.String("tag", tag), zap.Error(err))
	}
}

// storeValue converts a promoted value to what drivers accept, encoded the
// way the SQL formatter writes literals of the same type.
func storeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(entity.SortableLayout)
	case entity.Date:
		return x.String()
	case entity.DateTimeOffset:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case driver.Valuer:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
		return int64(rv.Uint())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return storeValue(rv.Elem().Interface())
	}
	return v
}
