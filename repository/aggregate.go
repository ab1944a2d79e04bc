package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/projection"
)

// Group is one row of GroupCount.
type Group[K any] struct {
	Key   K
	Count int64
}

// GroupTotal is one row of GroupSum.
type GroupTotal[K any] struct {
	Key K
	Sum decimal.Decimal
}

func (r *Repository[T]) scalar(ctx context.Context, op string, q *managers.Query, shape managers.Shape) (any, error) {
	t, err := r.translate(q, shape)
	if err != nil {
		return nil, err
	}
	return r.conn.scalar(ctx, op, t.SQL)
}

// read runs q in the given shape and maps each row through its reader.
func (r *Repository[T]) read(ctx context.Context, op string, q *managers.Query, shape managers.Shape) ([]any, error) {
	t, err := r.translate(q, shape)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.queryRows(ctx, op, t.SQL)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		if out[i], err = t.Reader.Read(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Count returns the number of rows q matches.
func (r *Repository[T]) Count(ctx context.Context, q *managers.Query) (int64, error) {
	v, err := r.scalar(ctx, "count", q, managers.Count())
	if err != nil {
		return 0, err
	}
	return projection.ToInt64(v)
}

// Sum returns the sum of field over q; zero when nothing matches.
func (r *Repository[T]) Sum(ctx context.Context, q *managers.Query, field expr.Expr) (decimal.Decimal, error) {
	return aggregate[decimal.Decimal](ctx, r, "sum", q, managers.Sum(field))
}

// Avg returns the average of field over q; zero when nothing matches.
func (r *Repository[T]) Avg(ctx context.Context, q *managers.Query, field expr.Expr) (decimal.Decimal, error) {
	return aggregate[decimal.Decimal](ctx, r, "avg", q, managers.Avg(field))
}

// Max returns the greatest value of field over q, converted to R.
func Max[R any, T entity.Entity](ctx context.Context, r *Repository[T], q *managers.Query, field expr.Expr) (R, error) {
	return aggregate[R](ctx, r, "max", q, managers.Max(field))
}

// Min returns the least value of field over q, converted to R.
func Min[R any, T entity.Entity](ctx context.Context, r *Repository[T], q *managers.Query, field expr.Expr) (R, error) {
	return aggregate[R](ctx, r, "min", q, managers.Min(field))
}

func aggregate[R any, T entity.Entity](ctx context.Context, r *Repository[T], op string, q *managers.Query, shape managers.Shape) (R, error) {
	var zero R
	v, err := r.scalar(ctx, op, q, shape)
	if err != nil {
		return zero, err
	}
	out, err := projection.Decode[R](v)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", shape, err)
	}
	return out, nil
}

// Distinct returns the distinct values of field over q in ascending order.
func Distinct[R any, T entity.Entity](ctx context.Context, r *Repository[T], q *managers.Query, field expr.Expr) ([]R, error) {
	vals, err := r.read(ctx, "distinct", q, managers.Distinct(field))
	if err != nil {
		return nil, err
	}
	out := make([]R, len(vals))
	for i, v := range vals {
		if out[i], err = projection.Decode[R](v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GroupCount counts the rows of q per distinct value of field.
func GroupCount[K any, T entity.Entity](ctx context.Context, r *Repository[T], q *managers.Query, field expr.Expr) ([]Group[K], error) {
	vals, err := r.read(ctx, "group_count", q, managers.GroupCount(field))
	if err != nil {
		return nil, err
	}
	out := make([]Group[K], len(vals))
	for i, v := range vals {
		m := v.(map[string]any)
		if out[i].Key, err = projection.Decode[K](m[managers.KeyField]); err != nil {
			return nil, err
		}
		if out[i].Count, err = projection.ToInt64(m[managers.CountField]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GroupSum sums value over the rows of q per distinct value of group.
func GroupSum[K any, T entity.Entity](ctx context.Context, r *Repository[T], q *managers.Query, group, value expr.Expr) ([]GroupTotal[K], error) {
	vals, err := r.read(ctx, "group_sum", q, managers.GroupSum(group, value))
	if err != nil {
		return nil, err
	}
	out := make([]GroupTotal[K], len(vals))
	for i, v := range vals {
		m := v.(map[string]any)
		if out[i].Key, err = projection.Decode[K](m[managers.KeyField]); err != nil {
			return nil, err
		}
		if out[i].Sum, err = projection.Decode[decimal.Decimal](m[managers.SumField]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Reader reads only the given fields of each row q matches, keyed by
// field path with dots replaced by underscores.
func (r *Repository[T]) Reader(ctx context.Context, q *managers.Query, fields ...expr.Expr) ([]map[string]any, error) {
	vals, err := r.read(ctx, "reader", q, managers.Columns(fields...))
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(vals))
	for i, v := range vals {
		out[i] = v.(map[string]any)
	}
	return out, nil
}

// Execute runs q and converts each result to R. A query without Select
// yields entities, so R must then be T; a projected query yields values
// decoded into R by field name.
func Execute[R any, T entity.Entity](ctx context.Context, r *Repository[T], q *managers.Query) ([]R, error) {
	vals, err := r.read(ctx, "execute", q, managers.Payload())
	if err != nil {
		return nil, err
	}
	out := make([]R, len(vals))
	for i, v := range vals {
		if er, ok := v.(projection.EntityRow); ok {
			e, err := entity.Decode(r.mapping, er.Key, er.Payload)
			if err != nil {
				return nil, err
			}
			rv, ok := any(e).(R)
			if !ok {
				return nil, fmt.Errorf("query reads %s entities, not %s", r.mapping.Name, reflect.TypeFor[R]())
			}
			out[i] = rv
			continue
		}
		if out[i], err = projection.Decode[R](v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
