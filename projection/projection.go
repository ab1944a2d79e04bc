// Package projection compiles the projector of a bound query into a Reader
// that turns result rows into values. Column ordinals are resolved once,
// when the Reader is built; reading a row does no lookups.
package projection

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/erymuzuan/motorent-sub003/nodes"
)

// ErrUnresolvedColumn is returned when a projector reads a column the
// select does not declare.
var ErrUnresolvedColumn = errors.New("projector column is not in the select list")

// Row is one result row with ordinal access.
type Row interface {
	Value(i int) any
	Len() int
}

// Values is a Row backed by a slice.
type Values []any

func (v Values) Value(i int) any { return v[i] }
func (v Values) Len() int        { return len(v) }

// EntityRow is what an entity projector reads: the surrogate key and the
// undecoded JSON payload.
type EntityRow struct {
	Key     int64
	Payload []byte
}

// Reader maps rows of one select to values.
type Reader struct {
	columns []string
	read    func(Row) (any, error)
}

// Columns returns the select list the reader expects, in order.
func (r *Reader) Columns() []string { return r.columns }

// Read maps one row. The row must have one value per column.
func (r *Reader) Read(row Row) (any, error) {
	if row.Len() != len(r.columns) {
		return nil, fmt.Errorf("row has %d values, want %d", row.Len(), len(r.columns))
	}
	return r.read(row)
}

// Build compiles projector against the select list of sel. A nil projector
// reads every column into a []any.
func Build(sel *nodes.Select, projector nodes.Node) (*Reader, error) {
	r := &Reader{columns: sel.DeclNames()}
	if projector == nil {
		r.read = func(row Row) (any, error) {
			out := make([]any, row.Len())
			for i := range out {
				out[i] = row.Value(i)
			}
			return out, nil
		}
		return r, nil
	}
	read, err := compile(sel, projector)
	if err != nil {
		return nil, err
	}
	r.read = read
	return r, nil
}

func compile(sel *nodes.Select, n nodes.Node) (func(Row) (any, error), error) {
	switch p := n.(type) {
	case *nodes.Column:
		i, err := ordinal(sel, p)
		if err != nil {
			return nil, err
		}
		return func(row Row) (any, error) { return row.Value(i), nil }, nil
	case *nodes.Constant:
		v := p.Value
		return func(Row) (any, error) { return v, nil }, nil
	case *nodes.Object:
		names := make([]string, len(p.Fields))
		reads := make([]func(Row) (any, error), len(p.Fields))
		for i, f := range p.Fields {
			read, err := compile(sel, f.Value)
			if err != nil {
				return nil, err
			}
			names[i], reads[i] = f.Name, read
		}
		return func(row Row) (any, error) {
			out := make(map[string]any, len(names))
			for i, read := range reads {
				v, err := read(row)
				if err != nil {
					return nil, err
				}
				out[names[i]] = v
			}
			return out, nil
		}, nil
	case *nodes.EntityProjector:
		key, err := ordinal(sel, p.Key)
		if err != nil {
			return nil, err
		}
		payload, err := ordinal(sel, p.Payload)
		if err != nil {
			return nil, err
		}
		return func(row Row) (any, error) {
			id, err := ToInt64(row.Value(key))
			if err != nil {
				return nil, fmt.Errorf("key column: %w", err)
			}
			data, err := toBytes(row.Value(payload))
			if err != nil {
				return nil, fmt.Errorf("payload column: %w", err)
			}
			return EntityRow{Key: id, Payload: data}, nil
		}, nil
	}
	return nil, fmt.Errorf("projector %T cannot read rows", n)
}

// ordinal finds the declaration c reads, either by the select's own alias
// and declared name or by the source column the declaration exposes.
func ordinal(sel *nodes.Select, c *nodes.Column) (int, error) {
	for i, d := range sel.Columns {
		if c.Alias == sel.Alias && c.Name == d.Name {
			return i, nil
		}
		if dc, ok := d.Expr.(*nodes.Column); ok && nodes.SameColumn(c, dc) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s.%s", ErrUnresolvedColumn, c.Alias, c.Name)
}

// ToInt64 converts the integer forms drivers hand back.
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to an integer", v)
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case nil:
		return nil, errors.New("payload is NULL")
	}
	return nil, fmt.Errorf("cannot read %T as a payload", v)
}
