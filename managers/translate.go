package managers

import (
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
	"github.com/erymuzuan/motorent-sub003/plugins/softdelete"
	"github.com/erymuzuan/motorent-sub003/projection"
	"github.com/erymuzuan/motorent-sub003/rewrite"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

// Translation is a query compiled for one shape and dialect.
type Translation struct {
	SQL       string
	Shape     Shape
	Select    *nodes.Select // the rewritten select, before paging
	Statement nodes.Node    // what SQL was formatted from
	Projector nodes.Node
	// Reader is nil for scalar shapes and for DeleteRows.
	Reader *projection.Reader
}

type translateConfig struct {
	page, size int
	passes     []plugins.Transformer
	format     []visitors.Option
}

// TranslateOption configures Translate.
type TranslateOption func(*translateConfig)

// WithPaging limits the result to the 1-based page of the given size. A
// query without an ordering is ordered by its key, or by its first column
// when it is projected.
func WithPaging(page, size int) TranslateOption {
	return func(c *translateConfig) { c.page, c.size = page, size }
}

// WithPass adds a transformer that runs after soft-delete filtering and
// before the standard rewrite passes.
func WithPass(t plugins.Transformer) TranslateOption {
	return func(c *translateConfig) { c.passes = append(c.passes, t) }
}

// WithFormat passes options to the SQL formatter.
func WithFormat(opts ...visitors.Option) TranslateOption {
	return func(c *translateConfig) { c.format = append(c.format, opts...) }
}

// Translate compiles q into SQL for dialect d. Every failure is a
// *TranslationError and happens before anything is sent to a database.
func Translate(q *Query, shape Shape, d visitors.Dialect, opts ...TranslateOption) (*Translation, error) {
	var cfg translateConfig
	for _, o := range opts {
		o(&cfg)
	}
	paged := cfg.page != 0 || cfg.size != 0

	b := newBinder()
	s, err := b.bind(q)
	if err != nil {
		return nil, err
	}
	if s, err = b.resolve(s, shape); err != nil {
		return nil, &TranslationError{Construct: shape.String(), Err: err}
	}

	passes := []plugins.Transformer{softdelete.FromColumns(b.softDeletes)}
	passes = append(passes, cfg.passes...)
	passes = append(passes, rewrite.Default()...)
	sel, err := plugins.TransformSelect(passes, s.sel, s.projector)
	if err != nil {
		return nil, &TranslationError{Construct: q.String(), Err: err}
	}

	if paged && len(sel.OrderBy) == 0 {
		if shape.Kind == ShapeDelete || s.projector == nil {
			return nil, &TranslationError{Construct: shape.String(), Err: visitors.ErrUnorderedPaging}
		}
		sel = orderByDefault(sel, s.projector)
	}

	t := &Translation{Shape: shape, Select: sel, Statement: sel, Projector: s.projector}
	if shape.Kind == ShapeDelete {
		table := nodes.Tables(sel.From)[0]
		t.Statement = &nodes.DeleteStatement{From: table.Relation, Where: sel.Where}
	}

	var sql string
	if paged {
		sql, _, err = d.FormatPage(sel, cfg.page, cfg.size, cfg.format...)
	} else {
		sql, _, err = d.Format(t.Statement, cfg.format...)
	}
	if err != nil {
		return nil, &TranslationError{Construct: q.String(), Err: err}
	}
	t.SQL = sql

	if s.projector != nil {
		if t.Reader, err = projection.Build(sel, s.projector); err != nil {
			return nil, &TranslationError{Construct: q.String(), Err: err}
		}
	}
	return t, nil
}

// orderByDefault orders sel by the key an entity projector reads, or by
// its first declaration.
func orderByDefault(sel *nodes.Select, projector nodes.Node) *nodes.Select {
	out := sel.Clone()
	key := sel.Columns[0].Expr
	if ep, ok := projector.(*nodes.EntityProjector); ok {
		for _, d := range sel.Columns {
			if c, ok := d.Expr.(*nodes.Column); ok && nodes.SameColumn(c, ep.Key) {
				key = c
			}
		}
	}
	out.OrderBy = []*nodes.Ordering{{Expr: key}}
	return out
}

// GetQueryText returns the SQL Server text of q reading whole entities.
func GetQueryText(q *Query) (string, error) {
	t, err := Translate(q, Payload(), visitors.SQLServer)
	if err != nil {
		return "", err
	}
	return t.SQL, nil
}
