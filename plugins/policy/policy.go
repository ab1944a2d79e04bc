// Package policy provides a Transformer that enforces row-level access
// rules by injecting policy-derived WHERE conditions.
//
// You supply a [Func] that is called once per table a statement touches,
// in every nested select. The conditions it returns are ANDed into the
// WHERE clause of the select (or UPDATE / DELETE) that reads the table.
// Returning an error rejects the statement before it reaches the database.
//
// # Basic usage
//
//	scoped := policy.New(policy.Scope(map[string]string{"Core.Widget": "TenantId"}, "acme"))
//	conn := repository.New(db, visitors.SQLServer, repository.WithPolicy(scoped))
//	// SELECT [WidgetId],[Json] FROM [Core].[Widget] WHERE ([TenantId] = 'acme')
//
// # Combining rules
//
//	policy.New(policy.Chain(policy.Deny("Core.Audit"), policy.Scope(columns, tenantID)))
//
// Policies compose with soft-delete filtering, which always runs first.
package policy

import (
	"errors"
	"fmt"

	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// ErrDenied is wrapped by every rejection from Deny and Scope.
var ErrDenied = errors.New("access denied")

// Func evaluates a policy for one table source and returns conditions to
// inject. The conditions should reference ref.Relation's columns.
type Func func(ref plugins.TableRef) ([]nodes.Node, error)

// Policy is a Transformer that evaluates a Func against every table
// source of a statement.
type Policy struct {
	plugins.BaseTransformer
	eval Func
}

// New creates a Policy transformer.
func New(fn Func) *Policy {
	return &Policy{eval: fn}
}

func (p *Policy) conditions(ref plugins.TableRef) ([]nodes.Node, error) {
	conds, err := p.eval(ref)
	if err != nil {
		return nil, fmt.Errorf("policy on %s: %w", ref.Name, err)
	}
	return conds, nil
}

// TransformSelect filters every table read by sel or a select nested in it.
func (p *Policy) TransformSelect(sel *nodes.Select, _ nodes.Node) (*nodes.Select, error) {
	return plugins.MapSelects(sel, func(s *nodes.Select) (*nodes.Select, error) {
		where := s.Where
		for _, ref := range plugins.CollectTables(s) {
			conds, err := p.conditions(ref)
			if err != nil {
				return nil, err
			}
			for _, c := range conds {
				where = nodes.AndWhere(where, c)
			}
		}
		if where == s.Where {
			return s, nil
		}
		out := s.Clone()
		out.Where = where
		return out, nil
	})
}

// TransformInsert only checks that the table may be written; conditions
// have nowhere to go in an INSERT.
func (p *Policy) TransformInsert(stmt *nodes.InsertStatement) (*nodes.InsertStatement, error) {
	if _, err := p.conditions(statementRef(stmt.Into)); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Policy) TransformUpdate(stmt *nodes.UpdateStatement) (*nodes.UpdateStatement, error) {
	conds, err := p.conditions(statementRef(stmt.Table))
	if err != nil {
		return nil, err
	}
	if len(conds) == 0 {
		return stmt, nil
	}
	out := *stmt
	for _, c := range conds {
		out.Where = nodes.AndWhere(out.Where, c)
	}
	return &out, nil
}

func (p *Policy) TransformDelete(stmt *nodes.DeleteStatement) (*nodes.DeleteStatement, error) {
	conds, err := p.conditions(statementRef(stmt.From))
	if err != nil {
		return nil, err
	}
	if len(conds) == 0 {
		return stmt, nil
	}
	out := *stmt
	for _, c := range conds {
		out.Where = nodes.AndWhere(out.Where, c)
	}
	return &out, nil
}

// statementRef describes the target of a DML statement. Its columns are
// never qualified, so the alias is empty.
func statementRef(t *nodes.Table) plugins.TableRef {
	return plugins.TableRef{Relation: t.Alias(""), Name: t.String()}
}

// Scope restricts each table in columns (schema-qualified name to column
// name) to rows whose column equals value. A scoped table is denied
// outright when value is nil or empty.
func Scope(columns map[string]string, value any) Func {
	return func(ref plugins.TableRef) ([]nodes.Node, error) {
		col, ok := columns[ref.Name]
		if !ok {
			return nil, nil
		}
		if value == nil || value == "" {
			return nil, fmt.Errorf("%w: %s is scoped by %s and no scope value is set", ErrDenied, ref.Name, col)
		}
		return []nodes.Node{ref.Relation.Col(col).Eq(value)}, nil
	}
}

// Deny rejects every statement that touches one of tables.
func Deny(tables ...string) Func {
	denied := make(map[string]bool, len(tables))
	for _, t := range tables {
		denied[t] = true
	}
	return func(ref plugins.TableRef) ([]nodes.Node, error) {
		if denied[ref.Name] {
			return nil, ErrDenied
		}
		return nil, nil
	}
}

// Chain evaluates fns in order and concatenates their conditions. The
// first error wins.
func Chain(fns ...Func) Func {
	return func(ref plugins.TableRef) ([]nodes.Node, error) {
		var out []nodes.Node
		for _, fn := range fns {
			conds, err := fn(ref)
			if err != nil {
				return nil, err
			}
			out = append(out, conds...)
		}
		return out, nil
	}
}
