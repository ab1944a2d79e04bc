// Package plugins defines the Transformer interface for AST middleware.
package plugins

import (
	"fmt"

	"github.com/erymuzuan/motorent-sub003/nodes"
)

// Transformer is the interface that AST transformation plugins implement.
// Plugins embed BaseTransformer and override only the methods they need.
//
// TransformSelect receives the outermost select of a bound query together
// with the projector that reads its rows. Nested selects are the plugin's
// to visit. A transformer returns a new tree; it must not modify sel.
type Transformer interface {
	TransformSelect(sel *nodes.Select, projector nodes.Node) (*nodes.Select, error)
	TransformInsert(stmt *nodes.InsertStatement) (*nodes.InsertStatement, error)
	TransformUpdate(stmt *nodes.UpdateStatement) (*nodes.UpdateStatement, error)
	TransformDelete(stmt *nodes.DeleteStatement) (*nodes.DeleteStatement, error)
}

// BaseTransformer provides no-op defaults for all Transformer methods.
// Plugins embed this and override only the methods they care about.
type BaseTransformer struct{}

func (BaseTransformer) TransformSelect(s *nodes.Select, _ nodes.Node) (*nodes.Select, error) {
	return s, nil
}
func (BaseTransformer) TransformInsert(s *nodes.InsertStatement) (*nodes.InsertStatement, error) {
	return s, nil
}
func (BaseTransformer) TransformUpdate(s *nodes.UpdateStatement) (*nodes.UpdateStatement, error) {
	return s, nil
}
func (BaseTransformer) TransformDelete(s *nodes.DeleteStatement) (*nodes.DeleteStatement, error) {
	return s, nil
}

// TransformSelect runs sel through each transformer in order.
func TransformSelect(ts []Transformer, sel *nodes.Select, projector nodes.Node) (*nodes.Select, error) {
	for _, t := range ts {
		out, err := t.TransformSelect(sel, projector)
		if err != nil {
			return nil, fmt.Errorf("%T: %w", t, err)
		}
		sel = out
	}
	return sel, nil
}

// MapSelects rebuilds every select reachable through FROM clauses,
// innermost first. fn receives a select whose sources have already been
// rebuilt.
func MapSelects(sel *nodes.Select, fn func(*nodes.Select) (*nodes.Select, error)) (*nodes.Select, error) {
	from, err := mapSource(sel.From, fn)
	if err != nil {
		return nil, err
	}
	if from != sel.From {
		sel = sel.Clone()
		sel.From = from
	}
	return fn(sel)
}

func mapSource(n nodes.Node, fn func(*nodes.Select) (*nodes.Select, error)) (nodes.Node, error) {
	switch r := n.(type) {
	case *nodes.Select:
		return MapSelects(r, fn)
	case *nodes.Join:
		l, err := mapSource(r.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := mapSource(r.Right, fn)
		if err != nil {
			return nil, err
		}
		if l == r.Left && right == r.Right {
			return r, nil
		}
		return &nodes.Join{Kind: r.Kind, Left: l, Right: right, On: r.On}, nil
	}
	return n, nil
}
