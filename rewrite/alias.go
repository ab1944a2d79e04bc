package rewrite

import (
	"fmt"

	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// AliasValidator checks that every column resolves to an alias visible
// from the select it appears in, and that no alias is declared twice.
// It changes nothing.
type AliasValidator struct {
	plugins.BaseTransformer
}

func (AliasValidator) TransformSelect(sel *nodes.Select, _ nodes.Node) (*nodes.Select, error) {
	if err := validate(sel, map[string]bool{}); err != nil {
		return nil, err
	}
	return sel, nil
}

func validate(s *nodes.Select, declared map[string]bool) error {
	if declared[s.Alias] {
		return fmt.Errorf("alias %s is declared twice", s.Alias)
	}
	declared[s.Alias] = true
	visible := map[string]bool{}
	for _, a := range nodes.Aliases(s.From) {
		visible[a] = true
	}
	for _, ta := range nodes.Tables(s.From) {
		if declared[ta.AliasName] {
			return fmt.Errorf("alias %s is declared twice", ta.AliasName)
		}
		declared[ta.AliasName] = true
	}
	for _, n := range clauses(s) {
		for _, c := range nodes.ColumnsOf(n) {
			if !visible[c.Alias] {
				return fmt.Errorf("%w: %s.%s in %s", ErrUnboundColumn, c.Alias, c.Name, s.Alias)
			}
		}
	}
	for _, child := range plugins.Selects(s) {
		if err := validate(child, declared); err != nil {
			return err
		}
	}
	return nil
}
