// Package softdelete provides a Transformer that filters out soft-deleted
// rows. Every select that reads a configured table gets
// "[table].[column] = false" ANDed into its WHERE clause.
//
// # Basic usage
//
//	sd := softdelete.New(softdelete.WithTableColumn("Core.Widget", "IsDeleted"))
//	// SELECT [WidgetId],[Json] FROM [Core].[Widget] WHERE ([IsDeleted] = 0)
//
// # Default column
//
// WithColumn sets the column used for tables listed by WithTables that
// have no per-table override.
//
//	sd := softdelete.New(softdelete.WithColumn("Removed"), softdelete.WithTables("Core.Widget"))
//
// Tables are named schema-qualified, as nodes.Table.String returns them.
// The managers package configures the transformer from entity.Meta, so
// callers rarely build one by hand.
package softdelete

import (
	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
)

// SoftDelete is a Transformer that appends a "not deleted" condition for
// every matching table source.
type SoftDelete struct {
	plugins.BaseTransformer
	Column  string
	Columns map[string]string // per-table column overrides (table name → column name)
	tables  map[string]bool   // nil means apply to all tables
}

// Option configures a SoftDelete transformer.
type Option func(*SoftDelete)

// WithColumn sets the soft-delete column name. Default is "IsDeleted".
func WithColumn(name string) Option {
	return func(sd *SoftDelete) { sd.Column = name }
}

// WithTables restricts the plugin to only the named tables.
// By default, the plugin applies to every table in the query.
func WithTables(names ...string) Option {
	return func(sd *SoftDelete) {
		if sd.tables == nil {
			sd.tables = make(map[string]bool, len(names))
		}
		for _, n := range names {
			sd.tables[n] = true
		}
	}
}

// WithTableColumn sets a per-table column override. The table is
// automatically added to the whitelist, restricting the plugin's scope.
func WithTableColumn(table, column string) Option {
	return func(sd *SoftDelete) {
		if sd.Columns == nil {
			sd.Columns = make(map[string]string)
		}
		sd.Columns[table] = column
		if sd.tables == nil {
			sd.tables = make(map[string]bool)
		}
		sd.tables[table] = true
	}
}

// New creates a SoftDelete transformer with the given options.
func New(opts ...Option) *SoftDelete {
	sd := &SoftDelete{Column: "IsDeleted"}
	for _, o := range opts {
		o(sd)
	}
	return sd
}

// FromColumns builds a transformer from a table → column map. An empty map
// yields a transformer that changes nothing.
func FromColumns(columns map[string]string) *SoftDelete {
	sd := New()
	sd.tables = map[string]bool{}
	for table, col := range columns {
		WithTableColumn(table, col)(sd)
	}
	return sd
}

// TransformSelect filters each matching table read by sel or any select
// nested in it.
func (sd *SoftDelete) TransformSelect(sel *nodes.Select, _ nodes.Node) (*nodes.Select, error) {
	return plugins.MapSelects(sel, func(s *nodes.Select) (*nodes.Select, error) {
		refs := plugins.CollectTables(s)
		var where nodes.Node = s.Where
		for _, ref := range refs {
			if !sd.appliesTo(ref.Name) {
				continue
			}
			col := &nodes.Column{Alias: ref.Relation.AliasName, Name: sd.columnFor(ref.Name), Type: entity.TypeBool}
			where = nodes.AndWhere(where, col.Eq(false))
		}
		if where == s.Where {
			return s, nil
		}
		out := s.Clone()
		out.Where = where
		return out, nil
	})
}

func (sd *SoftDelete) appliesTo(tableName string) bool {
	if sd.tables == nil {
		return true
	}
	return sd.tables[tableName]
}

// columnFor returns the column name to use for the given table.
// It checks Columns for a per-table override, falling back to Column.
func (sd *SoftDelete) columnFor(tableName string) string {
	if sd.Columns != nil {
		if col, ok := sd.Columns[tableName]; ok {
			return col
		}
	}
	return sd.Column
}
