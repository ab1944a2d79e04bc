// Package entity defines how application types are stored: one JSON
// document per row, a surrogate key column named <Entity>Id, and a set of
// promoted scalar columns declared explicitly in a Meta column table.
package entity

import (
	"errors"
	"fmt"
	"time"
)

// JSONColumn is the name of the payload column in every entity table.
const JSONColumn = "Json"

// Entity is implemented by every stored type. The surrogate key is never
// part of the JSON payload; it is injected after loading.
type Entity interface {
	EntityID() int64
	SetEntityID(id int64)
	EntityWebID() string
	SetEntityWebID(id string)
	StampCreated(actor string, at time.Time)
	StampChanged(actor string, at time.Time)
}

// Base carries the key and audit fields. Embed it to satisfy Entity.
type Base struct {
	ID          int64     `json:"-"`
	WebId       string    `json:"WebId,omitempty"`
	CreatedBy   string    `json:"CreatedBy,omitempty"`
	CreatedDate time.Time `json:"CreatedDate"`
	ChangedBy   string    `json:"ChangedBy,omitempty"`
	ChangedDate time.Time `json:"ChangedDate"`
}

func (b *Base) EntityID() int64          { return b.ID }
func (b *Base) SetEntityID(id int64)     { b.ID = id }
func (b *Base) EntityWebID() string      { return b.WebId }
func (b *Base) SetEntityWebID(id string) { b.WebId = id }

// StampCreated sets both created and changed audit fields.
func (b *Base) StampCreated(actor string, at time.Time) {
	b.CreatedBy, b.CreatedDate = actor, at
	b.StampChanged(actor, at)
}

// StampChanged sets the changed audit fields.
func (b *Base) StampChanged(actor string, at time.Time) {
	b.ChangedBy, b.ChangedDate = actor, at
}

// DataType is the declared type of a promoted column.
type DataType int

const (
	TypeString DataType = iota
	TypeInt
	TypeDecimal
	TypeBool
	TypeDateTime
	TypeDate
	TypeDateTimeOffset
	TypeEnum
)

var dataTypeNames = [...]string{
	TypeString:         "string",
	TypeInt:            "int",
	TypeDecimal:        "decimal",
	TypeBool:           "bool",
	TypeDateTime:       "datetime",
	TypeDate:           "date",
	TypeDateTimeOffset: "datetimeoffset",
	TypeEnum:           "enum",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if name == s {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("entity: unknown data type %q", s)
}

// Column maps an entity field path to a promoted column.
type Column struct {
	Field string   // member path on the entity, e.g. "Address.City"
	Name  string   // column name; defaults to Field
	Type  DataType // declared type
}

// ColumnName returns Name, falling back to Field.
func (c Column) ColumnName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Field
}

// Meta describes how one entity type is stored.
type Meta struct {
	Schema     string
	Name       string
	Columns    []Column
	SoftDelete string // optional boolean column marking deleted rows
}

// KeyColumn returns the surrogate key column name.
func (m *Meta) KeyColumn() string { return m.Name + "Id" }

// Lookup resolves a member path to its column. The key column resolves
// under its own name.
func (m *Meta) Lookup(field string) (Column, bool) {
	if field == m.KeyColumn() {
		return Column{Field: field, Name: field, Type: TypeInt}, true
	}
	for _, c := range m.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks the column table for empty and duplicate names.
func (m *Meta) Validate() error {
	if m.Schema == "" || m.Name == "" {
		return errors.New("entity: schema and name are required")
	}
	seen := map[string]bool{m.KeyColumn(): true, JSONColumn: true}
	for _, c := range m.Columns {
		if c.Field == "" {
			return fmt.Errorf("entity: %s has a column without a field", m.Name)
		}
		name := c.ColumnName()
		if seen[name] {
			return fmt.Errorf("entity: %s declares column %s twice", m.Name, name)
		}
		seen[name] = true
	}
	return nil
}

// Mapping binds a Meta to a concrete Go type.
type Mapping[T Entity] struct {
	Meta
	// New returns an empty value to decode a payload into.
	New func() T
	// Values returns promoted column values keyed by field path.
	Values func(T) map[string]any
}

// Promoted returns promoted column values in Columns order.
func (m *Mapping[T]) Promoted(e T) []any {
	out := make([]any, len(m.Columns))
	if m.Values == nil {
		return out
	}
	vals := m.Values(e)
	for i, c := range m.Columns {
		out[i] = vals[c.Field]
	}
	return out
}
