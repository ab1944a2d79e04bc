// Package jsonq compiles composed queries over JSON document tables into
// SQL and runs them through a repository.
//
// This package re-exports the entry points most callers need. The
// subpackages hold the rest:
//   - github.com/erymuzuan/motorent-sub003/managers (queries and translation)
//   - github.com/erymuzuan/motorent-sub003/expr (query expressions)
//   - github.com/erymuzuan/motorent-sub003/visitors (SQL generation)
//   - github.com/erymuzuan/motorent-sub003/repository (execution)
package jsonq

import (
	"context"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/repository"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

// Query is an immutable chain of query operators over one entity.
type Query = managers.Query

// Translation is a query compiled for one shape and dialect.
type Translation = managers.Translation

// Dialect selects the SQL flavour.
type Dialect = visitors.Dialect

const (
	SQLServer = visitors.SQLServer
	Postgres  = visitors.Postgres
	MySQL     = visitors.MySQL
	SQLite    = visitors.SQLite
)

// Meta describes how an entity type is stored.
type Meta = entity.Meta

// Mapping binds a Go entity type to its Meta.
type Mapping[T entity.Entity] = entity.Mapping[T]

// Conn is a database handle shared by repositories.
type Conn = repository.Conn

// Repository runs queries for one entity type.
type Repository[T entity.Entity] = repository.Repository[T]

// From starts a query over the entity described by meta.
func From(meta *Meta) *Query { return managers.From(meta) }

// Translate compiles q to SQL reading whole entities.
func Translate(q *Query, d Dialect) (*Translation, error) {
	return managers.Translate(q, managers.Payload(), d)
}

// Open connects to dsn with the driver d needs.
func Open(ctx context.Context, d Dialect, dsn string, opts ...repository.Option) (*Conn, error) {
	return repository.Open(ctx, d, dsn, opts...)
}

// For binds a repository for m to conn.
func For[T entity.Entity](conn *Conn, m *Mapping[T]) *Repository[T] {
	return repository.For(conn, m)
}
