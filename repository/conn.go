// Package repository executes compiled queries against a database that
// stores each entity as one JSON document per row.
//
// A Conn owns the database handle, the dialect, the retry policy and the
// optional tenant cache. A Repository binds a Conn to one entity mapping
// and exposes loads, aggregates and keyed writes for it.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erymuzuan/motorent-sub003/cache"
	"github.com/erymuzuan/motorent-sub003/internal/retry"
	"github.com/erymuzuan/motorent-sub003/plugins"
	"github.com/erymuzuan/motorent-sub003/visitors"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Querier is the part of *sql.DB the engine uses. *sql.Tx and *sql.Conn
// satisfy it too.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Conn is safe for concurrent use.
type Conn struct {
	db      Querier
	closer  func() error
	dialect visitors.Dialect
	logger  *zap.Logger
	retry   retry.Policy
	cache   *cache.Cache
	metrics *Metrics
	policy  plugins.Transformer
	now     func() time.Time
	webID   func() string
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) { c.logger = l }
}

// WithRetry replaces the retry policy. A nil Transient predicate is
// replaced by IsTransient.
func WithRetry(p retry.Policy) Option {
	return func(c *Conn) { c.retry = p }
}

// WithCache enables the cached read operations and write invalidation.
func WithCache(ch *cache.Cache) Option {
	return func(c *Conn) { c.cache = ch }
}

// WithMetrics records executions in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Conn) { c.metrics = m }
}

// WithPolicy runs t over every statement the Conn translates or builds,
// after soft-delete filtering. See the plugins/policy package.
func WithPolicy(t plugins.Transformer) Option {
	return func(c *Conn) { c.policy = t }
}

// WithClock sets the time source used for audit stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Conn) { c.now = now }
}

// WithWebID sets the generator of external identifiers for new entities.
func WithWebID(fn func() string) Option {
	return func(c *Conn) { c.webID = fn }
}

// New wraps an open database handle.
func New(db Querier, d visitors.Dialect, opts ...Option) *Conn {
	c := &Conn{
		db:      db,
		closer:  func() error { return nil },
		dialect: d,
		logger:  zap.NewNop(),
		retry:   retry.Default(IsTransient),
		now:     func() time.Time { return time.Now().UTC() },
		webID:   uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.Transient == nil {
		c.retry.Transient = IsTransient
	}
	return c
}

// Open opens and pings a database with the driver registered for d.
func Open(ctx context.Context, d visitors.Dialect, dsn string, opts ...Option) (*Conn, error) {
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	c := New(db, d, opts...)
	c.closer = db.Close
	return c, nil
}

// Dialect returns the dialect queries are translated to.
func (c *Conn) Dialect() visitors.Dialect { return c.dialect }

// Close closes a database opened by Open. It does nothing for a handle
// passed to New.
func (c *Conn) Close() error { return c.closer() }
