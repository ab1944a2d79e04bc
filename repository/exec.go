package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/erymuzuan/motorent-sub003/projection"
)

// run executes fn under the retry policy. Every call gets a correlation id
// that appears on each log line it produces.
func (c *Conn) run(ctx context.Context, op, query string, fn func(ctx context.Context) error) error {
	log := c.logger.With(zap.String("exec", ksuid.New().String()), zap.String("op", op))
	policy := c.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.metrics.retried(op)
		log.Warn("transient failure, retrying",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	}

	start := time.Now()
	attempts, err := policy.Do(ctx, fn)
	elapsed := time.Since(start)
	c.metrics.observe(op, err, elapsed)
	if err != nil {
		log.Error("execution failed",
			zap.String("sql", query), zap.Int("attempts", attempts), zap.Error(err))
		return &ExecError{Op: op, SQL: query, Attempts: attempts, Err: err}
	}
	log.Debug("executed",
		zap.String("sql", query), zap.Int("attempts", attempts), zap.Duration("elapsed", elapsed))
	return nil
}

// queryRows reads every row of query. Rows are only returned from an
// attempt that read to the end.
func (c *Conn) queryRows(ctx context.Context, op, query string, args ...any) ([]projection.Values, error) {
	var out []projection.Values
	err := c.run(ctx, op, query, func(ctx context.Context) error {
		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		var read []projection.Values
		for rows.Next() {
			vals := make(projection.Values, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			read = append(read, vals)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = read
		return nil
	})
	return out, err
}

// scalar returns the first column of the first row, or nil for no rows.
func (c *Conn) scalar(ctx context.Context, op, query string, args ...any) (any, error) {
	rows, err := c.queryRows(ctx, op, query, args...)
	if err != nil || len(rows) == 0 || len(rows[0]) == 0 {
		return nil, err
	}
	return rows[0][0], nil
}

func (c *Conn) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := c.run(ctx, op, query, func(ctx context.Context) error {
		r, err := c.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}
