package repository

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned by single-row loads that match nothing.
var ErrNotFound = errors.New("repository: not found")

// ExecError is a failed execution. SQL is the statement that was sent.
type ExecError struct {
	Op       string
	SQL      string
	Attempts int
	Err      error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v\n%s", e.Op, e.Attempts, e.Err, e.SQL)
}

func (e *ExecError) Unwrap() error { return e.Err }

// SQL Server errors worth retrying: deadlock victim, timeout, and the
// Azure SQL throttling and failover family.
var mssqlTransient = map[int32]bool{
	-2:    true,
	1205:  true,
	4060:  true,
	10928: true,
	10929: true,
	40197: true,
	40501: true,
	40613: true,
	49918: true,
	49919: true,
	49920: true,
}

var pgTransient = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled by statement_timeout
}

var mysqlTransient = map[uint16]bool{
	1040: true, // too many connections
	1205: true, // lock wait timeout
	1213: true, // deadlock
}

// IsTransient reports whether err is a failure expected to go away on
// retry: throttling, deadlocks, timeouts, or a server asking the client to
// retry the connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ms mssql.Error
	if errors.As(err, &ms) {
		return mssqlTransient[ms.Number]
	}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		return pgTransient[pg.Code]
	}
	var my *mysql.MySQLError
	if errors.As(err, &my) {
		return mysqlTransient[my.Number]
	}
	var lite *sqlite.Error
	if errors.As(err, &lite) {
		code := lite.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "retry the connection") || strings.Contains(msg, "please retry")
}
