// Package quoting provides shared identifier and literal quoting utilities.
package quoting

import "strings"

// Bracket quotes a SQL identifier using square brackets (SQL Server).
// A closing bracket inside the name is escaped by doubling it.
func Bracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// DoubleQuote quotes a SQL identifier using double quotes (PostgreSQL, SQLite, ANSI SQL).
// Internal double quotes are escaped by doubling them.
func DoubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Backtick quotes a SQL identifier using backticks (MySQL).
// Internal backticks are escaped by doubling them.
func Backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// EscapeQuotes escapes a string literal by doubling single quotes. This is
// the only escape SQL Server, PostgreSQL and SQLite need.
func EscapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// EscapeString escapes a string literal for MySQL by doubling single quotes
// and escaping backslashes.
//
// SECURITY: inlined literals are for trusted values only. Statements built
// from user input go through the parameterized mode.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return EscapeQuotes(s)
}
