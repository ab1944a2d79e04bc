package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erymuzuan/motorent-sub003/expr"
	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/nodes"
)

// tokenize splits input into tokens, respecting single-quoted strings
// and recognising the two-character comparison operators.
func tokenize(input string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if inQuote {
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(input) && input[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inQuote = false
					flush()
				}
			}
			continue
		}

		switch {
		case ch == '\'':
			flush()
			cur.WriteByte(ch)
			inQuote = true
		case ch == '(' || ch == ')' || ch == ',':
			flush()
			tokens = append(tokens, string(ch))
		case ch == '!' && i+1 < len(input) && input[i+1] == '=':
			flush()
			tokens = append(tokens, "!=")
			i++
		case ch == '<' && i+1 < len(input) && (input[i+1] == '>' || input[i+1] == '='):
			flush()
			tokens = append(tokens, input[i:i+2])
			i++
		case ch == '>' && i+1 < len(input) && input[i+1] == '=':
			flush()
			tokens = append(tokens, ">=")
			i++
		case ch == '=' || ch == '>' || ch == '<':
			flush()
			tokens = append(tokens, string(ch))
		case ch == ' ' || ch == '\t':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return tokens
}

// parseValue converts a literal token to a Go value.
func parseValue(token string) (any, error) {
	switch strings.ToLower(token) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if strings.HasPrefix(token, "'") && strings.HasSuffix(token, "'") && len(token) >= 2 {
		inner := token[1 : len(token)-1]
		return strings.ReplaceAll(inner, "''", "'"), nil
	}
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("cannot parse value: %s", token)
}

func isIdentifier(token string) bool {
	if token == "" {
		return false
	}
	ch := token[0]
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// exprPart is a run of tokens forming one condition and the combinator
// that follows it ("and", "or", or "" for the last part).
type exprPart struct {
	tokens     []string
	combinator string
}

// splitExpressionParts splits tokens on top-level AND/OR keywords.
func splitExpressionParts(tokens []string) []exprPart {
	var parts []exprPart
	var cur []string
	depth := 0
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		switch {
		case lower == "(":
			depth++
		case lower == ")":
			depth--
		case depth == 0 && (lower == "and" || lower == "or"):
			parts = append(parts, exprPart{tokens: cur, combinator: lower})
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		parts = append(parts, exprPart{tokens: cur})
	}
	return parts
}

// parseFilter parses a predicate such as
//
//	Status in ('Active', 'Draft') and not (Price > 10 or Name startswith 'B')
//
// into an expression over the query row. AND binds tighter than OR.
func parseFilter(input string) (expr.Expr, error) {
	tokens := tokenize(strings.TrimSpace(input))
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	return parseTokens(tokens)
}

func parseTokens(tokens []string) (expr.Expr, error) {
	parts := splitExpressionParts(tokens)
	if len(parts) == 0 {
		return nil, errors.New("empty expression")
	}

	var ors []expr.Expr
	var and expr.Expr
	for _, p := range parts {
		cond, err := parseSingleCondition(p.tokens)
		if err != nil {
			return nil, err
		}
		if and == nil {
			and = cond
		} else {
			and = expr.And(and, cond)
		}
		if p.combinator != "and" {
			ors = append(ors, and)
			and = nil
		}
	}
	if and != nil {
		return nil, errors.New("expression ends with AND")
	}
	return expr.Or(ors[0], ors[1:]...), nil
}

func parseSingleCondition(tokens []string) (expr.Expr, error) {
	if len(tokens) == 0 {
		return nil, errors.New("empty condition")
	}
	if strings.ToLower(tokens[0]) == "not" {
		inner, err := parseSingleCondition(tokens[1:])
		if err != nil {
			return nil, err
		}
		return expr.Not(inner), nil
	}
	if tokens[0] == "(" {
		if tokens[len(tokens)-1] != ")" {
			return nil, errors.New("unbalanced parentheses")
		}
		return parseTokens(tokens[1 : len(tokens)-1])
	}
	if !isIdentifier(tokens[0]) {
		return nil, fmt.Errorf("expected a field, got %s", tokens[0])
	}

	field := expr.Field(tokens[0])
	if len(tokens) == 1 {
		return field, nil
	}
	op := strings.ToLower(tokens[1])
	rest := tokens[2:]

	switch op {
	case "is":
		if len(rest) == 1 && strings.EqualFold(rest[0], "null") {
			return expr.Eq(field, nil), nil
		}
		if len(rest) == 2 && strings.EqualFold(rest[0], "not") && strings.EqualFold(rest[1], "null") {
			return expr.Ne(field, nil), nil
		}
		return nil, errors.New("expected IS NULL or IS NOT NULL")
	case "in":
		return parseIn(field, rest)
	case "not":
		if len(rest) > 0 && strings.EqualFold(rest[0], "in") {
			in, err := parseIn(field, rest[1:])
			if err != nil {
				return nil, err
			}
			return expr.Not(in), nil
		}
		return nil, errors.New("expected NOT IN")
	}

	if len(rest) != 1 {
		return nil, fmt.Errorf("expected a single value after %s", tokens[1])
	}
	v, err := parseValue(rest[0])
	if err != nil {
		return nil, err
	}
	switch op {
	case "=":
		return expr.Eq(field, v), nil
	case "!=", "<>":
		return expr.Ne(field, v), nil
	case ">":
		return expr.Gt(field, v), nil
	case ">=":
		return expr.Ge(field, v), nil
	case "<":
		return expr.Lt(field, v), nil
	case "<=":
		return expr.Le(field, v), nil
	case "startswith":
		return expr.StartsWith(field, v), nil
	case "endswith":
		return expr.EndsWith(field, v), nil
	case "contains":
		return expr.Contains(field, v), nil
	}
	return nil, fmt.Errorf("unknown operator: %s", tokens[1])
}

func parseIn(field expr.Expr, tokens []string) (expr.Expr, error) {
	if len(tokens) < 2 || tokens[0] != "(" || tokens[len(tokens)-1] != ")" {
		return nil, errors.New("expected IN (value, ...)")
	}
	list := []any{}
	for _, tok := range tokens[1 : len(tokens)-1] {
		if tok == "," {
			continue
		}
		v, err := parseValue(tok)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return expr.In(list, field), nil
}

// ordering is one key of an --order list.
type ordering struct {
	field string
	desc  bool
}

// parseOrder parses "Price desc, Name".
func parseOrder(input string) ([]ordering, error) {
	var out []ordering
	for _, item := range strings.Split(input, ",") {
		words := strings.Fields(item)
		switch {
		case len(words) == 0:
			continue
		case len(words) > 2:
			return nil, fmt.Errorf("invalid order key %q", strings.TrimSpace(item))
		}
		o := ordering{field: words[0]}
		if len(words) == 2 {
			switch strings.ToLower(words[1]) {
			case "asc":
			case "desc":
				o.desc = true
			default:
				return nil, fmt.Errorf("invalid direction %q", words[1])
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func parseFields(input string) []expr.Expr {
	var out []expr.Expr
	for _, f := range strings.Split(input, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, expr.Field(f))
		}
	}
	return out
}

// parseShape parses payload, count, delete, distinct:F, group:F,
// groupsum:F:V, columns:F,G, or max|min|sum|avg:F.
func parseShape(s string) (managers.Shape, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	switch strings.ToLower(name) {
	case "", "payload":
		return managers.Payload(), nil
	case "count":
		return managers.Count(), nil
	case "delete":
		return managers.DeleteRows(), nil
	}
	if arg == "" {
		return managers.Shape{}, fmt.Errorf("shape %s needs a field", name)
	}
	switch strings.ToLower(name) {
	case "max":
		return managers.Aggregate(nodes.AggMax, expr.Field(arg)), nil
	case "min":
		return managers.Aggregate(nodes.AggMin, expr.Field(arg)), nil
	case "sum":
		return managers.Aggregate(nodes.AggSum, expr.Field(arg)), nil
	case "avg":
		return managers.Aggregate(nodes.AggAvg, expr.Field(arg)), nil
	case "distinct":
		return managers.Distinct(expr.Field(arg)), nil
	case "group":
		return managers.GroupCount(expr.Field(arg)), nil
	case "groupsum":
		group, value, ok := strings.Cut(arg, ":")
		if !ok {
			return managers.Shape{}, errors.New("groupsum needs group:value")
		}
		return managers.GroupSum(expr.Field(group), expr.Field(value)), nil
	case "columns":
		return managers.Columns(parseFields(arg)...), nil
	}
	return managers.Shape{}, fmt.Errorf("unknown shape %q", name)
}

// queryOptions are the query-building flags shared by the commands.
type queryOptions struct {
	where  []string
	order  string
	fields string
	page   int
	size   int
}

// build applies the options to q.
func (o *queryOptions) build(q *managers.Query) (*managers.Query, error) {
	for _, w := range o.where {
		pred, err := parseFilter(w)
		if err != nil {
			return nil, fmt.Errorf("where %q: %w", w, err)
		}
		q = q.Where(pred)
	}
	if o.order != "" {
		keys, err := parseOrder(o.order)
		if err != nil {
			return nil, err
		}
		for i, k := range keys {
			f := expr.Field(k.field)
			switch {
			case i == 0 && k.desc:
				q = q.OrderByDescending(f)
			case i == 0:
				q = q.OrderBy(f)
			case k.desc:
				q = q.ThenByDescending(f)
			default:
				q = q.ThenBy(f)
			}
		}
	}
	return q, nil
}
