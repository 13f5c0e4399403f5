// Package database builds parameterized list queries from typed filter
// conditions. Identifiers are quoted through pgx so repos can pass column
// names straight from their column lists.
package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is the SQL comparison operator applied to a filter field.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	GreaterThanOrEqual ConditionType = ">="
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	ILike              ConditionType = "ILIKE"

	// Custom marks a condition carrying raw SQL built via WhereRawCond.
	Custom ConditionType = "CUSTOM"
)

// unset sentinel: LIMIT/OFFSET clauses are emitted only when explicitly set,
// so zero values remain usable.
const unset = -1

// Condition is one WHERE predicate. Build with WhereCond or WhereRawCond.
type Condition struct {
	Field string
	Type  ConditionType
	Value any

	raw string
}

// WhereCond builds a field-operator-value predicate. The field name is quoted
// before it reaches the query.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		//nolint:forbidigo // misuse of the constructor, not a runtime condition
		panic("database: use WhereRawCond for custom SQL")
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond builds a predicate from raw SQL with $1..$n placeholders bound
// to params. Placeholders are renumbered when the query is assembled; the SQL
// text itself is trusted and must never contain user input.
func WhereRawCond(rawSQL string, params ...any) Condition {
	return Condition{Type: Custom, raw: rawSQL, Value: params}
}

// ListQueryOptions accumulates the pieces of a list query.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	CountOnly  bool
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions starts a query against table and applies opts.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{
		Table:  table,
		Limit:  unset,
		Offset: unset,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithColumns sets the selected columns; without it the query selects *.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

// WithCondition appends one predicate.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithConditions replaces the predicate list.
func WithConditions(conds ...Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = conds }
}

// WithOrderBy sets the sort column and direction ("ASC"/"DESC", case
// insensitive; anything else is dropped).
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit; negative values leave it unset.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset; negative values leave it unset.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly turns the query into SELECT COUNT(*); ordering and paging are
// skipped.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// BuildListQuery assembles the final SQL string and its argument list.
func BuildListQuery(o *ListQueryOptions) (string, []any) {
	if o == nil {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(selectClause(o))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(o.Table))

	where, args := whereClause(o.Conditions)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if o.CountOnly {
		return b.String(), args
	}

	if o.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(quoteIdent(o.OrderBy))
		if dir := strings.ToUpper(o.OrderDir); dir == "ASC" || dir == "DESC" {
			b.WriteString(" ")
			b.WriteString(dir)
		}
	}
	if o.Limit != unset {
		args = append(args, o.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if o.Offset != unset {
		args = append(args, o.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return b.String(), args
}

func selectClause(o *ListQueryOptions) string {
	if o.CountOnly {
		return "SELECT COUNT(*)"
	}
	if len(o.Columns) == 0 {
		return "SELECT *"
	}
	quoted := make([]string, len(o.Columns))
	for i, col := range o.Columns {
		quoted[i] = quoteIdent(col)
	}
	return "SELECT " + strings.Join(quoted, ", ")
}

func whereClause(conds []Condition) (string, []any) {
	var (
		predicates []string
		args       []any
	)
	for _, cond := range conds {
		switch cond.Type {
		case Custom:
			sql, custArgs := renumberPlaceholders(cond, len(args))
			if sql == "" {
				continue
			}
			predicates = append(predicates, sql)
			args = append(args, custArgs...)
		case Equal, NotEqual, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, ILike:
			if cond.Field == "" {
				continue
			}
			args = append(args, cond.Value)
			predicates = append(predicates,
				fmt.Sprintf("%s %s $%d", quoteIdent(cond.Field), cond.Type, len(args)))
		}
	}
	if len(predicates) == 0 {
		return "", args
	}
	return strings.Join(predicates, " AND "), args
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// renumberPlaceholders shifts a raw condition's $1..$n placeholders past the
// offset args already bound, returning the rewritten SQL and its params.
func renumberPlaceholders(cond Condition, offset int) (string, []any) {
	if cond.raw == "" {
		return "", nil
	}
	params, _ := cond.Value.([]any)

	var bound []any
	seen := map[int]int{}
	sql := placeholderRe.ReplaceAllStringFunc(cond.raw, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if _, ok := seen[n]; !ok {
			bound = append(bound, params[n-1])
			seen[n] = offset + len(bound)
		}
		return fmt.Sprintf("$%d", seen[n])
	})
	return sql, bound
}

// quoteIdent quotes a possibly qualified identifier ("table.column") part by
// part.
func quoteIdent(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}
