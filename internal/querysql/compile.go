package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/flowreg/internal/queryir"
)

// Dialect selects the SQL flavour emitted by the compiler.
type Dialect int

const (
	// SQLite emits ? placeholders and resolves set fields through a
	// relation table.
	SQLite Dialect = iota
	// Postgres emits $n placeholders and resolves set fields through an
	// array column.
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "dialect(" + strconv.Itoa(int(d)) + ")"
	}
}

// Table maps a queryir source onto physical SQL.
type Table struct {
	// Name is the table the source reads from.
	Name string
	// Columns is the SELECT list in scan order. Entries may be expressions.
	Columns []string
	// Fields maps scalar fields to columns.
	Fields map[string]string
	// Types declares a SQL type for scalar fields that are not text. The
	// Postgres dialect casts parameters for these fields and skips text
	// collation when ordering by them.
	Types map[string]string
	// Sets maps set fields to their storage.
	Sets map[string]SetColumn
}

// SetColumn describes where the elements of a set field live.
//
// SQLite stores elements in a relation table (Relation, Owner, Value) that
// references Key on the main table. Postgres stores them in an array
// column (Column).
type SetColumn struct {
	Column   string
	Relation string
	Owner    string
	Value    string
	Key      string
}

// SQLCompiler compiles QueryIR to parameterized SQL.
//
// CRITICAL: Values are always parameterized, never interpolated.
// CRITICAL: Text ordering uses binary collation so every backend sorts the
// same way byte-for-byte.
type SQLCompiler struct {
	Dialect Dialect
	Table   Table
}

// NewSQLCompiler creates a compiler for one table in one dialect.
func NewSQLCompiler(dialect Dialect, table Table) *SQLCompiler {
	return &SQLCompiler{Dialect: dialect, Table: table}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	b := &builder{dialect: c.Dialect}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(b, query)
	case *queryir.Select:
		return c.compileSelect(b, *query)
	case queryir.Count:
		return c.compileCount(b, query)
	case *queryir.Count:
		return c.compileCount(b, *query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// builder collects parameters for one compilation.
type builder struct {
	dialect Dialect
	params  []any
}

// bind appends a parameter and returns its placeholder.
func (b *builder) bind(v any) string {
	b.params = append(b.params, v)
	if b.dialect == Postgres {
		return "$" + strconv.Itoa(len(b.params))
	}
	return "?"
}

func (c *SQLCompiler) compileSelect(b *builder, q queryir.Select) (string, []any, error) {
	if q.From != "" && q.From != c.Table.Name {
		return "", nil, fmt.Errorf("compile select: table %q does not serve source %q", c.Table.Name, q.From)
	}
	if len(q.OrderBy) == 0 {
		return "", nil, fmt.Errorf("compile select: missing order")
	}
	if len(c.Table.Columns) == 0 {
		return "", nil, fmt.Errorf("compile select: table %q has no columns", c.Table.Name)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(c.Table.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(c.Table.Name)

	if err := c.writeWhere(&sb, b, q.Filter); err != nil {
		return "", nil, err
	}

	orderBy, err := c.compileOrder(q.OrderBy)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)

	switch {
	case q.Limit > 0:
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.bind(q.Limit))
	case q.Offset > 0 && c.Dialect == SQLite:
		// SQLite only accepts OFFSET after a LIMIT clause.
		sb.WriteString(" LIMIT -1")
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.bind(q.Offset))
	}

	return sb.String(), b.params, nil
}

func (c *SQLCompiler) compileCount(b *builder, q queryir.Count) (string, []any, error) {
	if q.From != "" && q.From != c.Table.Name {
		return "", nil, fmt.Errorf("compile count: table %q does not serve source %q", c.Table.Name, q.From)
	}

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(c.Table.Name)

	if err := c.writeWhere(&sb, b, q.Filter); err != nil {
		return "", nil, err
	}

	return sb.String(), b.params, nil
}

func (c *SQLCompiler) writeWhere(sb *strings.Builder, b *builder, p queryir.Predicate) error {
	if p == nil {
		return nil
	}
	where, err := c.compilePredicate(b, p)
	if err != nil {
		return fmt.Errorf("compile filter: %w", err)
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(where)
	return nil
}

// compileOrder renders ORDER BY keys. Text columns use binary collation.
func (c *SQLCompiler) compileOrder(order []queryir.Order) (string, error) {
	parts := make([]string, 0, len(order))
	for _, o := range order {
		col, err := c.column(o.Field)
		if err != nil {
			return "", fmt.Errorf("compile order: %w", err)
		}
		if collation := c.collation(o.Field); collation != "" {
			col += " COLLATE " + collation
		}
		if o.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		parts = append(parts, col)
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) collation(field string) string {
	switch c.Dialect {
	case Postgres:
		if c.Table.Types[field] != "" {
			return ""
		}
		return `"C"`
	default:
		return "BINARY"
	}
}

func (c *SQLCompiler) column(field string) (string, error) {
	col, ok := c.Table.Fields[field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}
	return col, nil
}

// compilePredicate compiles a queryir.Predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always placeholders.
func (c *SQLCompiler) compilePredicate(b *builder, p queryir.Predicate) (string, error) {
	if p == nil {
		return "1 = 1", nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(b, pred)
	case *queryir.Equals:
		return c.compileEquals(b, *pred)
	case queryir.In:
		return c.compileIn(b, pred)
	case *queryir.In:
		return c.compileIn(b, *pred)
	case queryir.HasAll:
		return c.compileHasAll(b, pred)
	case *queryir.HasAll:
		return c.compileHasAll(b, *pred)
	case queryir.And:
		return c.compileAnd(b, pred)
	case *queryir.And:
		return c.compileAnd(b, *pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(b *builder, eq queryir.Equals) (string, error) {
	col, err := c.column(eq.Field)
	if err != nil {
		return "", err
	}
	return col + " = " + b.bind(eq.Value), nil
}

func (c *SQLCompiler) compileIn(b *builder, in queryir.In) (string, error) {
	col, err := c.column(in.Field)
	if err != nil {
		return "", err
	}
	if len(in.Values) == 0 {
		return "", fmt.Errorf("in: %q has no values", in.Field)
	}

	if c.Dialect == Postgres {
		placeholder := b.bind(append([]string(nil), in.Values...)) + "::text[]"
		if typ := c.Table.Types[in.Field]; typ != "" {
			placeholder += "::" + typ + "[]"
		}
		return col + " = ANY(" + placeholder + ")", nil
	}

	placeholders := make([]string, len(in.Values))
	for i, v := range in.Values {
		placeholders[i] = b.bind(v)
	}
	return col + " IN (" + strings.Join(placeholders, ", ") + ")", nil
}

// compileHasAll compiles a set containment test.
//
// SQLite:
//
//	id IN (SELECT flow_id FROM flow_tags WHERE tag IN (?, ?) GROUP BY flow_id HAVING COUNT(DISTINCT tag) = ?)
//
// Postgres:
//
//	tags @> $1::text[]
func (c *SQLCompiler) compileHasAll(b *builder, h queryir.HasAll) (string, error) {
	set, ok := c.Table.Sets[h.Field]
	if !ok {
		return "", fmt.Errorf("unknown set field %q", h.Field)
	}
	if len(h.Values) == 0 {
		return "1 = 1", nil // Vacuous truth
	}

	values := distinct(h.Values)

	if c.Dialect == Postgres {
		if set.Column == "" {
			return "", fmt.Errorf("set field %q has no array column", h.Field)
		}
		return set.Column + " @> " + b.bind(values) + "::text[]", nil
	}

	if set.Relation == "" || set.Owner == "" || set.Value == "" || set.Key == "" {
		return "", fmt.Errorf("set field %q has no relation table", h.Field)
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.bind(v)
	}
	sql := fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s IN (%s) GROUP BY %s HAVING COUNT(DISTINCT %s) = %s)",
		set.Key,
		set.Owner,
		set.Relation,
		set.Value,
		strings.Join(placeholders, ", "),
		set.Owner,
		set.Value,
		b.bind(len(values)))
	return sql, nil
}

func (c *SQLCompiler) compileAnd(b *builder, and queryir.And) (string, error) {
	preds := queryir.Conjuncts(and)
	if len(preds) == 0 {
		return "1 = 1", nil // Always true (vacuous truth)
	}

	parts := make([]string, 0, len(preds))
	for _, pred := range preds {
		sql, err := c.compilePredicate(b, pred)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}

	return strings.Join(parts, " AND "), nil
}

// distinct drops repeated values, keeping first occurrence order. The
// HAVING count must equal the number of distinct wanted elements.
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
