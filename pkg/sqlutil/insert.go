package sqlutil

import (
	"fmt"
	"strings"
)

// InsertBuilder assembles a single parameterized multi-row INSERT from an
// ordered list of row tuples, so batch writes stay one round-trip without
// ad hoc string concatenation.
type InsertBuilder struct {
	table   string
	columns []string
	suffix  string
	args    []interface{}
	rows    int
}

// NewInsert starts a builder for the given table and column list.
func NewInsert(table string, columns ...string) *InsertBuilder {
	return &InsertBuilder{table: table, columns: columns}
}

// Values appends one row tuple. The arity must match the column list.
func (b *InsertBuilder) Values(vals ...interface{}) *InsertBuilder {
	b.args = append(b.args, vals...)
	b.rows++
	return b
}

// Suffix appends a trailing clause such as RETURNING or ON CONFLICT.
func (b *InsertBuilder) Suffix(clause string) *InsertBuilder {
	b.suffix = clause
	return b
}

// Build renders the statement and its ordered argument list.
func (b *InsertBuilder) Build() (string, []interface{}, error) {
	if b.rows == 0 {
		return "", nil, fmt.Errorf("insert into %s: no rows", b.table)
	}
	if len(b.args) != b.rows*len(b.columns) {
		return "", nil, fmt.Errorf("insert into %s: expected %d values per row, got %d total for %d rows",
			b.table, len(b.columns), len(b.args), b.rows)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(") VALUES ")

	n := 1
	for row := 0; row < b.rows; row++ {
		if row > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for col := 0; col < len(b.columns); col++ {
			if col > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", n)
			n++
		}
		sb.WriteString(")")
	}

	if b.suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(b.suffix)
	}

	return sb.String(), b.args, nil
}

// Rows reports how many row tuples have been appended.
func (b *InsertBuilder) Rows() int {
	return b.rows
}
