// Package query builds parameterized SELECT statements over one table.
// Callers refer to columns by logical field names; only mapped fields reach
// the generated SQL.
package query

import "strings"

// Projection maps logical field names to alias-qualified columns of a table.
type Projection struct {
	table   string
	alias   string
	fields  map[string]string
	columns []string
}

// NewProjection starts a projection over table (optionally schema-qualified)
// under alias.
func NewProjection(table, alias string) *Projection {
	return &Projection{
		table:  table,
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Field maps column to the logical name field. Columns are selected in the
// order they are mapped.
func (p *Projection) Field(column, field string) *Projection {
	qualified := p.alias + "." + column
	p.fields[field] = qualified
	p.columns = append(p.columns, qualified)
	return p
}

// From returns the FROM target, e.g. "public.sessions s".
func (p *Projection) From() string {
	return p.table + " " + p.alias
}

// Column resolves a logical field name.
func (p *Projection) Column(field string) (string, bool) {
	col, ok := p.fields[field]
	return col, ok
}

// Columns returns the select list.
func (p *Projection) Columns() string {
	return strings.Join(p.columns, ", ")
}

func (p *Projection) mustColumn(field string) string {
	col, ok := p.fields[field]
	if !ok {
		panic("query: unmapped field " + field + " on " + p.table)
	}
	return col
}
