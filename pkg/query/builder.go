package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term over a logical field name.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSort parses "field,-other" into sort terms; a leading "-" sorts
// descending. Blank terms are skipped.
func ParseSort(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder accumulates WHERE conditions and ordering for one projection.
// Placeholders are numbered as arguments are added. Filter methods panic on
// fields the projection does not map; sort terms naming unmapped fields are
// dropped.
type Builder struct {
	projection *Projection
	where      []string
	args       []any
	order      []SortField
	fallback   []SortField
}

// NewBuilder creates a Builder that orders by defaultSort when no explicit
// order is set.
func NewBuilder(projection *Projection, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, fallback: defaultSort}
}

// OrderBy replaces the default ordering.
func (b *Builder) OrderBy(fields ...SortField) *Builder {
	b.order = fields
	return b
}

// WhereEquals adds field = value. Nil values, including typed nil pointers,
// add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, b.projection.mustColumn(field)+" = "+b.bind(value))
	return b
}

// WhereAtLeast adds field >= value when value is non-nil.
func (b *Builder) WhereAtLeast(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, b.projection.mustColumn(field)+" >= "+b.bind(value))
	return b
}

// WhereBefore adds field < value when value is non-nil.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, b.projection.mustColumn(field)+" < "+b.bind(value))
	return b
}

// WhereSearch matches search case-insensitively against any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := b.bind("%" + *search + "%")
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = b.projection.mustColumn(f) + " ILIKE " + pattern
	}
	b.where = append(b.where, "("+strings.Join(terms, " OR ")+")")
	return b
}

// Select returns the full ordered query.
func (b *Builder) Select() (string, []any) {
	return b.selectClause() + b.whereClause() + b.orderClause(), b.args
}

// Count returns a COUNT(*) over the current conditions.
func (b *Builder) Count() (string, []any) {
	return "SELECT COUNT(*) FROM " + b.projection.From() + b.whereClause(), b.args
}

// Page returns the ordered query limited to one 1-based page.
func (b *Builder) Page(page, size int) (string, []any) {
	offset := max(page-1, 0) * size
	sql := fmt.Sprintf("%s%s%s LIMIT %d OFFSET %d", b.selectClause(), b.whereClause(), b.orderClause(), size, offset)
	return sql, b.args
}

// One returns a query for the row whose field equals value.
func (b *Builder) One(field string, value any) (string, []any) {
	return b.WhereEquals(field, value).selectClause() + b.whereClause(), b.args
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *Builder) selectClause() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From()
}

func (b *Builder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderClause() string {
	terms := b.sortTerms(b.order)
	if len(terms) == 0 {
		terms = b.sortTerms(b.fallback)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) sortTerms(fields []SortField) []string {
	var terms []string
	for _, f := range fields {
		col, ok := b.projection.Column(f.Field)
		if !ok {
			continue
		}
		if f.Descending {
			col += " DESC"
		}
		terms = append(terms, col)
	}
	return terms
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
