package database

import "github.com/koustreak/pgi/internal/errs"

// Field describes one result column as reported by the server.
type Field struct {
	Name    string
	TypeOID uint32
}

// Result is a fully read result set.
type Result struct {
	Fields []Field
	Rows   [][]any
}

// Len returns the number of rows. A nil Result has none.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Columns returns the column names in result order.
func (r *Result) Columns() []string {
	if r == nil {
		return nil
	}
	cols := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Row returns row i together with the result's fields.
func (r *Result) Row(i int) *Row {
	return &Row{Fields: r.Fields, Values: r.Rows[i]}
}

// Maps returns every row as a column name → value map.
// The returned slice is always non-nil (empty slice on zero rows).
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		out = append(out, r.Row(i).Map())
	}
	return out
}

// Row is a single result row.
type Row struct {
	Fields []Field
	Values []any
}

// Map returns the row as a column name → value map.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.Fields))
	for i, f := range r.Fields {
		m[f.Name] = r.Values[i]
	}
	return m
}

// String renders column i the way it is shown to users. NULL renders empty.
func (r *Row) String(i int) string {
	return Text(r.Values[i])
}

// ExpectOne returns the only row of res, or a cardinality error.
func ExpectOne(res *Result) (*Row, error) {
	if n := res.Len(); n != 1 {
		return nil, errs.Newf(errs.ErrKindCardinality, "expected exactly one row, got %d", n)
	}
	return res.Row(0), nil
}
