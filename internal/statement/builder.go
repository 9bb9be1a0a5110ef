// Package statement turns cached table metadata and caller values into SQL.
//
// Every INSERT shape reduces to BuildInsert over an ordered column list and
// an ordered value list. In ModeLiteral values are rendered into the SQL
// text exactly as given (strings must already carry their quotes). In
// ModeParameterized values travel as $n arguments instead.
//
// Usage:
//
//	b := statement.New(statement.ModeParameterized)
//	st := b.Insert("public.events", meta, "foo", time.Now())
//	res, err := conn.Query(ctx, st.SQL, st.Args...)
package statement

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/schema"
)

// Mode selects how values reach the server.
type Mode int

const (
	// ModeParameterized uses $1, $2, … placeholders.
	ModeParameterized Mode = iota

	// ModeLiteral writes values into the SQL text.
	ModeLiteral
)

func (m Mode) String() string {
	if m == ModeLiteral {
		return "literal"
	}
	return "parameterized"
}

// ParseMode parses "literal" or "parameterized". Empty means parameterized.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "parameterized":
		return ModeParameterized, nil
	case "literal":
		return ModeLiteral, nil
	default:
		return ModeParameterized, errs.Newf(errs.ErrKindInvalidInput, "unknown statement mode %q", s)
	}
}

// Timestamp marks a value rendered as a quoted ISO-8601 literal.
type Timestamp time.Time

// ISO8601 is the layout of Timestamp literals.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

// Statement is SQL text plus its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Builder builds statements in one Mode.
type Builder struct {
	mode Mode
}

// New returns a Builder for mode.
func New(mode Mode) *Builder {
	return &Builder{mode: mode}
}

// Mode returns the builder's mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// ColumnsForInsert returns the columns a positional insert fills, in
// physical order: every column except the primary key, unless the primary
// key is timestamp-typed and therefore supplied by the caller.
func ColumnsForInsert(m schema.TableMetadata) []string {
	cols := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		if c.Name != m.PrimaryKey || strings.Contains(c.Type, "timestamp") {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// BuildInsert is the core INSERT: INSERT INTO <table>(<cols>) VALUES(<values>).
// The number of values must match the number of columns; this is not
// checked.
func (b *Builder) BuildInsert(table string, columns []string, values []any) Statement {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString("(")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES(")
	tokens, args := b.values(values)
	sb.WriteString(strings.Join(tokens, ", "))
	sb.WriteString(")")
	return Statement{SQL: sb.String(), Args: args}
}

// Insert fills ColumnsForInsert(m) with values in order.
func (b *Builder) Insert(table string, m schema.TableMetadata, values ...any) Statement {
	return b.BuildInsert(table, ColumnsForInsert(m), values)
}

// InsertFromMaps merges maps (later keys win) and inserts the result with
// columns in key order rather than physical order:
// INSERT INTO <table> (<keys>) VALUES (<values>).
func (b *Builder) InsertFromMaps(table string, maps ...map[string]any) (Statement, error) {
	merged := Merge(maps...)
	if len(merged) == 0 {
		return Statement{}, errs.Newf(errs.ErrKindInvalidInput, "insert into %s: no columns given", table)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = merged[k]
	}
	tokens, args := b.values(values)

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), strings.Join(tokens, ", "))
	return Statement{SQL: sql, Args: args}, nil
}

// values renders each value as a literal token or a placeholder.
func (b *Builder) values(values []any) ([]string, []any) {
	tokens := make([]string, len(values))
	if b.mode == ModeLiteral {
		for i, v := range values {
			tokens[i] = literal(v)
		}
		return tokens, nil
	}

	args := make([]any, len(values))
	for i, v := range values {
		tokens[i] = placeholder(i + 1)
		if ts, ok := v.(Timestamp); ok {
			v = time.Time(ts)
		}
		args[i] = v
	}
	return tokens, args
}

// Clear empties table and everything referencing it.
func Clear(table string) string {
	return "TRUNCATE " + table + " CASCADE"
}

// --- adapters for the insertion shapes ---

// Values converts a homogeneous slice into insert values.
func Values[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// TimedValues is Values with tp prepended as a Timestamp.
func TimedValues[T any](tp time.Time, vs []T) []any {
	out := make([]any, 0, len(vs)+1)
	out = append(out, Timestamp(tp))
	for _, v := range vs {
		out = append(out, v)
	}
	return out
}

// Merge merges maps left to right; later maps override earlier keys.
func Merge[V any](maps ...map[string]V) map[string]V {
	merged := make(map[string]V)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// literal renders v in its natural textual form.
func literal(v any) string {
	switch x := v.(type) {
	case Timestamp:
		return "'" + time.Time(x).Format(ISO8601) + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(x)
	}
}

// placeholder returns the Postgres parameter placeholder $idx.
func placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}
