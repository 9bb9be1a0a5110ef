// Package format renders query results as fixed-width text tables.
package format

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/schema"
)

// DefaultWidth is the display width of types missing from the width map.
const DefaultWidth = 10

const separator = " |"

// Formatter lays out results. Column width is the larger of the header
// length and the configured width for the column's type.
type Formatter struct {
	types  schema.TypeResolver
	widths map[string]int
}

// New returns a Formatter. widths maps type names (text, int4, …) to
// display widths and may be nil.
func New(types schema.TypeResolver, widths map[string]int) *Formatter {
	return &Formatter{types: types, widths: widths}
}

// Widths returns the display width of each column of res.
func (f *Formatter) Widths(ctx context.Context, res *database.Result) ([]int, error) {
	widths := make([]int, len(res.Fields))
	for i, fd := range res.Fields {
		typ, err := f.types.ResolveTypeName(ctx, fd.TypeOID)
		if err != nil {
			return nil, err
		}
		w, ok := f.widths[typ]
		if !ok || w <= 0 {
			w = DefaultWidth
		}
		if n := utf8.RuneCountInString(fd.Name); n > w {
			w = n
		}
		widths[i] = w
	}
	return widths, nil
}

// Format renders res: a header line of column names, then one line per row.
// An empty result renders as the empty string.
func (f *Formatter) Format(ctx context.Context, res *database.Result) (string, error) {
	if res.Len() == 0 {
		return "", nil
	}
	widths, err := f.Widths(ctx, res)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	writeLine(&sb, widths, func(i int) string { return res.Fields[i].Name })
	for r := 0; r < res.Len(); r++ {
		row := res.Row(r)
		writeLine(&sb, widths, row.String)
	}
	return sb.String(), nil
}

// Write renders res to w.
func (f *Formatter) Write(ctx context.Context, w io.Writer, res *database.Result) error {
	out, err := f.Format(ctx, res)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func writeLine(sb *strings.Builder, widths []int, cell func(int) string) {
	for i, w := range widths {
		sb.WriteString(pad(truncate(cell(i), w), w))
		sb.WriteString(separator)
	}
	sb.WriteString("\n")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// pad left-aligns s in a field of n runes.
func pad(s string, n int) string {
	if k := n - utf8.RuneCountInString(s); k > 0 {
		return s + strings.Repeat(" ", k)
	}
	return s
}
