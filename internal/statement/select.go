package statement

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/koustreak/pgi/internal/errs"
)

// DefaultLimit caps a SELECT when the caller gives no limit.
const DefaultLimit = 100

// SelectOptions narrows a SELECT. The zero value selects every column of
// the first DefaultLimit rows.
type SelectOptions struct {
	// Fields to return; empty means *.
	Fields []string

	// Condition is a raw WHERE expression; empty omits the clause.
	Condition string

	// Limit is always emitted; nil means DefaultLimit. Build it with
	// statement.Limit.
	Limit *int
}

// Limit returns a row limit for SelectOptions. Limit(0) selects no rows.
func Limit(n int) *int {
	return &n
}

// Select builds SELECT <fields|*> FROM <table> [WHERE <condition>] LIMIT <n>.
func Select(table string, opts SelectOptions) (string, error) {
	limit := DefaultLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if limit < 0 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "negative limit %d", limit)
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}

	q := sq.Select(fields...).From(table).Limit(uint64(limit))
	if opts.Condition != "" {
		q = q.Where(opts.Condition)
	}

	sql, _, err := q.ToSql()
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "build select", err)
	}
	return sql, nil
}
