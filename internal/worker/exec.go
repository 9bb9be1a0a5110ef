package worker

import (
	"context"
	"time"

	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/schema"
	"github.com/koustreak/pgi/internal/statement"
)

func emptyResult() *database.Result {
	return &database.Result{Rows: [][]any{}}
}

// Execute runs one statement in its own transaction and returns its rows.
// Under PolicyLenient a failure yields an empty result and a nil error.
func (w *Worker) Execute(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	if w.conn == nil {
		return w.failResult(ctx, sql, errs.New(errs.ErrKindConnectionFailed, "not connected"))
	}
	res, err := w.conn.Query(ctx, sql, args...)
	if err != nil {
		return w.failResult(ctx, sql, err)
	}
	return res, nil
}

// ExecuteOne is Execute expecting exactly one row.
// Under PolicyLenient a failure yields an empty row.
func (w *Worker) ExecuteOne(ctx context.Context, sql string, args ...any) (*database.Row, error) {
	var (
		row *database.Row
		err error
	)
	if w.conn == nil {
		err = errs.New(errs.ErrKindConnectionFailed, "not connected")
	} else {
		row, err = w.conn.QueryOne(ctx, sql, args...)
	}
	if err != nil {
		if err := w.fail(ctx, "execute failed", err, logger.Fields{"sql": sql}); err != nil {
			return nil, err
		}
		return &database.Row{}, nil
	}
	return row, nil
}

func (w *Worker) failResult(ctx context.Context, sql string, err error) (*database.Result, error) {
	if err := w.fail(ctx, "execute failed", err, logger.Fields{"sql": sql}); err != nil {
		return nil, err
	}
	return emptyResult(), nil
}

func (w *Worker) run(ctx context.Context, st statement.Statement) (*database.Result, error) {
	return w.Execute(ctx, st.SQL, st.Args...)
}

// --- schema cache ---

// EnsureKnown introspects table unless it is cached. Failures are logged
// and retried on the next call.
func (w *Worker) EnsureKnown(ctx context.Context, table string) {
	w.intro.EnsureKnown(ctx, table)
}

// Metadata returns the cached metadata of table without introspecting.
func (w *Worker) Metadata(table string) (schema.TableMetadata, bool) {
	return w.intro.Cache().Get(table)
}

// Tables returns the known tables in discovery order.
func (w *Worker) Tables() []string {
	return w.intro.Cache().Known()
}

// metadata ensures table is known and returns its metadata.
func (w *Worker) metadata(ctx context.Context, table string) (schema.TableMetadata, error) {
	w.EnsureKnown(ctx, table)
	m, ok := w.Metadata(table)
	if !ok {
		return m, errs.Newf(errs.ErrKindIntrospection, "no metadata for %s", table)
	}
	return m, nil
}

// --- reads ---

// Select returns rows of table narrowed by opts.
func (w *Worker) Select(ctx context.Context, table string, opts statement.SelectOptions) (*database.Result, error) {
	w.EnsureKnown(ctx, table)
	sql, err := statement.Select(table, opts)
	if err != nil {
		return w.failResult(ctx, sql, err)
	}
	return w.Execute(ctx, sql)
}

// SelectAllColumns is Select with every column and the default limit.
func (w *Worker) SelectAllColumns(ctx context.Context, table, condition string) (*database.Result, error) {
	return w.Select(ctx, table, statement.SelectOptions{Condition: condition})
}

// --- writes ---

// Insert inserts one row into table. values fill the insertable columns
// in physical order; see statement.ColumnsForInsert.
func (w *Worker) Insert(ctx context.Context, table string, values ...any) (*database.Result, error) {
	m, err := w.metadata(ctx, table)
	if err != nil {
		return w.failInsert(ctx, table, err)
	}
	return w.run(ctx, w.builder.Insert(table, m, values...))
}

// InsertFromMaps merges maps, later keys winning, and inserts the result
// with columns in key order.
func (w *Worker) InsertFromMaps(ctx context.Context, table string, maps ...map[string]any) (*database.Result, error) {
	w.EnsureKnown(ctx, table)
	st, err := w.builder.InsertFromMaps(table, maps...)
	if err != nil {
		return w.failInsert(ctx, table, err)
	}
	return w.run(ctx, st)
}

func (w *Worker) failInsert(ctx context.Context, table string, err error) (*database.Result, error) {
	if err := w.fail(ctx, "insert failed", err, logger.Fields{"table": table}); err != nil {
		return nil, err
	}
	return emptyResult(), nil
}

// InsertSlice inserts vs as one row.
func InsertSlice[T any](ctx context.Context, w *Worker, table string, vs []T) (*database.Result, error) {
	return w.Insert(ctx, table, statement.Values(vs)...)
}

// InsertTimed inserts tp followed by vs as one row. tp is rendered as an
// ISO-8601 literal in literal mode.
func InsertTimed[T any](ctx context.Context, w *Worker, table string, tp time.Time, vs []T) (*database.Result, error) {
	return w.Insert(ctx, table, statement.TimedValues(tp, vs)...)
}

// Clear truncates table and everything referencing it. The table does not
// need to be known.
func (w *Worker) Clear(ctx context.Context, table string) (*database.Result, error) {
	return w.Execute(ctx, statement.Clear(table))
}

// --- output ---

// Print writes res as a fixed-width table to the worker's output.
func (w *Worker) Print(ctx context.Context, res *database.Result) error {
	if err := w.formatter.Write(ctx, w.out, res); err != nil {
		return w.fail(ctx, "print failed", err, nil)
	}
	return nil
}

// PrintTable prints the first rows of table.
func (w *Worker) PrintTable(ctx context.Context, table string) error {
	res, err := w.SelectAllColumns(ctx, table, "")
	if err != nil {
		return err
	}
	return w.Print(ctx, res)
}
