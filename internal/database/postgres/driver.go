// Package postgres implements database.Conn on a single pgx connection.
//
// Usage:
//
//	cfg := database.DefaultConfig(params)
//	conn, err := postgres.Open(ctx, cfg)
//	if err != nil { ... }
//	defer conn.Close(ctx)
//
//	res, err := conn.Query(ctx, "SELECT * FROM public.events LIMIT 0")
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
)

// Driver is a PostgreSQL implementation of database.Conn backed by one
// pgx.Conn. It is not safe for concurrent use.
type Driver struct {
	conn *pgx.Conn
}

// Open connects to PostgreSQL with cfg.Params flattened into a
// "k=v k=v" connection string.
func Open(ctx context.Context, cfg *database.Config) (database.Conn, error) {
	d, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// New is Open returning the concrete type.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	connCfg, err := pgx.ParseConfig(cfg.Params.ConnString())
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid connection parameters", err)
	}
	if cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to connect", err)
	}
	return &Driver{conn: conn}, nil
}

// --- database.Conn implementation ---

// Query runs sql inside its own transaction and returns every row.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	if d.conn.IsClosed() {
		return nil, errs.New(errs.ErrKindConnectionFailed, "connection is closed")
	}

	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return nil, mapError(err, "failed to begin transaction")
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, sql, queryArgs(args)...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}

	res, err := collect(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapError(err, "commit failed")
	}
	return res, nil
}

// QueryOne is Query restricted to exactly one result row.
func (d *Driver) QueryOne(ctx context.Context, sql string, args ...any) (*database.Row, error) {
	res, err := d.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return database.ExpectOne(res)
}

// Close terminates the connection.
func (d *Driver) Close(ctx context.Context) error {
	if err := d.conn.Close(ctx); err != nil {
		return mapError(err, "close failed")
	}
	return nil
}

// queryArgs sends statements without arguments, such as literal-mode
// inserts, through the exec protocol so they are not prepared and cached.
func queryArgs(args []any) []any {
	if len(args) == 0 {
		return []any{pgx.QueryExecModeExec}
	}
	return args
}

// collect drains rows. Field descriptions are available even when the
// statement returns no rows, which is what LIMIT 0 introspection relies on.
func collect(rows pgx.Rows) (*database.Result, error) {
	defer rows.Close()

	descs := rows.FieldDescriptions()
	res := &database.Result{
		Fields: make([]database.Field, len(descs)),
		Rows:   make([][]any, 0),
	}
	for i, fd := range descs {
		res.Fields[i] = database.Field{Name: fd.Name, TypeOID: fd.DataTypeOID}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, mapError(err, "failed to decode row")
		}
		for i, v := range values {
			values[i] = database.Plain(v)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error during row iteration")
	}
	return res, nil
}
