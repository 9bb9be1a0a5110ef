package database

import "context"

// Conn is the contract the worker needs from a database connection.
// Every call runs exactly one statement in its own implicit transaction
// (begin, execute, commit) and fully materialises the result before the
// transaction ends.
//
// Implementations are not required to be safe for concurrent use.
type Conn interface {
	// Query executes sql and returns all rows.
	Query(ctx context.Context, sql string, args ...any) (*Result, error)

	// QueryOne executes sql and expects exactly one row.
	// Zero or several rows yield an errs.ErrKindCardinality error.
	QueryOne(ctx context.Context, sql string, args ...any) (*Row, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Opener opens a Conn using cfg.Params.ConnString().
type Opener func(ctx context.Context, cfg *Config) (Conn, error)
