// Package dbtest provides a scripted database.Conn for tests.
//
// Statements are matched by prefix, longest prefix first. The pg_type and
// primary-key catalog lookups are answered from an in-memory catalog so that
// tests only describe tables, not catalog SQL.
package dbtest

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
)

const (
	typeQueryPrefix = "SELECT t.typname FROM pg_type"
	pkQueryPrefix   = "SELECT c.column_name, c.data_type"
)

// Common type oids.
const (
	Int4        = pgtype.Int4OID
	Int8        = pgtype.Int8OID
	Text        = pgtype.TextOID
	Bool        = pgtype.BoolOID
	Float8      = pgtype.Float8OID
	Timestamp   = pgtype.TimestampOID
	Timestamptz = pgtype.TimestamptzOID
)

// Statement is one recorded call.
type Statement struct {
	SQL  string
	Args []any
}

// Handler answers a matched statement.
type Handler func(args []any) (*database.Result, error)

// Conn is a scripted, in-memory database.Conn.
type Conn struct {
	mu       sync.Mutex
	handlers map[string]Handler
	types    *pgtype.Map
	pks      map[[2]string]string
	executed []Statement
	closed   bool
}

// New returns an empty Conn. Unmatched statements succeed with no rows.
func New() *Conn {
	c := &Conn{
		handlers: make(map[string]Handler),
		types:    pgtype.NewMap(),
		pks:      make(map[[2]string]string),
	}
	c.handlers[typeQueryPrefix] = c.lookupType
	c.handlers[pkQueryPrefix] = c.lookupPrimaryKey
	return c
}

// On answers statements starting with prefix with res.
func (c *Conn) On(prefix string, res *database.Result) *Conn {
	return c.Handle(prefix, func([]any) (*database.Result, error) { return res, nil })
}

// Fail makes statements starting with prefix return err.
func (c *Conn) Fail(prefix string, err error) *Conn {
	return c.Handle(prefix, func([]any) (*database.Result, error) { return nil, err })
}

// Handle registers h for statements starting with prefix.
func (c *Conn) Handle(prefix string, h Handler) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[prefix] = h
	return c
}

// Table describes a live table: "SELECT * FROM <schema>.<table> LIMIT 0"
// reports fields, and the primary-key lookup reports pk ("" for none).
func (c *Conn) Table(qualified, pk string, fields ...database.Field) *Conn {
	schema, table := "", qualified
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		schema, table = qualified[:i], qualified[i+1:]
		if j := strings.IndexByte(table, '.'); j >= 0 {
			table = table[:j]
		}
	}

	c.mu.Lock()
	if pk != "" {
		c.pks[[2]string{schema, table}] = pk
	}
	c.mu.Unlock()

	return c.On("SELECT * FROM "+qualified+" LIMIT 0", &database.Result{Fields: fields})
}

// Executed returns every statement run so far.
func (c *Conn) Executed() []Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Statement(nil), c.executed...)
}

// Count returns how many executed statements start with prefix.
func (c *Conn) Count(prefix string) int {
	n := 0
	for _, s := range c.Executed() {
		if strings.HasPrefix(s.SQL, prefix) {
			n++
		}
	}
	return n
}

// Last returns the most recent statement.
func (c *Conn) Last() Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.executed) == 0 {
		return Statement{}
	}
	return c.executed[len(c.executed)-1]
}

// Reset forgets recorded statements.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executed = nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// --- database.Conn implementation ---

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "query failed", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errs.New(errs.ErrKindConnectionFailed, "connection is closed")
	}
	c.executed = append(c.executed, Statement{SQL: sql, Args: args})
	h := c.match(sql)
	c.mu.Unlock()

	if h == nil {
		return &database.Result{Rows: [][]any{}}, nil
	}
	return h(args)
}

func (c *Conn) QueryOne(ctx context.Context, sql string, args ...any) (*database.Row, error) {
	res, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return database.ExpectOne(res)
}

func (c *Conn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// match returns the handler with the longest prefix of sql. Caller holds mu.
func (c *Conn) match(sql string) Handler {
	var best string
	var h Handler
	for prefix, candidate := range c.handlers {
		if strings.HasPrefix(sql, prefix) && len(prefix) >= len(best) {
			best, h = prefix, candidate
		}
	}
	return h
}

// --- catalog ---

func (c *Conn) lookupType(args []any) (*database.Result, error) {
	res := &database.Result{Fields: []database.Field{{Name: "typname", TypeOID: pgtype.NameOID}}}
	if len(args) != 1 {
		return res, nil
	}
	oid, ok := args[0].(uint32)
	if !ok {
		return res, nil
	}
	if t, ok := c.types.TypeForOID(oid); ok {
		res.Rows = [][]any{{t.Name}}
	}
	return res, nil
}

func (c *Conn) lookupPrimaryKey(args []any) (*database.Result, error) {
	res := &database.Result{Fields: []database.Field{
		{Name: "column_name", TypeOID: pgtype.NameOID},
		{Name: "data_type", TypeOID: pgtype.VarcharOID},
	}}
	if len(args) != 2 {
		return res, nil
	}
	schema, _ := args[0].(string)
	table, _ := args[1].(string)

	c.mu.Lock()
	pk, ok := c.pks[[2]string{schema, table}]
	c.mu.Unlock()
	if ok {
		res.Rows = [][]any{{pk, ""}}
	}
	return res, nil
}
