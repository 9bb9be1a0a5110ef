package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/logger"
)

const primaryKeyQuery = `SELECT c.column_name, c.data_type
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage AS ccu
			USING (constraint_schema, constraint_name)
		JOIN information_schema.columns AS c
			ON c.table_schema = tc.table_schema
			AND c.table_name  = tc.table_name
			AND c.column_name = ccu.column_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema    = $1
		  AND tc.table_name      = $2
		ORDER BY c.ordinal_position`

// Introspector fills a Cache from the live database.
type Introspector struct {
	conn  database.Conn
	types TypeResolver
	cache *Cache
	log   *logger.Logger
}

// NewIntrospector returns an Introspector writing into cache. conn may be
// nil when the connection could not be opened; every introspection then
// fails with ErrKindConnectionFailed.
func NewIntrospector(conn database.Conn, types TypeResolver, cache *Cache, log *logger.Logger) *Introspector {
	if log == nil {
		log = logger.Global()
	}
	return &Introspector{conn: conn, types: types, cache: cache, log: log}
}

// Cache returns the cache the introspector writes to.
func (i *Introspector) Cache() *Cache {
	return i.cache
}

// EnsureKnown makes sure table has metadata. A cached table returns at once
// without touching the database. Otherwise table is appended to the known
// list and every known table is introspected again.
func (i *Introspector) EnsureKnown(ctx context.Context, table string) {
	if i.cache.Has(table) {
		return
	}
	i.cache.AddKnown(table)
	i.ExploreAll(ctx)
}

// ExploreAll introspects every known table, logging failures.
func (i *Introspector) ExploreAll(ctx context.Context) {
	for _, table := range i.cache.Known() {
		i.explore(ctx, table)
	}
}

// ExploreMissing introspects known tables that have no metadata yet.
func (i *Introspector) ExploreMissing(ctx context.Context) {
	for _, table := range i.cache.Known() {
		if !i.cache.Has(table) {
			i.explore(ctx, table)
		}
	}
}

func (i *Introspector) explore(ctx context.Context, table string) {
	if err := i.Introspect(ctx, table); err != nil {
		logger.FromContext(ctx, i.log).ErrorWith("introspection failed", err, logger.Fields{
			"table": table,
			"kind":  errs.KindOf(err).String(),
		})
	}
}

// Introspect discovers table and stores its metadata. On error nothing is
// stored, so a table is never cached with partial columns.
func (i *Introspector) Introspect(ctx context.Context, table string) error {
	m, err := i.Inspect(ctx, table)
	if err != nil {
		return err
	}
	i.cache.Put(table, *m)
	logger.FromContext(ctx, i.log).With().
		Str("table", table).
		Int("columns", len(m.Columns)).
		Str("primary_key", m.PrimaryKey).
		Logger().
		Debug("table introspected")
	return nil
}

// Inspect queries the metadata of table without caching it.
func (i *Introspector) Inspect(ctx context.Context, table string) (*TableMetadata, error) {
	if table == "" {
		return nil, errs.New(errs.ErrKindIntrospection, "empty table name")
	}
	if i.conn == nil {
		return nil, errs.New(errs.ErrKindConnectionFailed, "not connected")
	}

	schema, bare := SplitQualified(table)
	m := &TableMetadata{Schema: schema, Table: bare}

	// LIMIT 0 returns the field descriptions without reading any row.
	res, err := i.conn.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIntrospection, fmt.Sprintf("read columns of %s", table), err)
	}

	m.Columns = make(Columns, 0, len(res.Fields))
	for _, f := range res.Fields {
		typ, err := i.types.ResolveTypeName(ctx, f.TypeOID)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindIntrospection, fmt.Sprintf("resolve type of %s.%s", table, f.Name), err)
		}
		m.Columns = append(m.Columns, Column{Name: f.Name, Type: typ})
	}

	pk, err := i.conn.Query(ctx, primaryKeyQuery, schema, bare)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIntrospection, fmt.Sprintf("read primary key of %s", table), err)
	}
	// Composite keys are not supported: the first key column in table order wins.
	m.PrimaryKey = NoPrimaryKey
	if pk.Len() > 0 {
		m.PrimaryKey = pk.Row(0).String(0)
	}

	return m, nil
}
