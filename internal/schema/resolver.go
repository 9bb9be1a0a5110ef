package schema

import (
	"context"
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
)

const typeNameQuery = `SELECT t.typname FROM pg_type t WHERE t.oid = $1`

// DefaultTypeCacheSize bounds the oid → name memo.
const DefaultTypeCacheSize = 512

// TypeNameResolver resolves type oids through the pg_type catalog and
// memoizes successful lookups. Oids are immutable for the lifetime of a
// database, so entries never expire.
type TypeNameResolver struct {
	conn  database.Conn
	names *lru.Cache
}

// NewTypeNameResolver returns a resolver over conn. size <= 0 disables the
// memo and every call hits the catalog.
func NewTypeNameResolver(conn database.Conn, size int) *TypeNameResolver {
	r := &TypeNameResolver{conn: conn}
	if size > 0 {
		r.names = lru.New(size)
	}
	return r
}

// ResolveTypeName returns the pg_type name of oid.
// Unknown oids are ErrKindNotFound.
func (r *TypeNameResolver) ResolveTypeName(ctx context.Context, oid uint32) (string, error) {
	if r.names != nil {
		if v, ok := r.names.Get(oid); ok {
			return v.(string), nil
		}
	}
	if r.conn == nil {
		return "", errs.New(errs.ErrKindConnectionFailed, "not connected")
	}

	row, err := r.conn.QueryOne(ctx, typeNameQuery, oid)
	if err != nil {
		if errs.IsCardinality(err) {
			return "", errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("unknown type oid %d", oid), err)
		}
		return "", err
	}

	name := row.String(0)
	if r.names != nil {
		r.names.Add(oid, name)
	}
	return name, nil
}
