// Package schema discovers and caches the shape of PostgreSQL tables:
// column names in physical order, their pg_type names, and the primary key.
//
// Metadata is discovered lazily. The first reference to an unknown table
// appends it to the known list and re-introspects every known table.
// Failures never reach the caller of EnsureKnown; they are logged and the
// table stays absent so the next access retries from scratch.
package schema

import "context"

// TypeResolver maps a type oid to its pg_type name.
type TypeResolver interface {
	ResolveTypeName(ctx context.Context, oid uint32) (string, error)
}
