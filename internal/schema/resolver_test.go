package schema

import (
	"context"
	"testing"

	"github.com/koustreak/pgi/internal/database/dbtest"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeNameResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.New()
	r := NewTypeNameResolver(conn, DefaultTypeCacheSize)

	name, err := r.ResolveTypeName(ctx, dbtest.Int4)
	require.NoError(t, err)
	assert.Equal(t, "int4", name)

	name, err = r.ResolveTypeName(ctx, dbtest.Timestamptz)
	require.NoError(t, err)
	assert.Equal(t, "timestamptz", name)
}

func TestTypeNameResolver_Memoizes(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.New()
	r := NewTypeNameResolver(conn, DefaultTypeCacheSize)

	for i := 0; i < 3; i++ {
		_, err := r.ResolveTypeName(ctx, dbtest.Text)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, conn.Count("SELECT t.typname"))
}

func TestTypeNameResolver_NoMemo(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.New()
	r := NewTypeNameResolver(conn, 0)

	for i := 0; i < 3; i++ {
		_, err := r.ResolveTypeName(ctx, dbtest.Text)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, conn.Count("SELECT t.typname"))
}

func TestTypeNameResolver_UnknownOID(t *testing.T) {
	r := NewTypeNameResolver(dbtest.New(), DefaultTypeCacheSize)

	_, err := r.ResolveTypeName(context.Background(), 4_000_000_000)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestTypeNameResolver_QueryFailure(t *testing.T) {
	conn := dbtest.New().Fail("SELECT t.typname FROM pg_type", errs.New(errs.ErrKindConnectionFailed, "gone"))
	r := NewTypeNameResolver(conn, DefaultTypeCacheSize)

	_, err := r.ResolveTypeName(context.Background(), dbtest.Int4)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestTypeNameResolver_NotConnected(t *testing.T) {
	_, err := NewTypeNameResolver(nil, 0).ResolveTypeName(context.Background(), dbtest.Int4)
	assert.True(t, errs.IsConnectionFailed(err))
}
