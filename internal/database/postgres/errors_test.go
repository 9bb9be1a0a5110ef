package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"canceled wrapped", fmt.Errorf("read: %w", context.Canceled), errs.ErrKindTimeout},
		{"no rows", pgx.ErrNoRows, errs.ErrKindNotFound},
		{"undefined table", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, errs.ErrKindQueryFailed},
		{"syntax", &pgconn.PgError{Code: "42601", Message: "syntax error"}, errs.ErrKindQueryFailed},
		{"connection class", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnectionFailed},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, errs.ErrKindConnectionFailed},
		{"privileges", &pgconn.PgError{Code: "42501"}, errs.ErrKindPermissionDenied},
		{"bad password", &pgconn.PgError{Code: "28P01"}, errs.ErrKindPermissionDenied},
		{"canceled statement", &pgconn.PgError{Code: "57014"}, errs.ErrKindTimeout},
		{"bad literal", &pgconn.PgError{Code: "22P02"}, errs.ErrKindInvalidInput},
		{"tx closed", pgx.ErrTxClosed, errs.ErrKindConnectionFailed},
		{"client side", errors.New("unable to encode"), errs.ErrKindQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, mapError(nil, "op"))
}

func TestMapError_IncludesServerMessage(t *testing.T) {
	got := mapError(&pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`}, "query failed")
	assert.Equal(t, `query failed: relation "x" does not exist`, got.Message)
}

func TestNew_InvalidParams(t *testing.T) {
	cfg := database.DefaultConfig(database.Params{{Key: "port", Value: "not-a-port"}})

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}
