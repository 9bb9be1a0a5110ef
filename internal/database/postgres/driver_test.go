package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestQueryArgs(t *testing.T) {
	t.Run("no arguments use the exec protocol", func(t *testing.T) {
		assert.Equal(t, []any{pgx.QueryExecModeExec}, queryArgs(nil))
		assert.Equal(t, []any{pgx.QueryExecModeExec}, queryArgs([]any{}))
	})

	t.Run("arguments pass through", func(t *testing.T) {
		args := []any{"foo", 3}
		assert.Equal(t, args, queryArgs(args))
	})
}
