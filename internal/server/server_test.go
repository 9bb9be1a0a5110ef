package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koustreak/pgi/internal/config"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/database/dbtest"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `connection:
  host: localhost
tables:
  - public.events
`

func newTestServer(t *testing.T, policy worker.Policy) (http.Handler, *dbtest.Conn) {
	t.Helper()
	conn := dbtest.New().
		Table("public.events", "id",
			database.Field{Name: "id", TypeOID: dbtest.Int4},
			database.Field{Name: "name", TypeOID: dbtest.Text},
		).
		On("SELECT * FROM public.events LIMIT 100", &database.Result{
			Fields: []database.Field{{Name: "id", TypeOID: dbtest.Int4}, {Name: "name", TypeOID: dbtest.Text}},
			Rows:   [][]any{{int32(1), "foo"}},
		}).
		Fail("SELECT * FROM public.gone", errs.New(errs.ErrKindQueryFailed, "relation does not exist"))

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	w, err := worker.New(context.Background(), cfg, worker.Options{
		Policy: policy,
		Logger: logger.Nop(),
		Opener: func(context.Context, *database.Config) (database.Conn, error) { return conn, nil },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close(context.Background()) })

	return New(w, logger.Nop()).Routes(), conn
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestTables(t *testing.T) {
	h, _ := newTestServer(t, worker.PolicyLenient)

	rec := do(t, h, http.MethodGet, "/tables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string][]string{"tables": {"public.events"}}, decode[map[string][]string](t, rec))
}

func TestTable(t *testing.T) {
	h, _ := newTestServer(t, worker.PolicyLenient)

	rec := do(t, h, http.MethodGet, "/tables/public.events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[tableResponse](t, rec)
	assert.Equal(t, "public", got.Schema)
	assert.Equal(t, "events", got.Table)
	assert.Equal(t, []columnResponse{{"id", "int4"}, {"name", "text"}}, got.Columns)
	assert.Equal(t, "id", got.PrimaryKey)
	assert.Equal(t, []string{"name"}, got.InsertColumns)

	rec = do(t, h, http.MethodGet, "/tables/public.gone", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, rec).Kind)
}

func TestSelectRows(t *testing.T) {
	h, conn := newTestServer(t, worker.PolicyLenient)

	rec := do(t, h, http.MethodGet, "/tables/public.events/rows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[rowsResponse](t, rec)
	assert.Equal(t, []string{"id", "name"}, got.Columns)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "foo", got.Rows[0]["name"])

	rec = do(t, h, http.MethodGet, "/tables/public.events/rows?fields=id,%20name&where=id%3E1&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SELECT id, name FROM public.events WHERE id>1 LIMIT 5", conn.Last().SQL)
	assert.Equal(t, 0, decode[rowsResponse](t, rec).Count)

	rec = do(t, h, http.MethodGet, "/tables/public.events/rows?limit=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SELECT * FROM public.events LIMIT 0", conn.Last().SQL)

	rec = do(t, h, http.MethodGet, "/tables/public.events/rows?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsertRows(t *testing.T) {
	h, conn := newTestServer(t, worker.PolicyLenient)

	rec := do(t, h, http.MethodPost, "/tables/public.events/rows", []byte(`["foo"]`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "INSERT INTO public.events(name) VALUES($1)", conn.Last().SQL)
	assert.Equal(t, []any{"foo"}, conn.Last().Args)

	rec = do(t, h, http.MethodPost, "/tables/public.events/rows", []byte(`{"name": "bar", "id": 9}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "INSERT INTO public.events (id, name) VALUES ($1, $2)", conn.Last().SQL)

	rec = do(t, h, http.MethodPost, "/tables/public.events/rows", []byte(`"foo"`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/tables/public.events/rows", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsertRows_Strict(t *testing.T) {
	h, _ := newTestServer(t, worker.PolicyStrict)

	rec := do(t, h, http.MethodPost, "/tables/public.gone/rows", []byte(`[1]`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "introspection", decode[errorResponse](t, rec).Kind)

	rec = do(t, h, http.MethodPost, "/tables/public.events/rows", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearRows(t *testing.T) {
	h, conn := newTestServer(t, worker.PolicyLenient)

	rec := do(t, h, http.MethodDelete, "/tables/public.events/rows", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "TRUNCATE public.events CASCADE", conn.Last().SQL)
}

func TestSnapshot(t *testing.T) {
	h, _ := newTestServer(t, worker.PolicyLenient)

	rec := do(t, h, http.MethodGet, "/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	cfg, err := config.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, cfg.TablesDetails, 1)
	assert.Equal(t, "public.events", cfg.TablesDetails[0].Name)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind errs.ErrKind
		want int
	}{
		{errs.ErrKindNotFound, http.StatusNotFound},
		{errs.ErrKindInvalidInput, http.StatusBadRequest},
		{errs.ErrKindQueryFailed, http.StatusUnprocessableEntity},
		{errs.ErrKindConnectionFailed, http.StatusServiceUnavailable},
		{errs.ErrKindTimeout, http.StatusGatewayTimeout},
		{errs.ErrKindPermissionDenied, http.StatusForbidden},
		{errs.ErrKindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}
