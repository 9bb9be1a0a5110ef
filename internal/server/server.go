// Package server exposes a Worker over HTTP.
//
//	GET    /tables                 known tables
//	GET    /tables/{table}         cached metadata, introspecting on miss
//	GET    /tables/{table}/rows    ?fields=a,b&where=x>1&limit=10
//	POST   /tables/{table}/rows    JSON array (positional) or object (by column)
//	DELETE /tables/{table}/rows    TRUNCATE ... CASCADE
//	GET    /snapshot               configuration with the schema cache merged in
//
// Requests are serialized: a Worker owns a single connection.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/schema"
	"github.com/koustreak/pgi/internal/statement"
	"github.com/koustreak/pgi/internal/worker"
)

// maxBody bounds insert request bodies.
const maxBody = 1 << 20

// Server serves one Worker.
type Server struct {
	mu  sync.Mutex
	w   *worker.Worker
	log *logger.Logger
}

// New returns a Server over w. log may be nil.
func New(w *worker.Worker, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	return &Server{w: w, log: log}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/tables", s.handleTables)
	r.Route("/tables/{table}", func(r chi.Router) {
		r.Get("/", s.handleTable)
		r.Get("/rows", s.handleSelect)
		r.Post("/rows", s.handleInsert)
		r.Delete("/rows", s.handleClear)
	})
	r.Get("/snapshot", s.handleSnapshot)
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))
		reqLog.RequestEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// --- handlers ---

type tableResponse struct {
	Name          string           `json:"name"`
	Schema        string           `json:"schema"`
	Table         string           `json:"table"`
	Columns       []columnResponse `json:"columns"`
	PrimaryKey    string           `json:"primary_key"`
	InsertColumns []string         `json:"insert_columns"`
}

type columnResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type rowsResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tables := s.w.Tables()
	s.mu.Unlock()
	respond(w, http.StatusOK, map[string][]string{"tables": tables})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")

	s.mu.Lock()
	s.w.EnsureKnown(r.Context(), name)
	m, ok := s.w.Metadata(name)
	s.mu.Unlock()

	if !ok {
		respondError(w, errs.Newf(errs.ErrKindNotFound, "table %s could not be introspected", name))
		return
	}
	respond(w, http.StatusOK, newTableResponse(name, m))
}

func newTableResponse(name string, m schema.TableMetadata) tableResponse {
	cols := make([]columnResponse, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = columnResponse{Name: c.Name, Type: c.Type}
	}
	return tableResponse{
		Name:          name,
		Schema:        m.Schema,
		Table:         m.Table,
		Columns:       cols,
		PrimaryKey:    m.PrimaryKey,
		InsertColumns: statement.ColumnsForInsert(m),
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	opts, err := selectOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}

	s.mu.Lock()
	res, err := s.w.Select(r.Context(), chi.URLParam(r, "table"), opts)
	s.mu.Unlock()
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newRowsResponse(res))
}

func selectOptions(r *http.Request) (statement.SelectOptions, error) {
	q := r.URL.Query()
	opts := statement.SelectOptions{Condition: q.Get("where")}
	for _, f := range strings.Split(q.Get("fields"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.Fields = append(opts.Fields, f)
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return opts, errs.Wrap(errs.ErrKindInvalidInput, "invalid limit", err)
		}
		opts.Limit = statement.Limit(n)
	}
	return opts, nil
}

func newRowsResponse(res *database.Result) rowsResponse {
	cols := res.Columns()
	if cols == nil {
		cols = []string{}
	}
	return rowsResponse{Columns: cols, Rows: res.Maps(), Count: res.Len()}
}

// handleInsert accepts a JSON array of positional values or a JSON object
// of column values.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		respondError(w, errs.Wrap(errs.ErrKindInvalidInput, "read body", err))
		return
	}
	if len(body) > maxBody {
		respondError(w, errs.New(errs.ErrKindInvalidInput, "request body too large"))
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, errs.Wrap(errs.ErrKindInvalidInput, "decode body", err))
		return
	}

	table := chi.URLParam(r, "table")
	s.mu.Lock()
	defer s.mu.Unlock()

	var res *database.Result
	switch v := payload.(type) {
	case []any:
		res, err = s.w.Insert(r.Context(), table, v...)
	case map[string]any:
		res, err = s.w.InsertFromMaps(r.Context(), table, v)
	default:
		err = errs.New(errs.ErrKindInvalidInput, "body must be a JSON array or object")
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, newRowsResponse(res))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, err := s.w.Clear(r.Context(), chi.URLParam(r, "table"))
	s.mu.Unlock()
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := s.w.Snapshot()
	s.mu.Unlock()
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- responses ---

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	respond(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: kind.String()})
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound, errs.ErrKindIntrospection:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindQueryFailed, errs.ErrKindCardinality:
		return http.StatusUnprocessableEntity
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Serve runs the API on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.With().Str("addr", addr).Logger().Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "serve "+addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
