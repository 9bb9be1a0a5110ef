// Package worker is the data-access façade: it owns one connection and the
// schema cache, introspects tables lazily and executes the statements built
// by package statement.
//
// Usage:
//
//	cfg, err := config.Load("pgi.yaml")
//	if err != nil { ... }
//	w, err := worker.New(ctx, cfg, worker.Options{})
//	if err != nil { ... }
//	defer w.Close(ctx)
//
//	w.Insert(ctx, "public.events", "foo", time.Now())
//	res, _ := w.SelectAllColumns(ctx, "public.events", "")
//	w.Print(ctx, res)
//
// A Worker is not safe for concurrent use.
package worker

import (
	"context"
	"io"
	"os"

	"github.com/koustreak/pgi/internal/config"
	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/database/postgres"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/filestore"
	"github.com/koustreak/pgi/internal/filestore/minio"
	"github.com/koustreak/pgi/internal/format"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/schema"
	"github.com/koustreak/pgi/internal/statement"
)

// Policy decides what a failed operation returns.
type Policy int

const (
	// PolicyLenient logs the failure and returns an empty result with a
	// nil error.
	PolicyLenient Policy = iota

	// PolicyStrict logs the failure and returns the kinded error.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "lenient"
}

// Options tune a Worker. The zero value connects with the PostgreSQL
// driver, logs to the global logger and prints to stdout.
type Options struct {
	// Policy applies when the configuration does not set strict: true.
	Policy Policy

	// Opener opens the connection. Defaults to postgres.Open.
	Opener database.Opener

	// Store receives s3:// snapshots. When nil and the configuration has an
	// object_store section, a MinIO store is opened and owned by the worker.
	Store filestore.Store

	// SnapshotPath, when set, is persisted right after startup exploration.
	SnapshotPath string

	// TypeCacheSize bounds the oid memo; 0 means schema.DefaultTypeCacheSize.
	TypeCacheSize int

	Logger *logger.Logger
	Output io.Writer
}

// Worker is the façade over one connection and its schema cache.
type Worker struct {
	cfg       *config.Config
	conn      database.Conn
	types     *schema.TypeNameResolver
	intro     *schema.Introspector
	builder   *statement.Builder
	formatter *format.Formatter
	store     filestore.Store
	ownsStore bool
	policy    Policy
	log       *logger.Logger
	out       io.Writer
}

// New connects, seeds the schema cache from cfg and introspects every
// declared table that has no details yet.
//
// A failed connection is logged and leaves the worker unconnected; every
// later database operation then fails. Under PolicyStrict, New returns the
// connection or startup snapshot error together with the worker.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Worker, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "configuration is required")
	}

	w := &Worker{
		cfg:    cfg,
		policy: opts.Policy,
		log:    opts.Logger,
		out:    opts.Output,
		store:  opts.Store,
	}
	if cfg.Strict {
		w.policy = PolicyStrict
	}
	if w.log == nil {
		w.log = logger.Global()
	}
	if w.out == nil {
		w.out = os.Stdout
	}

	mode, err := statement.ParseMode(cfg.StatementMode)
	if err != nil {
		w.log.WarnWith("falling back to parameterized statements", err, nil)
	}
	w.builder = statement.New(mode)

	var startErr error
	if err := w.connect(ctx, opts.Opener); err != nil {
		startErr = err
	}
	w.openStore(ctx)

	size := opts.TypeCacheSize
	if size == 0 {
		size = schema.DefaultTypeCacheSize
	}
	w.types = schema.NewTypeNameResolver(w.conn, size)
	w.formatter = format.New(w.types, cfg.FieldLengthMapping)

	cache := schema.NewCache(cfg.Tables...)
	for _, e := range cfg.TablesDetails {
		cache.Put(e.Name, e.Metadata)
	}
	w.intro = schema.NewIntrospector(w.conn, w.types, cache, w.log)
	w.intro.ExploreMissing(ctx)

	w.log.With().
		Int("tables", cache.Len()).
		Str("policy", w.policy.String()).
		Str("statement_mode", mode.String()).
		Logger().
		Info("worker ready")

	if opts.SnapshotPath != "" {
		if err := w.PersistCache(ctx, opts.SnapshotPath); err != nil && startErr == nil {
			startErr = err
		}
	}
	return w, startErr
}

func (w *Worker) connect(ctx context.Context, open database.Opener) error {
	if open == nil {
		open = postgres.Open
	}
	conn, err := open(ctx, database.DefaultConfig(w.cfg.Connection))
	if err != nil {
		w.conn = nil
		return w.fail(ctx, "connect failed", err, nil)
	}
	w.conn = conn
	return nil
}

// openStore opens the configured object store unless one was supplied.
// Failures are logged; s3:// snapshots then fail on use.
func (w *Worker) openStore(ctx context.Context) {
	if w.store != nil || w.cfg.ObjectStore == nil {
		return
	}
	store, err := minio.New(ctx, w.cfg.ObjectStore.FileStore())
	if err != nil {
		w.log.ErrorWith("object store unavailable", err, logger.Fields{
			"endpoint": w.cfg.ObjectStore.Endpoint,
			"kind":     errs.KindOf(err).String(),
		})
		return
	}
	w.store, w.ownsStore = store, true
}

// Close releases the connection and any object store the worker opened.
func (w *Worker) Close(ctx context.Context) error {
	var first error
	if w.conn != nil {
		first = w.conn.Close(ctx)
		w.conn = nil
	}
	if w.ownsStore {
		if err := w.store.Close(); err != nil && first == nil {
			first = err
		}
		w.store, w.ownsStore = nil, false
	}
	return first
}

// Connected reports whether the worker holds a connection.
func (w *Worker) Connected() bool {
	return w.conn != nil
}

// Policy returns the active error policy.
func (w *Worker) Policy() Policy {
	return w.policy
}

// fail logs err, to the request logger when ctx carries one, and converts
// it according to the policy.
func (w *Worker) fail(ctx context.Context, msg string, err error, fields logger.Fields) error {
	if fields == nil {
		fields = make(logger.Fields, 1)
	}
	fields["kind"] = errs.KindOf(err).String()
	logger.FromContext(ctx, w.log).ErrorWith(msg, err, fields)
	if w.policy == PolicyStrict {
		return err
	}
	return nil
}
