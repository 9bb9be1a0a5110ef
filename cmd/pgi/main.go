// Command pgi loads a configuration document, connects to PostgreSQL,
// introspects the declared tables and optionally prints a table, writes a
// schema snapshot or serves the HTTP API.
//
//	pgi -config pgi.yaml -out snapshot.yaml
//	pgi -config pgi.yaml -print public.events
//	pgi -config pgi.yaml -serve :8080
//	pgi -config s3://snapshots/pgi.yaml -s3-endpoint localhost:9000 -print public.events
//
// The -s3-* flags default to PGI_S3_ENDPOINT, PGI_S3_ACCESS_KEY and
// PGI_S3_SECRET_KEY.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koustreak/pgi/internal/config"
	"github.com/koustreak/pgi/internal/filestore"
	"github.com/koustreak/pgi/internal/filestore/minio"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/server"
	"github.com/koustreak/pgi/internal/worker"
)

var (
	configPath = flag.String("config", "pgi.yaml", "YAML configuration document. A file path or s3://bucket/key.")
	out        = flag.String("out", "", "Write the schema snapshot here after startup. A file path or s3://bucket/key.")
	printTable = flag.String("print", "", "Print the first rows of this qualified table.")
	serve      = flag.String("serve", "", "Serve the HTTP API on this address, e.g. :8080.")
	strict     = flag.Bool("strict", false, "Return errors instead of logging them and returning empty results.")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error). Overrides the configuration.")
	logFormat  = flag.String("log-format", "", "Log format (json, console). Overrides the configuration.")

	s3Endpoint  = flag.String("s3-endpoint", os.Getenv("PGI_S3_ENDPOINT"), "Object store host:port for an s3:// -config.")
	s3AccessKey = flag.String("s3-access-key", os.Getenv("PGI_S3_ACCESS_KEY"), "Object store access key.")
	s3SecretKey = flag.String("s3-secret-key", os.Getenv("PGI_S3_SECRET_KEY"), "Object store secret key.")
	s3SSL       = flag.Bool("s3-ssl", false, "Use TLS for the object store.")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pgi:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openConfigStore(ctx, *configPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	cfg, err := config.LoadTarget(ctx, store, *configPath)
	if err != nil {
		return err
	}
	if *strict {
		cfg.Strict = true
	}

	lc := cfg.Log.Logger()
	if *logLevel != "" {
		lc.Level = *logLevel
	}
	if *logFormat != "" {
		lc.Format = *logFormat
	}
	log := logger.New(lc)
	logger.SetGlobal(log)

	w, err := worker.New(ctx, cfg, worker.Options{
		Logger:       log,
		SnapshotPath: *out,
		Output:       os.Stdout,
		Store:        store,
	})
	if err != nil {
		if w != nil {
			_ = w.Close(context.Background())
		}
		return err
	}
	defer w.Close(context.Background())

	if *printTable != "" {
		if err := w.PrintTable(ctx, *printTable); err != nil {
			return err
		}
	}

	if *serve != "" {
		return server.Serve(ctx, *serve, server.New(w, log).Routes(), log)
	}
	return nil
}

// openConfigStore opens the object store holding an s3:// configuration.
// It returns nil for local paths.
func openConfigStore(ctx context.Context, target string) (filestore.Store, error) {
	if !strings.HasPrefix(target, "s3://") {
		return nil, nil
	}
	if *s3Endpoint == "" {
		return nil, fmt.Errorf("-config %s needs -s3-endpoint or PGI_S3_ENDPOINT", target)
	}
	fc := filestore.DefaultConfig(*s3Endpoint, *s3AccessKey, *s3SecretKey)
	fc.UseSSL = *s3SSL
	fc.DefaultBucket, _, _ = strings.Cut(strings.TrimPrefix(target, "s3://"), "/")
	store, err := minio.New(ctx, fc)
	if err != nil {
		return nil, err
	}
	return store, nil
}
