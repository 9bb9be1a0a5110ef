package worker

import (
	"context"

	"github.com/koustreak/pgi/internal/config"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/snapshot"
)

// Snapshot renders the loaded configuration with the known tables and all
// cached metadata merged in. The result loads back as a pre-warmed cache.
func (w *Worker) Snapshot() ([]byte, error) {
	cache := w.intro.Cache()
	return config.Export(w.cfg, cache.Known(), cache.Entries())
}

// PersistCache writes Snapshot to target, a file path or s3://bucket/key.
func (w *Worker) PersistCache(ctx context.Context, target string) error {
	fields := logger.Fields{"target": target}

	var bucket string
	if w.cfg.ObjectStore != nil {
		bucket = w.cfg.ObjectStore.Bucket
	}
	t, err := snapshot.ParseTarget(target, bucket)
	if err != nil {
		return w.fail(ctx, "persist failed", err, fields)
	}

	data, err := w.Snapshot()
	if err != nil {
		return w.fail(ctx, "persist failed", err, fields)
	}
	if err := snapshot.Write(ctx, w.store, t, data); err != nil {
		return w.fail(ctx, "persist failed", err, fields)
	}

	logger.FromContext(ctx, w.log).InfoWith("schema cache persisted", logger.Fields{
		"target": t.String(),
		"tables": w.intro.Cache().Len(),
		"bytes":  len(data),
	})
	return nil
}
