// Package store persists job definitions. The file driver keeps one JSON
// document per job inside a directory; the sqlite driver keeps jobs and a
// durable audit trail in a single database file.
//
// The store is the authoritative copy across restarts; the scheduler's cache
// is a transient mirror of it.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"tickwork/internal/job"
	"tickwork/pkg/logx"
)

// Store is the durable CRUD contract consumed by the scheduler.
//
// Get returns (nil, nil) for an unknown id; Delete on an unknown id is a
// success. Implementations must return jobs the caller owns outright.
type Store interface {
	Save(ctx context.Context, j *job.CronJob) error
	Get(ctx context.Context, id string) (*job.CronJob, error)
	List(ctx context.Context) ([]*job.CronJob, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config configures persistence.
//
// Driver values:
//   - "file" (default): one JSON document per job under Path
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver " + strings.TrimSpace(cfg.Driver))
	}
}
