// Package eventstore records build history as an append-only event log in
// SQLite and projects it into per-build summaries.
package eventstore

import (
	"context"
	"time"
)

// Store is the append-only build log.
type Store interface {
	// Append persists rec and fills in Seq. A zero At is stamped with the
	// current time.
	Append(ctx context.Context, rec *Record) error

	// ByBuild returns the records of one build in append order.
	ByBuild(ctx context.Context, buildID string) ([]*Record, error)

	// Since returns every record at or after from, in append order.
	Since(ctx context.Context, from time.Time) ([]*Record, error)

	Close() error
}
