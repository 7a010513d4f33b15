package core

import (
	"context"
	"time"
)

// QueryEvent describes one executed statement, delivered to the configured
// QueryHook after execution completes. Params are already masked by the
// sanitizer.
type QueryEvent struct {
	SQL          string
	Params       []any
	Duration     time.Duration
	RowsAffected int64
	Err          error
	Operation    string
	Database     string
}

// QueryHook observes executed statements, e.g. to feed a metrics pipeline.
// Hooks run synchronously on the calling goroutine; keep them fast.
type QueryHook func(ctx context.Context, event QueryEvent)

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook == nil {
		return
	}
	db.queryHook(ctx, event)
}
