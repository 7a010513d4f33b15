package core

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/corebit/squill/internal/logger"
)

const healthProbeTimeout = 5 * time.Second

// healthChecker pings the database on an interval and records the result.
// Transitions between healthy and unhealthy are logged once, not every tick.
type healthChecker struct {
	db       *sql.DB
	log      logger.Logger
	interval time.Duration
	ok       atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newHealthChecker(db *sql.DB, log logger.Logger, interval time.Duration) *healthChecker {
	hc := &healthChecker{
		db:       db,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	hc.ok.Store(true)
	return hc
}

func (hc *healthChecker) start() {
	go hc.run()
}

func (hc *healthChecker) run() {
	defer close(hc.doneCh)
	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.probe()
	for {
		select {
		case <-hc.stopCh:
			return
		case <-ticker.C:
			hc.probe()
		}
	}
}

func (hc *healthChecker) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	err := hc.db.PingContext(ctx)
	healthy := err == nil
	prev := hc.ok.Swap(healthy)
	if healthy == prev {
		return
	}
	if healthy {
		hc.log.Info("database connection recovered")
	} else {
		hc.log.Warn("database connection unhealthy", "error", err)
	}
}

func (hc *healthChecker) healthy() bool {
	return hc.ok.Load()
}

func (hc *healthChecker) stop() {
	close(hc.stopCh)
	<-hc.doneCh
}
