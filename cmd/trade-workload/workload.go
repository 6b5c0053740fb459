package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	statsReportInterval = 10 * time.Second

	operationSetup  = "setup"
	operationSubmit = "submit"
	operationDrain  = "drain"
)

var errShutdownTimeout = errors.New("shutdown timeout exceeded")

// Workload runs a fixed number of workers. Each worker owns one session and loops Submit then Drain.
type Workload struct {
	cfg     Config
	connect connectFunc
	logger  tradeorder.Logger

	stats     []*WorkerStats
	startTime time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWorkload creates a Workload. connect is called once per worker and again after a connection failure.
func NewWorkload(cfg Config, connect connectFunc, logger tradeorder.Logger) *Workload {
	stats := make([]*WorkerStats, cfg.Workers)
	for i := range stats {
		stats[i] = newWorkerStats(i)
	}

	return &Workload{
		cfg:      cfg,
		connect:  connect,
		logger:   logger,
		stats:    stats,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches all workers and returns immediately.
// ctx is used for the database operations, cancel it only after Stop returned to let in-flight transactions finish.
func (w *Workload) Start(ctx context.Context) {
	w.startTime = time.Now()

	w.logger.Info("workload starting",
		"workers", w.cfg.Workers,
		"driver", w.cfg.Driver,
		"rate_per_worker", w.cfg.Rate,
		"endpoints", len(w.cfg.Endpoints),
	)

	for workerID := range w.cfg.Workers {
		w.wg.Add(1)
		go w.runWorker(ctx, workerID, w.stats[workerID])
	}

	go func() {
		w.wg.Wait()
		close(w.done)
	}()

	go w.statsReporter()
}

// Done is closed when every worker has returned.
func (w *Workload) Done() <-chan struct{} {
	return w.done
}

// Stop asks all workers to finish their current iteration and waits for them until ctx is done.
func (w *Workload) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopChan) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return errShutdownTimeout
	}
}

// Summary returns the aggregated counters so far.
func (w *Workload) Summary() RunSummary {
	return summarize(w.cfg.Driver, w.startTime, time.Since(w.startTime), w.stats)
}

func (w *Workload) stopped() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

func (w *Workload) runWorker(ctx context.Context, workerID int, stats *WorkerStats) {
	defer w.wg.Done()

	workerConfig, err := tradeorder.NewWorkerConfig(
		tradeorder.WithWorkerID(workerID),
		tradeorder.WithTotalWorkerCount(w.cfg.Workers),
		tradeorder.WithReadPct(w.cfg.ReadPct),
	)
	if err != nil {
		w.giveUp(workerID, stats, err)
		return
	}

	sess, err := w.connect(ctx)
	if err != nil {
		w.giveUp(workerID, stats, err)
		return
	}

	defer func() { sess.close() }()

	version, err := sess.engine.Setup(ctx, workerConfig.WorkerID(), workerConfig.TotalWorkerCount())
	if err != nil && !w.handleError(ctx, workerID, operationSetup, err, &sess, stats) {
		return
	}

	w.logger.Info("worker started",
		"worker_id", workerConfig.WorkerID(),
		"read_pct", workerConfig.ReadPct(),
		"server_version", version,
	)

	var tick <-chan time.Time
	if interval := w.cfg.iterationInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if w.stopped() || ctx.Err() != nil {
			return
		}

		if !w.iterate(ctx, workerID, &sess, stats) {
			return
		}

		if tick == nil {
			continue
		}

		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-tick:
		}
	}
}

// iterate runs one Submit and one Drain. It returns false when the worker must stop.
func (w *Workload) iterate(ctx context.Context, workerID int, sess *session, stats *WorkerStats) bool {
	if _, err := sess.engine.Submit(ctx); err != nil {
		// A fresh session starts with the next iteration.
		return w.handleError(ctx, workerID, operationSubmit, err, sess, stats)
	}

	stats.recordSubmit()

	result, err := sess.engine.Drain(ctx)
	if err != nil {
		return w.handleError(ctx, workerID, operationDrain, err, sess, stats)
	}

	stats.recordDrain(result.Count())

	return true
}

// handleError records err and replaces the session when the connection is suspect.
// Conflicts and integrity violations keep the session: the next iteration simply tries again.
func (w *Workload) handleError(
	ctx context.Context,
	workerID int,
	operation string,
	err error,
	sess *session,
	stats *WorkerStats,
) bool {
	if ctx.Err() != nil {
		return false
	}

	reconnect := stats.recordError(err)

	w.logger.Warn("operation failed",
		"worker_id", workerID,
		"operation", operation,
		"error", err.Error(),
		"reconnect", reconnect,
	)

	if !reconnect {
		return true
	}

	sess.close()
	sess.close = func() {}

	next, connectErr := w.connect(ctx)
	if connectErr != nil {
		w.giveUp(workerID, stats, connectErr)
		return false
	}

	*sess = next
	stats.recordReconnect()

	return true
}

func (w *Workload) giveUp(workerID int, stats *WorkerStats, err error) {
	stats.recordFatal(err)
	w.logger.Error("worker stopped", "worker_id", workerID, "error", err.Error())
}

// statsReporter logs the running totals periodically.
func (w *Workload) statsReporter() {
	ticker := time.NewTicker(statsReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.logger.Info("workload progress", w.Summary().logArgs()...)
		}
	}
}
