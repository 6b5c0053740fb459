package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const summaryFileMode = 0o644

// WorkerStats counts the outcomes of one worker. It is written by its worker and read by the
// periodic reporter, hence the mutex.
type WorkerStats struct {
	mu sync.Mutex

	workerID        int
	submits         int64
	drains          int64
	processedOrders int64
	conflicts       int64
	integrityErrors int64
	failures        int64
	reconnects      int64
	fatal           string
}

func newWorkerStats(workerID int) *WorkerStats {
	return &WorkerStats{workerID: workerID}
}

func (s *WorkerStats) recordSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submits++
}

func (s *WorkerStats) recordDrain(processed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drains++
	s.processedOrders += int64(processed)
}

func (s *WorkerStats) recordReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconnects++
}

// recordError classifies err and reports whether the worker should drop its connection.
func (s *WorkerStats) recordError(err error) (reconnect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.Is(err, tradeorder.ErrTransactionConflict):
		s.conflicts++
		return false
	case errors.Is(err, tradeorder.ErrDataIntegrityViolation):
		s.integrityErrors++
		return false
	default:
		s.failures++
		return true
	}
}

func (s *WorkerStats) recordFatal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fatal = err.Error()
}

// WorkerSummary is the snapshot of one worker's counters.
type WorkerSummary struct {
	WorkerID        int    `json:"worker_id"`
	Submits         int64  `json:"submits"`
	Drains          int64  `json:"drains"`
	ProcessedOrders int64  `json:"processed_orders"`
	Conflicts       int64  `json:"conflicts"`
	IntegrityErrors int64  `json:"integrity_errors"`
	Failures        int64  `json:"failures"`
	Reconnects      int64  `json:"reconnects"`
	Fatal           string `json:"fatal,omitempty"`
}

func (s *WorkerStats) snapshot() WorkerSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return WorkerSummary{
		WorkerID:        s.workerID,
		Submits:         s.submits,
		Drains:          s.drains,
		ProcessedOrders: s.processedOrders,
		Conflicts:       s.conflicts,
		IntegrityErrors: s.integrityErrors,
		Failures:        s.failures,
		Reconnects:      s.reconnects,
		Fatal:           s.fatal,
	}
}

// RunSummary aggregates all workers of a run.
type RunSummary struct {
	Driver          string          `json:"driver"`
	Workers         int             `json:"workers"`
	StartedAt       time.Time       `json:"started_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	Submits         int64           `json:"submits"`
	Drains          int64           `json:"drains"`
	ProcessedOrders int64           `json:"processed_orders"`
	Conflicts       int64           `json:"conflicts"`
	IntegrityErrors int64           `json:"integrity_errors"`
	Failures        int64           `json:"failures"`
	FatalWorkers    int             `json:"fatal_workers"`
	SubmitsPerSec   float64         `json:"submits_per_second"`
	PerWorker       []WorkerSummary `json:"per_worker"`
}

func summarize(driver string, startedAt time.Time, elapsed time.Duration, stats []*WorkerStats) RunSummary {
	summary := RunSummary{
		Driver:          driver,
		Workers:         len(stats),
		StartedAt:       startedAt.UTC(),
		DurationSeconds: elapsed.Seconds(),
		PerWorker:       make([]WorkerSummary, 0, len(stats)),
	}

	for _, s := range stats {
		ws := s.snapshot()
		summary.PerWorker = append(summary.PerWorker, ws)
		summary.Submits += ws.Submits
		summary.Drains += ws.Drains
		summary.ProcessedOrders += ws.ProcessedOrders
		summary.Conflicts += ws.Conflicts
		summary.IntegrityErrors += ws.IntegrityErrors
		summary.Failures += ws.Failures

		if ws.Fatal != "" {
			summary.FatalWorkers++
		}
	}

	if elapsed > 0 {
		summary.SubmitsPerSec = float64(summary.Submits) / elapsed.Seconds()
	}

	return summary
}

// logArgs renders the totals as key/value pairs for a structured logger.
func (s RunSummary) logArgs() []any {
	return []any{
		"driver", s.Driver,
		"workers", s.Workers,
		"duration_seconds", s.DurationSeconds,
		"submits", s.Submits,
		"drains", s.Drains,
		"processed_orders", s.ProcessedOrders,
		"conflicts", s.Conflicts,
		"integrity_errors", s.IntegrityErrors,
		"failures", s.Failures,
		"fatal_workers", s.FatalWorkers,
		"submits_per_second", s.SubmitsPerSec,
	}
}

func writeSummaryJSON(path string, summary RunSummary) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	if err := os.WriteFile(path, data, summaryFileMode); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}

	return nil
}
