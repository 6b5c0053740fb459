package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

func Test_WorkerStats_RecordError_When_Classifying(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		wantReconnect bool
		wantSnapshot  WorkerSummary
	}{
		{
			name:          "conflict keeps the session",
			err:           errors.Join(tradeorder.ErrTransactionConflict, errors.New("40001")),
			wantReconnect: false,
			wantSnapshot:  WorkerSummary{Conflicts: 1},
		},
		{
			name:          "integrity violation keeps the session",
			err:           errors.Join(tradeorder.ErrDataIntegrityViolation, tradeorder.ErrNoAccounts),
			wantReconnect: false,
			wantSnapshot:  WorkerSummary{IntegrityErrors: 1},
		},
		{
			name:          "anything else drops the session",
			err:           errors.Join(tradeorder.ErrQueryFailed, errors.New("conn closed")),
			wantReconnect: true,
			wantSnapshot:  WorkerSummary{Failures: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			stats := newWorkerStats(0)

			// act
			reconnect := stats.recordError(tc.err)

			// assert
			assert.Equal(t, tc.wantReconnect, reconnect)
			assert.Equal(t, tc.wantSnapshot, stats.snapshot())
		})
	}
}

func Test_Summarize_When_SeveralWorkers_Then_TotalsAreAdded(t *testing.T) {
	// arrange
	first := newWorkerStats(0)
	first.recordSubmit()
	first.recordSubmit()
	first.recordDrain(2)
	first.recordError(tradeorder.ErrTransactionConflict)

	second := newWorkerStats(1)
	second.recordSubmit()
	second.recordDrain(0)
	second.recordReconnect()
	second.recordFatal(tradeorder.ErrConnectionExhausted)

	startedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// act
	summary := summarize(driverPGX, startedAt, 2*time.Second, []*WorkerStats{first, second})

	// assert
	assert.Equal(t, 2, summary.Workers)
	assert.Equal(t, int64(3), summary.Submits)
	assert.Equal(t, int64(2), summary.Drains)
	assert.Equal(t, int64(2), summary.ProcessedOrders)
	assert.Equal(t, int64(1), summary.Conflicts)
	assert.Equal(t, 1, summary.FatalWorkers)
	assert.InDelta(t, 1.5, summary.SubmitsPerSec, 0.0001)
	require.Len(t, summary.PerWorker, 2)
	assert.Equal(t, int64(1), summary.PerWorker[1].Reconnects)
	assert.Equal(t, tradeorder.ErrConnectionExhausted.Error(), summary.PerWorker[1].Fatal)
}

func Test_Summarize_When_NoTimeElapsed_Then_RateIsZero(t *testing.T) {
	summary := summarize(driverSQL, time.Now(), 0, []*WorkerStats{newWorkerStats(0)})

	assert.Zero(t, summary.SubmitsPerSec)
}

func Test_WriteSummaryJSON(t *testing.T) {
	// arrange
	stats := newWorkerStats(0)
	stats.recordSubmit()
	stats.recordDrain(1)
	summary := summarize(driverGORM, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Second, []*WorkerStats{stats})
	path := filepath.Join(t.TempDir(), "summary.json")

	// act
	err := writeSummaryJSON(path, summary)

	// assert
	require.NoError(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(data, &decoded))
	assert.Equal(t, "gorm", decoded["driver"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded["started_at"])
	assert.EqualValues(t, 1, decoded["processed_orders"])
	assert.NotContains(t, string(data), "fatal\"")
}

func Test_WriteSummaryJSON_When_PathIsNotWritable_Then_Error(t *testing.T) {
	err := writeSummaryJSON(filepath.Join(t.TempDir(), "missing", "summary.json"), RunSummary{})

	assert.Error(t, err)
}
