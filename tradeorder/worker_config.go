package tradeorder

import (
	"errors"
	"fmt"
)

const defaultReadPct = 50

// WorkerConfig holds the options a worker is set up with.
// ReadPct is accepted and validated but does not change what a worker does.
type WorkerConfig struct {
	readPct          float64
	workerID         int
	totalWorkerCount int
}

// WorkerOption defines a functional option for configuring a WorkerConfig.
type WorkerOption func(*WorkerConfig) error

// WithReadPct sets the read percentage, given in percent from 0 to 100.
func WithReadPct(pct int) WorkerOption {
	return func(c *WorkerConfig) error {
		if pct < 0 || pct > 100 {
			return errors.Join(ErrInvalidWorkerConfig, fmt.Errorf("read pct must be within 0..100, got %d", pct))
		}

		c.readPct = float64(pct) / 100

		return nil
	}
}

// WithWorkerID sets the zero-based id of the worker.
func WithWorkerID(id int) WorkerOption {
	return func(c *WorkerConfig) error {
		if id < 0 {
			return errors.Join(ErrInvalidWorkerConfig, fmt.Errorf("worker id must not be negative, got %d", id))
		}

		c.workerID = id

		return nil
	}
}

// WithTotalWorkerCount sets the number of workers of the run.
func WithTotalWorkerCount(count int) WorkerOption {
	return func(c *WorkerConfig) error {
		if count < 1 {
			return errors.Join(ErrInvalidWorkerConfig, fmt.Errorf("total worker count must be at least 1, got %d", count))
		}

		c.totalWorkerCount = count

		return nil
	}
}

// NewWorkerConfig builds a WorkerConfig. Defaults: read pct 50, worker id 0, one worker in total.
func NewWorkerConfig(options ...WorkerOption) (WorkerConfig, error) {
	config := WorkerConfig{
		readPct:          float64(defaultReadPct) / 100,
		workerID:         0,
		totalWorkerCount: 1,
	}

	for _, option := range options {
		if err := option(&config); err != nil {
			return WorkerConfig{}, err
		}
	}

	if config.workerID >= config.totalWorkerCount {
		return WorkerConfig{}, errors.Join(
			ErrInvalidWorkerConfig,
			fmt.Errorf("worker id %d must be lower than total worker count %d", config.workerID, config.totalWorkerCount),
		)
	}

	return config, nil
}

// ReadPct returns the read percentage as a fraction in [0, 1].
func (c WorkerConfig) ReadPct() float64 {
	return c.readPct
}

func (c WorkerConfig) WorkerID() int {
	return c.workerID
}

func (c WorkerConfig) TotalWorkerCount() int {
	return c.totalWorkerCount
}
