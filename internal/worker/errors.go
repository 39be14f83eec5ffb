package worker

import "errors"

var (
	// ErrSimulatedException is raised on purpose by SimulateMessageException.
	ErrSimulatedException = errors.New("worker: simulated message exception")
	// ErrDispatch wraps failures while applying a message or running a
	// work quantum, including recovered panics.
	ErrDispatch = errors.New("worker: dispatch failed")

	ErrInvalidTickPeriod   = errors.New("worker: tick period must be positive")
	ErrInvalidDrainTimeout = errors.New("worker: drain timeout must be positive")
	ErrInvalidChunkLines   = errors.New("worker: chunk lines must be positive")
)
