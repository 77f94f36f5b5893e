package engine

import "errors"

// Sentinel kinds for engine lifecycle errors. Run-level misuse is reported
// with model.ErrProtocolViolation.
var (
	ErrNotRunning     = errors.New("engine: not running")
	ErrAlreadyRunning = errors.New("engine: already running")
	ErrBackpressure   = errors.New("engine: event queue full")
)
