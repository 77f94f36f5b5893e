package service

import "errors"

// Sentinel error kinds for the task service.
var (
	ErrNotStarted     = errors.New("service: not started")
	ErrRunNotStarted  = errors.New("service: run was never started")
	ErrResultsMissing = errors.New("service: no completed run")
)
