package scheduler

import "errors"

var (
	// ErrScheduling covers failures to register or modify a scheduled job.
	ErrScheduling = errors.New("scheduling failed")

	// ErrInvalidCron is returned when a cron expression does not parse.
	// It wraps ErrScheduling.
	ErrInvalidCron = errors.New("invalid cron expression")
)
