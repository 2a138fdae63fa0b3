package lifecycle

import "errors"

var (
	errTerminalState = errors.New("job is in a terminal state")
	errNotRunning    = errors.New("job is not running")
	errRetriesExhausted = errors.New("retry_count >= max_retries")
)
