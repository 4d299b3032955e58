package abatch

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// RunnerOption configures runtime behavior of a Runner.
type RunnerOption func(*Runner)

// WithOutput directs per-prompt console output to w.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the structured logger used for diagnostics.
func WithLogger(log zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithVerbose enables diagnostic logging of transport faults and session
// cleanup failures.
func WithVerbose(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.verbose = enabled
	}
}

// WithResultSchema validates each successful result text against the given
// JSON schema; violations are downgraded to tool errors.
func WithResultSchema(schema string) RunnerOption {
	return func(r *Runner) {
		r.schema = schema
	}
}

// WithPromptTimeout bounds session creation plus prompt execution for each
// prompt. Zero means no timeout.
func WithPromptTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = timeout
	}
}

// WithTitleLimit caps the length of derived session titles, in runes.
func WithTitleLimit(limit int) RunnerOption {
	return func(r *Runner) {
		if limit > 0 {
			r.titleLimit = limit
		}
	}
}
