package autolibra

import (
	"log/slog"
	"time"
)

// Option configures the handles returned by the Open* functions.
type Option func(*resolvedOptions)

// resolvedOptions holds the cross-cutting settings shared by all three
// handle kinds. Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger      *slog.Logger
	now         func() time.Time
	description string
}

// WithLogger sets the structured logger for the opened handle.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithClock overrides the time source used for created/updated timestamps,
// mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *resolvedOptions) { o.now = now }
}

// WithDescription sets the free-text description recorded when the handle
// creates a new dataset or annotation project. Ignored on reopen.
func WithDescription(description string) Option {
	return func(o *resolvedOptions) { o.description = description }
}

func resolve(opts []Option) resolvedOptions {
	var o resolvedOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
