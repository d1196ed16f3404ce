package core

import "github.com/rs/zerolog"

// WithMaxSteps sets the per-run step ceiling. n <= 0 disables it.
func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		r.maxSteps = n
	}
}

// WithConcurrency bounds RunBatch parallelism. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.concurrency = n
		}
	}
}

// WithTrace logs every state change at debug and every step at trace level.
func WithTrace(enabled bool) Option {
	return func(r *Runner) {
		r.trace = enabled
	}
}

// WithLogger replaces the runner's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithPersister configures the Runner with a custom Persister.
func WithPersister(p Persister) Option {
	return func(r *Runner) {
		r.persister = p
	}
}

// WithPublisher configures the Runner with a custom EventPublisher.
func WithPublisher(pb EventPublisher) Option {
	return func(r *Runner) {
		r.publisher = pb
	}
}

// WithVisualizer configures the Runner with a custom Visualizer.
func WithVisualizer(v Visualizer) Option {
	return func(r *Runner) {
		r.visualizer = v
	}
}

// WithRegistry configures the Runner with a Registry of completed runs.
func WithRegistry(reg Registry) Option {
	return func(r *Runner) {
		r.registry = reg
	}
}

// WithMetrics configures the Runner with a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}
