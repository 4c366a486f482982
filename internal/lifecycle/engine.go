// Package lifecycle implements the weekly task lifecycle: status dispatch
// between task rows and per-week completion rows, automatic rollover at a
// week boundary, and manual migration of older work into the current week.
//
// The current week is always passed in by the caller; nothing here reads the
// wall clock.
package lifecycle

import (
	"log/slog"

	"golang.org/x/sync/singleflight"

	"weekly-planner/internal/model"
	"weekly-planner/internal/progress"
)

const defaultWorkers = 4

// Engine runs status dispatch and the weekly batch operations over the stores.
type Engine struct {
	tasks       TaskStore
	completions CompletionStore
	workers     int
	logger      *slog.Logger
	flight      singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds how many tasks a batch operation processes at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an Engine over the given stores.
func New(tasks TaskStore, completions CompletionStore, opts ...Option) *Engine {
	e := &Engine{
		tasks:       tasks,
		completions: completions,
		workers:     defaultWorkers,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeProgress returns the task's completion percentage.
func (e *Engine) ComputeProgress(task model.Task) int {
	return progress.Compute(task)
}
