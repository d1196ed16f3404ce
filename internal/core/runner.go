// Package core provides the service tier around the tapemachine engine:
// a Runner that executes requests, tags each run with an ID and forwards
// its outcome to pluggable persistence, publishing, registry and metrics.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/log"
	"github.com/comalice/tapemachine/internal/tables"
)

// Pluggable component interfaces.

type Persister interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, runID string) (Record, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, change tapemachine.StateChange, metadata RunMetadata) error
	Close() error
}

type Visualizer interface {
	ExportDOT(table tapemachine.Table, names []string, current tapemachine.StateID) string
	ExportJSON(table tapemachine.Table) ([]byte, error)
}

type Metrics interface {
	ObserveRun(status tapemachine.Status, steps int, elapsed time.Duration)
	ObserveError(kind string)
}

// Request is the input of one run.
type Request struct {
	Name  string              `json:"name,omitempty" yaml:"name,omitempty"`
	Table tapemachine.Table   `json:"table" yaml:"table"`
	Tape  tapemachine.Tape    `json:"tape" yaml:"tape"`
	Head  int                 `json:"head" yaml:"head"`
	State tapemachine.StateID `json:"state" yaml:"state"`
}

// Record is the serializable outcome of a successful run.
type Record struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	Version    string              `json:"version" yaml:"version"`
	Table      tapemachine.Table   `json:"table" yaml:"table"`
	Input      tapemachine.Tape    `json:"input" yaml:"input"`
	StartHead  int                 `json:"startHead" yaml:"startHead"`
	StartState tapemachine.StateID `json:"startState" yaml:"startState"`
	Output     tapemachine.Tape    `json:"output" yaml:"output"`
	Head       int                 `json:"head" yaml:"head"`
	State      tapemachine.StateID `json:"state" yaml:"state"`
	Steps      int                 `json:"steps" yaml:"steps"`
	Status     tapemachine.Status  `json:"status" yaml:"status"`
	StartedAt  time.Time           `json:"startedAt" yaml:"startedAt"`
	Duration   time.Duration       `json:"duration" yaml:"duration"`
}

// RunMetadata annotates published state changes.
type RunMetadata struct {
	RunID     string    `json:"runID" yaml:"runID"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Version   string    `json:"version" yaml:"version"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ErrMismatch is returned by Verify when a re-execution disagrees with a record.
var ErrMismatch = errors.New("record does not match re-execution")

// Option applies configuration to Runner via functional options pattern.
type Option func(*Runner)

// Runner executes tapemachine runs. Safe for concurrent use; each run owns its tape.
type Runner struct {
	maxSteps    int
	concurrency int
	trace       bool
	logger      zerolog.Logger
	// Pluggable components (nil = disabled)
	persister  Persister
	publisher  EventPublisher
	visualizer Visualizer
	registry   Registry
	metrics    Metrics
}

// NewRunner creates a Runner with the default step ceiling.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxSteps:    tapemachine.DefaultMaxSteps,
		concurrency: 4,
		logger:      log.WithComponent("runner"),
	}

	// Apply functional options
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes one request and returns its record.
// Engine errors are returned as-is (wrapped); persistence and publishing failures are logged.
func (r *Runner) Run(ctx context.Context, req Request) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	id := uuid.New().String()
	ctx = log.ContextWithRunID(ctx, id)
	logger := log.WithContext(ctx, r.logger)
	md := RunMetadata{
		RunID:   id,
		Name:    req.Name,
		Version: tables.ComputeVersion(req.Table),
	}
	lc := logger.With().
		Str(log.FieldVersion, md.Version).
		Int(log.FieldStates, len(req.Table)).
		Int(log.FieldTapeLen, len(req.Tape))
	if req.Name != "" {
		lc = lc.Str(log.FieldRunName, req.Name)
	}
	logger = lc.Logger()

	opts := []tapemachine.Option{tapemachine.WithMaxSteps(r.maxSteps)}
	if r.publisher != nil || r.trace {
		opts = append(opts, tapemachine.WithObserver(func(c tapemachine.StateChange) {
			if r.trace {
				logger.Debug().
					Int(log.FieldStep, c.Step).
					Int(log.FieldOldState, int(c.From)).
					Int(log.FieldNewState, int(c.To)).
					Int(log.FieldHead, c.Head).
					Msg("state changed")
			}
			if r.publisher != nil {
				md := md
				md.Timestamp = time.Now()
				if err := r.publisher.Publish(ctx, c, md); err != nil {
					logger.Warn().Err(err).Msg("publish state change")
				}
			}
		}))
	}
	if r.trace {
		opts = append(opts, tapemachine.WithStepHook(func(s tapemachine.Step) {
			logger.Trace().
				Int(log.FieldStep, s.N).
				Int(log.FieldHead, s.Head).
				Int("read", int(s.Read)).
				Int(log.FieldOldState, int(s.State)).
				Msg("step")
		}))
	}

	started := time.Now()
	res, err := tapemachine.Execute(req.Table, req.Tape, req.Head, req.State, opts...)
	elapsed := time.Since(started)
	if err != nil {
		kind := ErrorKind(err)
		if r.metrics != nil {
			r.metrics.ObserveError(kind)
		}
		logger.Warn().Err(err).Str("kind", kind).Msg("run failed")
		return Record{}, fmt.Errorf("run %s: %w", id, err)
	}

	rec := Record{
		ID:         id,
		Name:       req.Name,
		Version:    md.Version,
		Table:      req.Table,
		Input:      req.Tape.Clone(),
		StartHead:  req.Head,
		StartState: req.State,
		Output:     res.Tape,
		Head:       res.Head,
		State:      res.State,
		Steps:      res.Steps,
		Status:     res.Status,
		StartedAt:  started.UTC(),
		Duration:   elapsed,
	}

	if r.metrics != nil {
		r.metrics.ObserveRun(res.Status, res.Steps, elapsed)
	}
	logger.Info().
		Str(log.FieldStatus, res.Status.String()).
		Int(log.FieldSteps, res.Steps).
		Int(log.FieldHead, res.Head).
		Int(log.FieldNewState, int(res.State)).
		Dur("elapsed", elapsed).
		Msg("run halted")

	if r.registry != nil {
		if err := r.registry.Register(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("register run")
		}
	}
	if r.persister != nil {
		if err := r.persister.Save(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("persist run")
		}
	}

	return rec, nil
}

// RunBatch executes requests concurrently, at most the configured concurrency at a time.
// Records are returned in request order. The first error cancels runs not yet started.
func (r *Runner) RunBatch(ctx context.Context, reqs []Request) ([]Record, error) {
	out := make([]Record, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			rec, err := r.Run(ctx, req)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Resume continues a recorded run from its final configuration.
// For a halted record this takes at most one more step.
func (r *Runner) Resume(ctx context.Context, rec Record) (Record, error) {
	return r.Run(ctx, Request{
		Name:  rec.Name,
		Table: rec.Table,
		Tape:  rec.Output,
		Head:  rec.Head,
		State: rec.State,
	})
}

// Verify re-executes a record's inputs and checks the outcome is identical.
func (r *Runner) Verify(rec Record) error {
	res, err := tapemachine.Execute(rec.Table, rec.Input, rec.StartHead, rec.StartState, tapemachine.WithMaxSteps(r.maxSteps))
	if err != nil {
		return fmt.Errorf("verify %s: %w", rec.ID, err)
	}
	if res.Steps != rec.Steps || res.Status != rec.Status || res.Head != rec.Head || res.State != rec.State {
		return fmt.Errorf("%w: %s: got %s after %d steps at head %d state %d", ErrMismatch, rec.ID, res.Status, res.Steps, res.Head, res.State)
	}
	if len(res.Tape) != len(rec.Output) {
		return fmt.Errorf("%w: %s: tape length %d, recorded %d", ErrMismatch, rec.ID, len(res.Tape), len(rec.Output))
	}
	for i := range res.Tape {
		if res.Tape[i] != rec.Output[i] {
			return fmt.Errorf("%w: %s: cell %d is %d, recorded %d", ErrMismatch, rec.ID, i, res.Tape[i], rec.Output[i])
		}
	}
	return nil
}

// Load fetches a record from the registry, falling back to the persister.
func (r *Runner) Load(ctx context.Context, runID string) (Record, error) {
	if r.registry != nil {
		rec, err := r.registry.Get(ctx, runID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) || r.persister == nil {
			return Record{}, err
		}
	}
	if r.persister == nil {
		return Record{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return r.persister.Load(ctx, runID)
}

// Records lists registered runs, newest first.
func (r *Runner) Records(ctx context.Context) ([]Record, error) {
	if r.registry == nil {
		return nil, nil
	}
	return r.registry.List(ctx)
}

// Visualize returns the Graphviz DOT visualization of table with current highlighted.
func (r *Runner) Visualize(table tapemachine.Table, names []string, current tapemachine.StateID) string {
	if r.visualizer == nil {
		return "ERROR: No visualizer configured. Use WithVisualizer(&production.DefaultVisualizer{})"
	}
	return r.visualizer.ExportDOT(table, names, current)
}

// Close releases the publisher.
func (r *Runner) Close() error {
	if r.publisher != nil {
		return r.publisher.Close()
	}
	return nil
}

// ErrorKind classifies an error for metrics labels and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, tapemachine.ErrInvalidTable):
		return "invalid_table"
	case errors.Is(err, tapemachine.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, tapemachine.ErrStepLimitExceeded):
		return "step_limit_exceeded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
