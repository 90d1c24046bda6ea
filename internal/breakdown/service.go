// Package breakdown turns a free-text goal into a draft task list using a
// completion provider.
package breakdown

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/s1natex/breakdown-api-GO/internal/provider"
	"github.com/s1natex/breakdown-api-GO/internal/tasks"
)

var (
	ErrEmptyInput = errors.New("input required")
	ErrBusy       = errors.New("breakdown already in progress")
	ErrNoTasks    = errors.New("model returned no usable tasks")
)

// Adopter takes a validated breakdown as the new active list.
type Adopter interface {
	Adopt(drafts []tasks.Draft, source string) tasks.TaskList
}

// Decomposer runs one breakdown at a time: prompt, provider call, normalize,
// adopt. Nothing is adopted unless every step succeeds.
type Decomposer struct {
	provider   provider.Provider
	store      Adopter
	normalizer Normalizer
	inflight   *semaphore.Weighted
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewDecomposer(p provider.Provider, store Adopter, maxTasks int, logger *slog.Logger) *Decomposer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	return &Decomposer{
		provider:   p,
		store:      store,
		normalizer: Normalizer{MaxTasks: maxTasks},
		inflight:   semaphore.NewWeighted(1),
		logger:     logger,
		tracer:     otel.Tracer("breakdown"),
	}
}

func (d *Decomposer) Decompose(ctx context.Context, input string) (tasks.TaskList, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return tasks.TaskList{}, ErrEmptyInput
	}

	start := time.Now()
	if !d.inflight.TryAcquire(1) {
		observe(outcomeBusy, start)
		return tasks.TaskList{}, ErrBusy
	}
	defer d.inflight.Release(1)

	ctx, span := d.tracer.Start(ctx, "breakdown.decompose")
	defer span.End()
	span.SetAttributes(attribute.Int("breakdown.input_len", len(input)))

	raw, err := d.provider.Complete(ctx, BuildPrompt(input, d.normalizer.MaxTasks))
	if err != nil {
		d.fail(span, outcomeProviderError, start, err)
		return tasks.TaskList{}, err
	}

	drafts, err := d.normalizer.Normalize(raw)
	if err != nil {
		d.fail(span, outcomeDecodeError, start, err)
		return tasks.TaskList{}, err
	}
	if len(drafts) == 0 {
		d.fail(span, outcomeEmpty, start, ErrNoTasks)
		return tasks.TaskList{}, ErrNoTasks
	}

	l := d.store.Adopt(drafts, input)

	observe(outcomeSuccess, start)
	breakdownTasks.Observe(float64(len(l.Tasks)))
	span.SetAttributes(
		attribute.String("breakdown.list_id", l.ID),
		attribute.Int("breakdown.tasks", len(l.Tasks)),
	)
	d.logger.Info("breakdown_completed",
		slog.String("list_id", l.ID),
		slog.Int("tasks", len(l.Tasks)),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
	)
	return l, nil
}

func (d *Decomposer) fail(span trace.Span, outcome string, start time.Time, err error) {
	observe(outcome, start)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	d.logger.Warn("breakdown_failed",
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
}
