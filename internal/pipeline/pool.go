// Package pipeline runs per-file analysis tasks on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "mcg.pipeline"

// Status is the outcome of one task.
type Status string

const (
	StatusSuccess Status = "success"
	StatusTimeout Status = "timeout"
	StatusFailed  Status = "failed"
)

// Task is one unit of work, usually the analysis of one source file.
type Task struct {
	Name string
	// Source is the file the task analyses.
	Source string
	// Output is the fragment the task is expected to write.
	Output string
	// Command is run by ExecRunner; other runners may ignore it.
	Command []string
}

// Runner executes a task. It must stop when ctx is done.
type Runner interface {
	Run(ctx context.Context, task Task) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, task Task) error

func (f RunnerFunc) Run(ctx context.Context, task Task) error { return f(ctx, task) }

// Report describes how a task ended.
type Report struct {
	Task     Task
	Status   Status
	Err      error
	Duration time.Duration
}

// Pool runs tasks with at most Jobs in flight, each bounded by Timeout.
// A failed or timed out task is reported and never retried; it does not
// stop its siblings.
type Pool struct {
	Jobs    int
	Timeout time.Duration
	Runner  Runner
	Logger  *slog.Logger
	Metrics *Metrics
	// OnDone, if set, is called after each task. Calls may be concurrent.
	OnDone func(Report)
}

// Run executes every task and returns one report per task, in task order.
// It returns early only if ctx is cancelled, with the reports so far.
func (p *Pool) Run(ctx context.Context, tasks []Task) ([]Report, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jobs := p.Jobs
	if jobs < 1 {
		jobs = 1
	}

	reports := make([]Report, len(tasks))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reports[i] = p.runOne(ctx, task, logger)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return reports, err
	}
	return reports, nil
}

func (p *Pool) runOne(ctx context.Context, task Task, logger *slog.Logger) Report {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Pool.task",
		oteltrace.WithAttributes(
			attribute.String("task", task.Name),
			attribute.String("source", task.Source),
		),
	)
	defer span.End()

	taskCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.Runner.Run(taskCtx, task)
	report := Report{Task: task, Err: err, Duration: time.Since(start)}
	switch {
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		report.Status = StatusTimeout
		if report.Err == nil {
			report.Err = context.DeadlineExceeded
		}
	case err != nil:
		report.Status = StatusFailed
	default:
		report.Status = StatusSuccess
	}

	span.SetAttributes(attribute.String("status", string(report.Status)))
	if report.Status != StatusSuccess {
		span.SetStatus(codes.Error, report.Err.Error())
		logger.Warn("task did not succeed", "task", task.Name, "status", report.Status, "error", report.Err, "duration", report.Duration)
	} else {
		logger.Debug("task finished", "task", task.Name, "duration", report.Duration)
	}
	p.Metrics.observe(report)
	if p.OnDone != nil {
		p.OnDone(report)
	}
	return report
}

// Summary counts reports by status.
func Summary(reports []Report) map[Status]int {
	counts := make(map[Status]int, 3)
	for _, report := range reports {
		if report.Status != "" {
			counts[report.Status]++
		}
	}
	return counts
}
