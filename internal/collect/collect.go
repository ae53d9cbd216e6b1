// Package collect drives whole-target call graph generation: CMake file API
// discovery, per-file collection on a worker pool and the final merge.
package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/mcgtools/mcg/internal/cmake"
	"github.com/mcgtools/mcg/internal/collector"
	"github.com/mcgtools/mcg/internal/config"
	"github.com/mcgtools/mcg/internal/merge"
	"github.com/mcgtools/mcg/internal/pipeline"
)

const tracerName = "mcg.collect"

// FragmentExt replaces the source extension in fragment paths.
const FragmentExt = ".ipcg"

// Options carries the collaborators of Run. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer

	// Configure runs cmake; cmake.Configure when nil.
	Configure func(ctx context.Context, buildDir string, args []string, stdout, stderr io.Writer) error
	// Runner overrides the runner chosen from the collector option.
	Runner pipeline.Runner

	// OnStart is told how many tasks are about to run.
	OnStart func(total int)
	// OnTask is passed to the pool as its OnDone hook.
	OnTask func(pipeline.Report)
}

// Result summarizes a run.
type Result struct {
	Target  cmake.Target
	Reports []pipeline.Report
	// Fragments are the fragment files present after the pool finished.
	Fragments []string
	// Excluded names the sources dropped by exclude rules.
	Excluded []string
	// Reused are tasks skipped because their fragment is still current.
	Reused []pipeline.Task
	Merge  *merge.Result
	Output string
}

// Run executes the phases selected by cfg.Generate.
func Run(ctx context.Context, cfg config.Collect, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Target == "" {
		return nil, errors.New("a target is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "collect.Run",
		oteltrace.WithAttributes(
			attribute.String("target", cfg.Target),
			attribute.String("generate", cfg.Generate),
		),
	)
	defer span.End()

	result, err := run(ctx, cfg, opts, logger, stdout, stderr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func run(ctx context.Context, cfg config.Collect, opts Options, logger *slog.Logger, stdout, stderr io.Writer) (*Result, error) {
	result := &Result{}
	if cfg.Generate == "api" || cfg.Generate == "both" {
		if err := generateAPI(ctx, cfg, opts, logger, stdout, stderr); err != nil {
			return result, err
		}
	}
	if cfg.Generate == "api" {
		return result, nil
	}

	target, err := cmake.FindTarget(cfg.BuildDir, cfg.Target)
	if err != nil {
		return result, err
	}
	result.Target = target
	logger.Info("found target", "target", target.Name, "sources", len(target.Sources), "includes", len(target.Includes))

	all, dropped := excluded(cfg, Tasks(cfg, target))
	result.Excluded = dropped
	if len(dropped) > 0 {
		logger.Info("excluded sources", "count", len(dropped))
	}
	tasks := all
	var inc *incremental
	if cfg.Incremental {
		if inc, err = loadIncremental(cfg, logger); err != nil {
			return result, err
		}
		tasks, result.Reused = inc.split(all)
	}

	reg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		return result, err
	}
	pool := &pipeline.Pool{
		Jobs:    cfg.Jobs,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		Runner:  runnerFor(cfg, opts, stdout),
		Logger:  logger,
		Metrics: metrics,
		OnDone:  opts.OnTask,
	}
	removeStale(tasks, logger)
	if opts.OnStart != nil {
		opts.OnStart(len(tasks))
	}
	reports, err := pool.Run(ctx, tasks)
	result.Reports = reports
	if cfg.MetricsFile != "" {
		if werr := pipeline.WriteTextfile(cfg.MetricsFile, reg); werr != nil {
			logger.Warn("writing metrics failed", "path", cfg.MetricsFile, "error", werr)
		}
	}
	if err != nil {
		return result, err
	}
	if inc != nil {
		if err := inc.update(all, reports); err != nil {
			logger.Warn("saving collect state failed", "dir", cfg.BuildDir, "error", err)
		}
	}
	summary := pipeline.Summary(reports)
	logger.Info("collection finished",
		"success", summary[pipeline.StatusSuccess],
		"failed", summary[pipeline.StatusFailed],
		"timeout", summary[pipeline.StatusTimeout])

	for _, task := range all {
		if _, err := os.Stat(task.Output); err == nil {
			result.Fragments = append(result.Fragments, task.Output)
		}
	}
	result.Output = cfg.Output
	if err := mergeFragments(ctx, cfg, logger, result, stdout, stderr); err != nil {
		return result, err
	}
	return result, nil
}

func generateAPI(ctx context.Context, cfg config.Collect, opts Options, logger *slog.Logger, stdout, stderr io.Writer) error {
	if err := cmake.WriteQuery(cfg.BuildDir); err != nil {
		return err
	}
	args := CMakeArgs(cfg)
	configure := opts.Configure
	if configure == nil {
		configure = cmake.Configure
	}
	logger.Info("running cmake", "dir", cfg.BuildDir, "args", strings.Join(args, " "))
	return configure(ctx, cfg.BuildDir, args, stdout, stderr)
}

// CMakeArgs splits the cmake arguments. Without any, the absolute source
// directory is passed so cmake has something to configure.
func CMakeArgs(cfg config.Collect) []string {
	args := strings.Fields(cfg.CMakeArgs)
	if len(args) > 0 {
		return args
	}
	source := cfg.SourceDir
	if source == "" {
		source = "."
	}
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	return []string{source}
}

// ExtraArgs are the include directories of the target followed by the
// user supplied ones, in collector argument form.
func ExtraArgs(cfg config.Collect, target cmake.Target) []string {
	var args []string
	for _, include := range target.Includes {
		args = append(args, "--extra-arg=-I"+include)
	}
	for _, include := range strings.Fields(cfg.ExtraArgs) {
		args = append(args, "--extra-arg=-I"+include)
	}
	return args
}

// FragmentPath is source with its extension replaced by FragmentExt.
func FragmentPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + FragmentExt
}

// Tasks builds one task per target source. Relative sources are resolved
// against the source directory.
func Tasks(cfg config.Collect, target cmake.Target) []pipeline.Task {
	extra := ExtraArgs(cfg, target)
	tasks := make([]pipeline.Task, 0, len(target.Sources))
	for _, source := range target.Sources {
		path := source
		if !filepath.IsAbs(path) && cfg.SourceDir != "" {
			path = filepath.Join(cfg.SourceDir, path)
		}
		task := pipeline.Task{Name: source, Source: path, Output: FragmentPath(path)}
		if cfg.Collector != "" && cfg.Collector != config.BuiltinCollector {
			task.Command = append(append([]string{cfg.Collector}, extra...), path)
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func runnerFor(cfg config.Collect, opts Options, stdout io.Writer) pipeline.Runner {
	if opts.Runner != nil {
		return opts.Runner
	}
	if cfg.Collector == config.BuiltinCollector || cfg.Collector == "" {
		return collector.Runner{Registry: collector.NewDefaultRegistry()}
	}
	return pipeline.ExecRunner{Stdout: stdout}
}

func mergeFragments(ctx context.Context, cfg config.Collect, logger *slog.Logger, result *Result, stdout, stderr io.Writer) error {
	if cfg.Merger != "" {
		args := append([]string{cfg.Output}, result.Fragments...)
		cmd := exec.CommandContext(ctx, cfg.Merger, args...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		logger.Info("running merger", "merger", cfg.Merger, "fragments", len(result.Fragments))
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("merger %s: %w", cfg.Merger, err)
		}
		return nil
	}

	m := &merge.Merger{Logger: logger}
	merged, err := m.MergeFiles(ctx, result.Fragments)
	if err != nil {
		return err
	}
	result.Merge = &merged
	return m.WriteFile(cfg.Output, merged.Document)
}

// removeStale deletes the fragments of tasks about to run, so a task that
// fails leaves no fragment from an earlier run behind.
func removeStale(tasks []pipeline.Task, logger *slog.Logger) {
	for _, task := range tasks {
		if err := os.Remove(task.Output); err != nil && !os.IsNotExist(err) {
			logger.Warn("removing old fragment failed", "path", task.Output, "error", err)
		}
	}
}
