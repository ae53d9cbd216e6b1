package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/collect"
	"github.com/mcgtools/mcg/internal/pipeline"
)

func RunCollect(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	cfg, logger, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	opts, err := collectOptions(cmd, cfg.Collect)
	if err != nil {
		return err
	}

	progress := newCollectProgressReporter(asJSON)
	start := time.Now()
	result, err := collect.Run(cmd.Context(), opts, collect.Options{
		Logger:  logger,
		Stdout:  cmd.ErrOrStderr(),
		Stderr:  cmd.ErrOrStderr(),
		OnStart: progress.Start,
		OnTask:  progress.Update,
	})
	progress.Done()
	if err != nil {
		return err
	}
	if opts.Generate == "api" {
		return nil
	}

	counts := pipeline.Summary(result.Reports)
	summary := RunSummary{
		Mode:       "collect",
		Target:     result.Target.Name,
		Output:     result.Output,
		Sources:    len(result.Target.Sources),
		Succeeded:  counts[pipeline.StatusSuccess],
		Failed:     counts[pipeline.StatusFailed],
		TimedOut:   counts[pipeline.StatusTimeout],
		Reused:     len(result.Reused),
		Excluded:   len(result.Excluded),
		Merged:     len(result.Fragments),
		DurationMS: time.Since(start).Milliseconds(),
	}
	if result.Merge != nil {
		summary.Merged = len(result.Merge.Merged)
		summary.Skipped = len(result.Merge.Skipped)
		summary.Functions = len(result.Merge.Document.Records)
	}
	for _, report := range result.Reports {
		if report.Status != pipeline.StatusSuccess && report.Status != "" {
			summary.Failures = append(summary.Failures, report.Task.Name)
		}
	}
	return PrintRunSummary(cmd.OutOrStdout(), summary, asJSON)
}
