package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/cmake"
	"github.com/mcgtools/mcg/internal/collect"
	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/tools"
)

func RunDoctor(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	cfg, _, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	opts, err := collectOptions(cmd, cfg.Collect)
	if err != nil {
		return err
	}

	summary := DoctorSummary{
		Mode:     "doctor",
		BuildDir: opts.BuildDir,
		Target:   opts.Target,
		Tools:    tools.Probe(tools.Needed(opts)),
	}
	for _, tool := range tools.Missing(summary.Tools) {
		summary.Missing = append(summary.Missing, "program "+tool.Program)
		summary.Suggestions = append(summary.Suggestions, fmt.Sprintf("install %s or put it on PATH", tool.Program))
	}

	if _, err := os.Stat(cmake.ReplyDir(opts.BuildDir)); err == nil {
		summary.Reply = true
	} else {
		summary.Missing = append(summary.Missing, "cmake file API reply")
		summary.Suggestions = append(summary.Suggestions, "run mcg collect -g api")
	}
	if opts.Target == "" {
		summary.Missing = append(summary.Missing, "collect target")
		summary.Suggestions = append(summary.Suggestions, "set collect.target in mcg.yaml or pass -t")
	}

	if summary.Reply && opts.Target != "" {
		status, err := collect.CheckState(opts)
		switch {
		case errors.Is(err, cmake.ErrTargetNotFound):
			summary.Missing = append(summary.Missing, "target "+opts.Target)
		case err != nil:
			summary.Missing = append(summary.Missing, "valid collect state")
			summary.Suggestions = append(summary.Suggestions, "run mcg collect --incremental")
		default:
			summary.State = &status
			summary.Clean = status.Changed == 0 && status.Deleted == 0
			if !summary.Clean {
				summary.Suggestions = append(summary.Suggestions, "run mcg collect --incremental")
			}
		}
	}

	summary.Missing = fileutil.DedupeStrings(summary.Missing)
	sort.Strings(summary.Missing)
	summary.Suggestions = fileutil.DedupeStrings(summary.Suggestions)
	sort.Strings(summary.Suggestions)
	summary.Healthy = len(summary.Missing) == 0

	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, summary)
	}

	status := "issues"
	if summary.Healthy {
		status = "ok"
	}
	fmt.Fprintf(out, "doctor: %s\n", status)
	for _, tool := range summary.Tools {
		state := "missing"
		if tool.Available {
			state = tool.Path
		}
		fmt.Fprintf(out, "%s: %s (%s)\n", tool.Role, tool.Program, state)
	}
	if summary.State != nil {
		fmt.Fprintf(out, "state: tracked=%d changed=%d deleted=%d\n", summary.State.Tracked, summary.State.Changed, summary.State.Deleted)
	}
	if len(summary.Missing) > 0 {
		fmt.Fprintf(out, "missing (%d): %s\n", len(summary.Missing), strings.Join(summary.Missing, ", "))
	}
	for _, suggestion := range summary.Suggestions {
		fmt.Fprintf(out, "next: %s\n", suggestion)
	}
	return nil
}
