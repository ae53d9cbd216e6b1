package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcgtools/mcg/internal/collect"
	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/tools"
)

type InfoSummary struct {
	File           string   `json:"file"`
	Version        string   `json:"version"`
	Generator      string   `json:"generator,omitempty"`
	Functions      int      `json:"functions"`
	WithBody       int      `json:"with_body"`
	Edges          int      `json:"edges"`
	DuplicateNames []string `json:"duplicate_names,omitempty"`
}

type RunSummary struct {
	Mode       string   `json:"mode"`
	Target     string   `json:"target,omitempty"`
	Output     string   `json:"output,omitempty"`
	Sources    int      `json:"sources,omitempty"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	TimedOut   int      `json:"timed_out"`
	Reused     int      `json:"reused,omitempty"`
	Excluded   int      `json:"excluded,omitempty"`
	Merged     int      `json:"merged"`
	Skipped    int      `json:"skipped"`
	Functions  int      `json:"functions"`
	DurationMS int64    `json:"duration_ms"`
	Failures   []string `json:"failures,omitempty"`
}

type DoctorSummary struct {
	Mode        string               `json:"mode"`
	BuildDir    string               `json:"build_dir"`
	Target      string               `json:"target,omitempty"`
	Healthy     bool                 `json:"healthy"`
	Clean       bool                 `json:"clean"`
	Reply       bool                 `json:"file_api_reply"`
	Tools       []tools.Tool         `json:"tools"`
	State       *collect.StateStatus `json:"state,omitempty"`
	Missing     []string             `json:"missing,omitempty"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

func PrintInfoSummary(w io.Writer, summary InfoSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}
	fmt.Fprintf(w, "%s: version=%s", summary.File, summary.Version)
	if summary.Generator != "" {
		fmt.Fprintf(w, " generator=%s", summary.Generator)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "functions: %d (with body %d)\n", summary.Functions, summary.WithBody)
	fmt.Fprintf(w, "edges: %d\n", summary.Edges)
	if len(summary.DuplicateNames) > 0 {
		fmt.Fprintf(w, "duplicate names (%d): %s\n", len(summary.DuplicateNames), SummarizePaths(summary.DuplicateNames, 8))
	}
	return nil
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	parts := []string{fmt.Sprintf("%s:", summary.Mode)}
	if summary.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", summary.Target))
	}
	if summary.Mode == "collect" {
		parts = append(parts,
			fmt.Sprintf("sources=%d", summary.Sources),
			fmt.Sprintf("succeeded=%d", summary.Succeeded),
			fmt.Sprintf("failed=%d", summary.Failed),
			fmt.Sprintf("timed_out=%d", summary.TimedOut),
		)
		if summary.Reused > 0 {
			parts = append(parts, fmt.Sprintf("reused=%d", summary.Reused))
		}
		if summary.Excluded > 0 {
			parts = append(parts, fmt.Sprintf("excluded=%d", summary.Excluded))
		}
	}
	parts = append(parts,
		fmt.Sprintf("merged=%d", summary.Merged),
		fmt.Sprintf("skipped=%d", summary.Skipped),
		fmt.Sprintf("functions=%d", summary.Functions),
		fmt.Sprintf("duration=%dms", summary.DurationMS),
	)
	fmt.Fprintln(w, strings.Join(parts, " "))
	if summary.Output != "" {
		fmt.Fprintf(w, "output: %s\n", summary.Output)
	}
	if len(summary.Failures) > 0 {
		fmt.Fprintf(w, "failures (%d): %s\n", len(summary.Failures), SummarizePaths(summary.Failures, 8))
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
