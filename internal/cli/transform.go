package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/mcg"
	"github.com/mcgtools/mcg/internal/merge"
	"github.com/mcgtools/mcg/internal/phasar"
)

func RunConvert(cmd *cobra.Command, args []string) error {
	to, err := OptionalStringFlag(cmd, "to")
	if err != nil {
		return err
	}
	sorted, err := OptionalBoolFlag(cmd, "sorted", false)
	if err != nil {
		return err
	}
	indent, err := cmd.Flags().GetString("indent")
	if err != nil {
		return fmt.Errorf("failed to read --indent flag: %w", err)
	}
	if _, ok := mcg.DefaultRegistry().Lookup(to); !ok {
		return fmt.Errorf("unsupported target version %q (supported: %v)", to, mcg.Supported())
	}

	g, doc, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	out := g.Document(to)
	out.Generator = doc.Generator

	var buf bytes.Buffer
	if err := mcg.DefaultRegistry().Encode(&buf, out, mcg.EncodeOptions{Sorted: sorted, Indent: indent}); err != nil {
		return err
	}
	if len(args) == 1 {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	return fileutil.WriteIfChanged(args[1], buf.Bytes())
}

func RunPhasar(cmd *cobra.Command, args []string) error {
	input, err := OptionalStringFlag(cmd, "input")
	if err != nil {
		return err
	}
	output, err := OptionalStringFlag(cmd, "output")
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open phasar output: %w", err)
		}
		defer f.Close()
		in = f
	}
	doc, err := phasar.Read(in)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := phasar.Write(&buf, doc); err != nil {
		return err
	}
	if output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := fileutil.WriteIfChanged(output, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "phasar: functions=%d output=%s\n", len(doc.Records), output)
	return nil
}

func RunMerge(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	_, logger, err := LoadSettings(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	output, fragments := args[0], args[1:]
	m := &merge.Merger{Logger: logger}
	result, err := m.MergeFiles(cmd.Context(), fragments)
	if err != nil {
		return err
	}
	if err := m.WriteFile(output, result.Document); err != nil {
		return err
	}

	summary := RunSummary{
		Mode:       "merge",
		Output:     output,
		Merged:     len(result.Merged),
		Skipped:    len(result.Skipped),
		Functions:  len(result.Document.Records),
		DurationMS: time.Since(start).Milliseconds(),
	}
	for _, skipped := range result.Skipped {
		summary.Failures = append(summary.Failures, skipped.Path)
	}
	return PrintRunSummary(cmd.OutOrStdout(), summary, asJSON)
}
