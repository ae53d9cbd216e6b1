package collector

import (
	"context"
	"fmt"

	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/mcg"
	"github.com/mcgtools/mcg/internal/pipeline"
)

// Runner collects Task.Source in process and writes the fragment to
// Task.Output. It satisfies pipeline.Runner.
type Runner struct {
	Registry *Registry
}

func (r Runner) Run(ctx context.Context, task pipeline.Task) error {
	registry := r.Registry
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	unit, err := registry.CollectFile(ctx, task.Source)
	if err != nil {
		return fmt.Errorf("collect %s: %w", task.Source, err)
	}
	if unit == nil {
		return fmt.Errorf("collect %s: no frontend for this file type", task.Source)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := mcg.Marshal(Fragment(unit), mcg.EncodeOptions{Indent: "  "})
	if err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	if _, err := fileutil.WriteIfChangedTracked(task.Output, append(data, '\n')); err != nil {
		return fmt.Errorf("write fragment: %w", err)
	}
	return nil
}
