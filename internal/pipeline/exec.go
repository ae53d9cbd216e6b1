package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ExecRunner runs Task.Command as a child process. The process is killed
// when the task context ends.
type ExecRunner struct {
	Dir    string
	Stdout io.Writer
}

func (r ExecRunner) Run(ctx context.Context, task Task) error {
	if len(task.Command) == 0 {
		return fmt.Errorf("task %s: empty command", task.Name)
	}
	cmd := exec.CommandContext(ctx, task.Command[0], task.Command[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", task.Command[0], err, lastLine(msg))
		}
		return fmt.Errorf("%s: %w", task.Command[0], err)
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
