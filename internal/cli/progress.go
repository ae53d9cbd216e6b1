package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mcgtools/mcg/internal/pipeline"
)

// collectProgressReporter draws a one-line status on a terminal while the
// pool runs. Reports arrive from several workers.
type collectProgressReporter struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	total   int
	done    int
	failed  int
	start   time.Time
	spinner int
	lastLen int
}

func newCollectProgressReporter(asJSON bool) *collectProgressReporter {
	stat, err := os.Stderr.Stat()
	enabled := err == nil && (stat.Mode()&os.ModeCharDevice) != 0 && !asJSON
	return &collectProgressReporter{out: os.Stderr, enabled: enabled, start: time.Now()}
}

func (r *collectProgressReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	r.start = time.Now()
}

func (r *collectProgressReporter) Update(report pipeline.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	if report.Status != pipeline.StatusSuccess {
		r.failed++
	}
	if !r.enabled {
		return
	}
	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	file := strings.TrimSpace(report.Task.Name)
	if len(file) > 88 {
		file = "..." + file[len(file)-85:]
	}
	r.printStatus(fmt.Sprintf("%s collect %d/%d %s", frame, r.done, r.total, file))
}

func (r *collectProgressReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || r.total == 0 {
		return
	}
	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.printStatus(fmt.Sprintf("collect complete (%d files, %d not collected, %s)", r.done, r.failed, elapsed))
	fmt.Fprintln(r.out)
}

func (r *collectProgressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(r.out, "\r%s", status)
}
