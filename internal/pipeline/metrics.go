package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pool collectors. A nil *Metrics records nothing.
type Metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration prometheus.Histogram
}

// NewMetrics registers the pool collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcg",
			Subsystem: "pipeline",
			Name:      "tasks_total",
			Help:      "Analysis tasks by final status",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mcg",
			Subsystem: "pipeline",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of analysis tasks",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
	}
	for _, c := range []prometheus.Collector{m.tasksTotal, m.taskDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(report Report) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(string(report.Status)).Inc()
	m.taskDuration.Observe(report.Duration.Seconds())
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
