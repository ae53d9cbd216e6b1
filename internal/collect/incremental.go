package collect

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mcgtools/mcg/internal/cmake"
	"github.com/mcgtools/mcg/internal/config"
	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/ignore"
	"github.com/mcgtools/mcg/internal/pipeline"
	"github.com/mcgtools/mcg/internal/state"
)

// excluded drops tasks whose source matches one of the exclude rules.
// Rules see paths relative to the source directory.
func excluded(cfg config.Collect, tasks []pipeline.Task) (kept []pipeline.Task, dropped []string) {
	matcher := ignore.NewMatcher(cfg.Exclude)
	kept = make([]pipeline.Task, 0, len(tasks))
	for _, task := range tasks {
		if matcher.ShouldIgnore(relativeSource(cfg.SourceDir, task.Source)) {
			dropped = append(dropped, task.Name)
			continue
		}
		kept = append(kept, task)
	}
	return kept, dropped
}

func relativeSource(sourceDir, path string) string {
	if sourceDir == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(sourceDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// collectorKey identifies how fragments were produced; a fragment is only
// reused by a run that would have collected it the same way.
func collectorKey(task pipeline.Task) string {
	if len(task.Command) == 0 {
		return config.BuiltinCollector
	}
	return strings.Join(task.Command, " ")
}

type incremental struct {
	dir    string
	state  *state.State
	hashes map[string]string
	keys   map[string]string
	logger *slog.Logger
}

func loadIncremental(cfg config.Collect, logger *slog.Logger) (*incremental, error) {
	st, err := state.Load(cfg.BuildDir)
	if err != nil {
		return nil, err
	}
	return &incremental{
		dir:    cfg.BuildDir,
		state:  st,
		hashes: make(map[string]string),
		keys:   make(map[string]string),
		logger: logger,
	}, nil
}

// split separates tasks whose source and fragment are unchanged since the
// last run from those that must run again.
func (inc *incremental) split(tasks []pipeline.Task) (pending, reused []pipeline.Task) {
	for _, task := range tasks {
		key := collectorKey(task)
		inc.keys[task.Source] = key
		hash, err := fileutil.HashFile(task.Source)
		if err != nil {
			// The runner reports the unreadable source.
			pending = append(pending, task)
			continue
		}
		inc.hashes[task.Source] = hash
		if inc.state.Fresh(task.Source, hash, key) {
			reused = append(reused, task)
			continue
		}
		pending = append(pending, task)
	}
	inc.logger.Info("incremental collect", "reused", len(reused), "pending", len(pending))
	return pending, reused
}

// update records successful reports, forgets failed ones and prunes
// sources that are no longer part of the target, then saves the state.
func (inc *incremental) update(all []pipeline.Task, reports []pipeline.Report) error {
	for _, report := range reports {
		source := report.Task.Source
		hash, hashed := inc.hashes[source]
		if report.Status != pipeline.StatusSuccess || !hashed {
			inc.state.Forget(source)
			continue
		}
		if err := inc.state.Record(source, hash, report.Task.Output, inc.keys[source]); err != nil {
			inc.logger.Warn("fragment missing after collection", "source", source, "error", err)
			inc.state.Forget(source)
		}
	}

	current := make(map[string]bool, len(all))
	for _, task := range all {
		current[task.Source] = true
	}
	if removed := inc.state.Prune(current); len(removed) > 0 {
		inc.logger.Info("pruned collect state", "sources", len(removed))
	}
	return inc.state.Save(inc.dir)
}

// StateStatus compares the saved collect state with the current target.
type StateStatus struct {
	Tracked int `json:"tracked"`
	Changed int `json:"changed"`
	Deleted int `json:"deleted"`
}

// CheckState reports how many target sources a new incremental run would
// collect again and how many tracked sources left the target.
func CheckState(cfg config.Collect) (StateStatus, error) {
	target, err := cmake.FindTarget(cfg.BuildDir, cfg.Target)
	if err != nil {
		return StateStatus{}, err
	}
	st, err := state.Load(cfg.BuildDir)
	if err != nil {
		return StateStatus{}, err
	}

	tasks, _ := excluded(cfg, Tasks(cfg, target))
	status := StateStatus{Tracked: len(st.Sources)}
	current := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		current[task.Source] = true
		hash, err := fileutil.HashFile(task.Source)
		if err != nil || !st.Fresh(task.Source, hash, collectorKey(task)) {
			status.Changed++
		}
	}
	for source := range st.Sources {
		if !current[source] {
			status.Deleted++
		}
	}
	return status, nil
}
