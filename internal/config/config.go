// Package config loads mcg.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no path is given.
const FileName = "mcg.yaml"

// BuiltinCollector selects the in-process tree-sitter collector.
const BuiltinCollector = "builtin"

type Config struct {
	Collect Collect `yaml:"collect"`
	Log     Log     `yaml:"log"`
}

// Collect holds the options of `mcg collect`.
type Collect struct {
	Generate    string   `yaml:"generate"`
	BuildDir    string   `yaml:"build_dir"`
	SourceDir   string   `yaml:"source_dir"`
	Collector   string   `yaml:"collector"`
	Merger      string   `yaml:"merger"`
	Jobs        int      `yaml:"jobs"`
	Timeout     int      `yaml:"timeout"`
	ExtraArgs   string   `yaml:"extra_args"`
	CMakeArgs   string   `yaml:"cmake_args"`
	Output      string   `yaml:"output"`
	Target      string   `yaml:"target"`
	MetricsFile string   `yaml:"metrics_file"`
	Exclude     []string `yaml:"exclude"`
	Incremental bool     `yaml:"incremental"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Collect: Collect{
			Generate:  "both",
			BuildDir:  ".",
			SourceDir: ".",
			Collector: BuiltinCollector,
			Jobs:      1,
			Timeout:   120,
			Output:    "wholeProgramCG.ipcg",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. With an empty path, mcg.yaml in the
// working directory is used if it exists. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate checks option ranges. The target is checked by the command
// that needs it.
func (c Collect) Validate() error {
	switch c.Generate {
	case "api", "graph", "both":
	default:
		return fmt.Errorf("generate must be one of api, graph, both; got %q", c.Generate)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	if c.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}
