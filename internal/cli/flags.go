package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/config"
	"github.com/mcgtools/mcg/internal/logging"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string, defaultValue bool) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalIntFlag(cmd *cobra.Command, name string, defaultValue int) (int, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// LoadSettings reads the config file named by --config and builds the
// logger. Log flags override the file.
func LoadSettings(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if level, err := OptionalStringFlag(cmd, "log-level"); err != nil {
		return config.Config{}, nil, err
	} else if level != "" {
		cfg.Log.Level = level
	}
	if format, err := OptionalStringFlag(cmd, "log-format"); err != nil {
		return config.Config{}, nil, err
	} else if format != "" {
		cfg.Log.Format = format
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func addCollectFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("generate", "g", "", "Phases to run: api|graph|both")
	flags.StringP("build-dir", "b", "", "CMake build directory")
	flags.StringP("source-dir", "s", "", "Directory relative target sources are resolved against")
	flags.StringP("collector", "c", "", "Collector executable, or builtin")
	flags.StringP("merger", "m", "", "Merger executable; empty merges in process")
	flags.IntP("jobs", "j", 0, "Parallel collector jobs")
	flags.IntP("timeout", "w", 0, "Wall-clock timeout per collector job in seconds")
	flags.StringP("extra-args", "e", "", "Space separated include directories passed to the collector")
	flags.StringP("cmake-args", "a", "", "Arguments for the cmake run")
	flags.StringP("output", "o", "", "Whole-program output file")
	flags.StringP("target", "t", "", "CMake target to collect")
	flags.String("metrics-file", "", "Write pool metrics in Prometheus text format to this file")
	flags.StringSlice("exclude", nil, "Gitignore-style rule for sources to skip (repeatable)")
	flags.Bool("incremental", false, "Reuse fragments of sources unchanged since the last run")
	flags.Bool("json", false, "Print machine-readable run summary")
}

// collectOptions applies set flags over the collect section of cfg.
func collectOptions(cmd *cobra.Command, cfg config.Collect) (config.Collect, error) {
	flags := cmd.Flags()
	strs := []struct {
		name string
		dst  *string
	}{
		{"generate", &cfg.Generate},
		{"build-dir", &cfg.BuildDir},
		{"source-dir", &cfg.SourceDir},
		{"collector", &cfg.Collector},
		{"merger", &cfg.Merger},
		{"extra-args", &cfg.ExtraArgs},
		{"cmake-args", &cfg.CMakeArgs},
		{"output", &cfg.Output},
		{"target", &cfg.Target},
		{"metrics-file", &cfg.MetricsFile},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return cfg, fmt.Errorf("failed to read --%s flag: %w", s.name, err)
		}
		*s.dst = value
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"jobs", &cfg.Jobs},
		{"timeout", &cfg.Timeout},
	}
	for _, i := range ints {
		if !flags.Changed(i.name) {
			continue
		}
		value, err := flags.GetInt(i.name)
		if err != nil {
			return cfg, fmt.Errorf("failed to read --%s flag: %w", i.name, err)
		}
		*i.dst = value
	}
	if flags.Changed("exclude") {
		rules, err := flags.GetStringSlice("exclude")
		if err != nil {
			return cfg, fmt.Errorf("failed to read --exclude flag: %w", err)
		}
		cfg.Exclude = append(cfg.Exclude, rules...)
	}
	if flags.Changed("incremental") {
		incremental, err := flags.GetBool("incremental")
		if err != nil {
			return cfg, fmt.Errorf("failed to read --incremental flag: %w", err)
		}
		cfg.Incremental = incremental
	}
	return cfg, nil
}
