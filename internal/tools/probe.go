// Package tools checks that the external programs a collect run needs are
// installed.
package tools

import (
	"os/exec"
	"strings"

	"github.com/mcgtools/mcg/internal/config"
)

type Tool struct {
	Role      string `json:"role"`
	Program   string `json:"program"`
	Path      string `json:"path,omitempty"`
	Required  bool   `json:"required"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Needed lists the programs cfg refers to. cmake is required only when the
// api phase runs. The builtin collector and the in-process merger need
// nothing.
func Needed(cfg config.Collect) []Tool {
	tools := []Tool{{
		Role:     "configure",
		Program:  "cmake",
		Required: cfg.Generate == "api" || cfg.Generate == "both",
	}}
	if cfg.Collector != "" && cfg.Collector != config.BuiltinCollector {
		tools = append(tools, Tool{Role: "collect", Program: program(cfg.Collector), Required: true})
	}
	if cfg.Merger != "" {
		tools = append(tools, Tool{Role: "merge", Program: program(cfg.Merger), Required: true})
	}
	return tools
}

func program(command string) string {
	if fields := strings.Fields(command); len(fields) > 0 {
		return fields[0]
	}
	return command
}

func Probe(tools []Tool) []Tool {
	return ProbeWithLookPath(tools, exec.LookPath)
}

func ProbeWithLookPath(tools []Tool, lookPath func(file string) (string, error)) []Tool {
	probed := make([]Tool, len(tools))
	for i, tool := range tools {
		if path, err := lookPath(tool.Program); err == nil {
			tool.Path = path
			tool.Available = true
			tool.Reason = ""
		} else {
			tool.Reason = "not_found"
		}
		probed[i] = tool
	}
	return probed
}

// Missing returns the required tools that are not available.
func Missing(tools []Tool) []Tool {
	var missing []Tool
	for _, tool := range tools {
		if tool.Required && !tool.Available {
			missing = append(missing, tool)
		}
	}
	return missing
}
