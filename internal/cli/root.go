package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/mcg"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mcg",
		Short: "Read, convert, merge and collect MetaCG call graphs",
		Long: `mcg works with MetaCG call graph documents (schema versions 1 to 4).

It inspects and converts existing graphs, turns phasar output into MetaCG,
merges per-file fragments and drives whole-target collection through the
CMake file API.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to mcg.yaml (default: ./mcg.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text|json")

	// Inspect Commands
	infoCmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Summarize a call graph document",
		Args:  cobra.ExactArgs(1),
		RunE:  RunInfo,
	}
	infoCmd.Flags().Bool("json", false, "Print machine-readable summary")

	nodesCmd := &cobra.Command{
		Use:   "nodes <file>",
		Short: "List every function node",
		Args:  cobra.ExactArgs(1),
		RunE:  RunNodes,
	}
	nodesCmd.Flags().Bool("json", false, "Print machine-readable node list")

	nodeCmd := &cobra.Command{
		Use:   "node <file> <name>",
		Short: "Show one function node with its flags and metadata",
		Args:  cobra.ExactArgs(2),
		RunE:  RunNode,
	}
	nodeCmd.Flags().Bool("json", false, "Print machine-readable node")
	nodeCmd.Flags().Bool("first", false, "Use the first node when the name is ambiguous")

	callersCmd := &cobra.Command{
		Use:   "callers <file> <name>",
		Short: "Show direct callers of a function",
		Args:  cobra.ExactArgs(2),
		RunE:  RunCallers,
	}
	callersCmd.Flags().Bool("json", false, "Print machine-readable caller results")
	callersCmd.Flags().Bool("first", false, "Use the first node when the name is ambiguous")

	calleesCmd := &cobra.Command{
		Use:   "callees <file> <name>",
		Short: "Show direct callees of a function",
		Args:  cobra.ExactArgs(2),
		RunE:  RunCallees,
	}
	calleesCmd.Flags().Bool("json", false, "Print machine-readable callee results")
	calleesCmd.Flags().Bool("first", false, "Use the first node when the name is ambiguous")

	traceCmd := &cobra.Command{
		Use:   "trace <file> <name>",
		Short: "Trace outgoing calls from a function up to depth N",
		Args:  cobra.ExactArgs(2),
		RunE:  RunTrace,
	}
	traceCmd.Flags().Int("depth", 2, "Traversal depth (>=1)")
	traceCmd.Flags().Bool("json", false, "Print machine-readable trace results")
	traceCmd.Flags().Bool("first", false, "Use the first node when the name is ambiguous")

	pathCmd := &cobra.Command{
		Use:   "path <file> <from> <to>",
		Short: "Find the shortest call path between two functions",
		Args:  cobra.ExactArgs(3),
		RunE:  RunPath,
	}
	pathCmd.Flags().Bool("json", false, "Print machine-readable path results")
	pathCmd.Flags().Bool("first", false, "Use the first node when a name is ambiguous")

	searchCmd := &cobra.Command{
		Use:   "search <file> <query>...",
		Short: "Rank functions by name and origin against a query",
		Args:  cobra.MinimumNArgs(2),
		RunE:  RunSearch,
	}
	searchCmd.Flags().Int("limit", 10, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Print machine-readable search results")

	// Transform Commands
	convertCmd := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Rewrite a document in another schema version",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  RunConvert,
	}
	convertCmd.Flags().String("to", mcg.V4{}.Version(), "Target schema version")
	convertCmd.Flags().Bool("sorted", false, "Sort nodes by name")
	convertCmd.Flags().String("indent", "  ", "Indentation of the output; empty for compact")

	phasarCmd := &cobra.Command{
		Use:   "phasar",
		Short: "Convert phasar call graph output to a MetaCG 1.0 document",
		Args:  cobra.NoArgs,
		RunE:  RunPhasar,
	}
	phasarCmd.Flags().StringP("input", "i", "", "Phasar output file, last line holds the JSON (default stdin)")
	phasarCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	mergeCmd := &cobra.Command{
		Use:   "merge <output> <fragment>...",
		Short: "Merge per-file fragments into one whole-program graph",
		Args:  cobra.MinimumNArgs(2),
		RunE:  RunMerge,
	}
	mergeCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	// Collect Commands
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Generate the call graph of a CMake target",
		Args:  cobra.NoArgs,
		RunE:  RunCollect,
	}
	addCollectFlags(collectCmd)

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the programs, file API reply and state a collect run needs",
		Args:  cobra.NoArgs,
		RunE:  RunDoctor,
	}
	addCollectFlags(doctorCmd)

	snapshotCmd := newSnapshotCommand()

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcg %s (schemas %v)\n", version, mcg.Supported())
		},
	}

	rootCmd.AddCommand(
		infoCmd,
		nodesCmd,
		nodeCmd,
		callersCmd,
		calleesCmd,
		traceCmd,
		pathCmd,
		searchCmd,
		convertCmd,
		phasarCmd,
		mergeCmd,
		collectCmd,
		doctorCmd,
		snapshotCmd,
		versionCmd,
	)

	return rootCmd
}
