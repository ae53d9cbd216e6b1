package cli

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/mcg"
	"github.com/mcgtools/mcg/internal/snapshot"
)

const defaultSnapshotDir = ".mcg/snapshots"

func newSnapshotCommand() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store and retrieve call graph snapshots",
	}
	snapshotCmd.PersistentFlags().String("db", defaultSnapshotDir, "Snapshot database directory")

	saveCmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Save a call graph document as a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  RunSnapshotSave,
	}
	saveCmd.Flags().String("label", "", "Human-readable label")
	saveCmd.Flags().Bool("json", false, "Print machine-readable metadata")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE:  RunSnapshotList,
	}
	listCmd.Flags().Bool("json", false, "Print machine-readable snapshot list")

	exportCmd := &cobra.Command{
		Use:   "export <id> [output]",
		Short: "Write a snapshot as a call graph document",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  RunSnapshotExport,
	}
	exportCmd.Flags().String("to", mcg.V4{}.Version(), "Schema version of the exported document")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  RunSnapshotDelete,
	}

	snapshotCmd.AddCommand(saveCmd, listCmd, exportCmd, deleteCmd)
	return snapshotCmd
}

func openSnapshotStore(cmd *cobra.Command) (*snapshot.Store, error) {
	dir, err := OptionalStringFlag(cmd, "db")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = defaultSnapshotDir
	}
	_, logger, err := LoadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return snapshot.Open(dir, logger)
}

func RunSnapshotSave(cmd *cobra.Command, args []string) error {
	label, err := OptionalStringFlag(cmd, "label")
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	store, err := openSnapshotStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	meta, err := store.Save(cmd.Context(), g, label)
	if err != nil {
		return err
	}
	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), meta)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s (functions=%d edges=%d)\n", meta.ID, meta.NodeCount, meta.EdgeCount)
	return nil
}

func RunSnapshotList(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	store, err := openSnapshotStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, map[string]any{"snapshots": list})
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "no snapshots")
		return nil
	}
	for _, meta := range list {
		fmt.Fprintf(out, "%s %s functions=%d edges=%d", meta.ID, meta.CreatedAt().Format(time.RFC3339), meta.NodeCount, meta.EdgeCount)
		if meta.Label != "" {
			fmt.Fprintf(out, " %q", meta.Label)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func RunSnapshotExport(cmd *cobra.Command, args []string) error {
	to, err := OptionalStringFlag(cmd, "to")
	if err != nil {
		return err
	}
	if _, ok := mcg.DefaultRegistry().Lookup(to); !ok {
		return fmt.Errorf("unsupported target version %q (supported: %v)", to, mcg.Supported())
	}
	store, err := openSnapshotStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	g, _, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := mcg.DefaultRegistry().Encode(&buf, g.Document(to), mcg.EncodeOptions{Indent: "  "}); err != nil {
		return err
	}
	if len(args) == 1 {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	return fileutil.WriteIfChanged(args[1], buf.Bytes())
}

func RunSnapshotDelete(cmd *cobra.Command, args []string) error {
	store, err := openSnapshotStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
