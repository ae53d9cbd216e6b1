package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/graph"
	"github.com/mcgtools/mcg/internal/search"
)

type SearchHit struct {
	Score float64    `json:"score"`
	Node  NodeRecord `json:"node"`
}

func RunSearch(cmd *cobra.Command, args []string) error {
	limit, err := OptionalIntFlag(cmd, "limit", 10)
	if err != nil {
		return err
	}
	if limit < 1 {
		return fmt.Errorf("--limit must be >= 1")
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")
	results := search.Search(search.Build(g), query, limit)

	hits := make([]SearchHit, 0, len(results))
	nodes := make([]*graph.Node, 0, len(results))
	for _, result := range results {
		node, ok := g.Node(result.ID)
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{Score: result.Score, Node: NodeRecordFromNode(node, false)})
		nodes = append(nodes, node)
	}
	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), map[string]any{"query": query, "results": hits})
	}

	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintf(out, "no functions match %q\n", query)
		return nil
	}
	for i, hit := range hits {
		fmt.Fprintf(out, "%.3f ", hit.Score)
		printNodeLine(out, nodes[i])
	}
	return nil
}
