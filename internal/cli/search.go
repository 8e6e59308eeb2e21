package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search facts by keyword",
		Long:  "Search stored fact content for matching text. Matching ignores case for ASCII letters.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("world", "w", "", "Filter by world")
	cmd.Flags().StringP("kind", "k", "", "Filter by fact kind")
	cmd.Flags().String("level", "", "Filter by level")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")
	kind, _ := cmd.Flags().GetString("kind")
	level, _ := cmd.Flags().GetString("level")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	a := openApp()
	defer a.Close()

	s, ok := a.store.(store.Searcher)
	if !ok {
		exitErr("search", fmt.Errorf("store does not support search"))
	}

	results, err := s.SearchFacts(cmd.Context(), store.SearchParams{
		WorldID: world,
		Query:   query,
		Kind:    model.FactKind(kind),
		Level:   model.Level(level),
		Limit:   limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}
