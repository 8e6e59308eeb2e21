package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	s, ok := a.store.(*store.SQLiteStore)
	if !ok {
		exitErr("stats", fmt.Errorf("statistics need a SQLite database, got %s", a.cfg.DBPath))
	}

	stats, err := s.Stats(cmd.Context(), a.cfg.DBPath)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}
