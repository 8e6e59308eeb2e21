package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memoranda as JSON",
		Long:  "Export memoranda, with their states and violations, as a JSON array. Filter by world with -w.",
		Run:   runExport,
	}

	cmd.Flags().StringP("world", "w", "", "Filter by world")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")

	a := openApp()
	defer a.Close()

	e, ok := a.store.(store.Exporter)
	if !ok {
		exitErr("export", fmt.Errorf("store does not support export"))
	}

	memoranda, err := e.ExportAll(cmd.Context(), world)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(memoranda)
}
