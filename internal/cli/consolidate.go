package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Build a world-level memorandum",
		Long: "Merge every stored memorandum of a world into a world-level memorandum holding\n" +
			"the world summary, the canonical world state and any coherence violations.",
		Run: runConsolidate,
	}

	addWorldFlag(cmd)

	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")

	a := openApp()
	defer a.Close()

	m, err := a.svc.ConsolidateWorld(cmd.Context(), world)
	if err != nil {
		exitErr("consolidate", err)
	}
	if n := len(m.Violations); n > 0 {
		a.log.Warn("world has coherence violations", "world", world, "violations", n)
	}
	printJSON(m)
}
