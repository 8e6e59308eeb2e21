package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "find <entity>",
		Short: "Find memoranda mentioning an entity",
		Long:  "List the memoranda of a world holding any fact that references the entity. Matching ignores case.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runFind,
	}

	addWorldFlag(cmd)

	RootCmd.AddCommand(cmd)
}

func runFind(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")

	a := openApp()
	defer a.Close()

	ms, err := a.svc.FindMemorandaByEntity(cmd.Context(), world, strings.Join(args, " "))
	if err != nil {
		exitErr("find", err)
	}
	printJSON(ms)
}
