package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <memorandum-id>",
		Short: "Retrieve a memorandum",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	m, err := a.svc.RetrieveMemorandum(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	if m == nil {
		exitErr("get", fmt.Errorf("memorandum %s not found", args[0]))
	}
	printJSON(m)
}
