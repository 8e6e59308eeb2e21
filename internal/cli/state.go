package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the canonical world state",
		Long:  "Merge the world-level states of every memorandum created at or before --as-of (RFC 3339, default now).",
		Run:   runState,
	}

	addWorldFlag(cmd)
	cmd.Flags().String("as-of", "", "Point in time, RFC 3339 (default: now)")

	RootCmd.AddCommand(cmd)
}

func runState(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")
	asOfFlag, _ := cmd.Flags().GetString("as-of")

	asOf := time.Now()
	if asOfFlag != "" {
		t, err := time.Parse(time.RFC3339Nano, asOfFlag)
		if err != nil {
			exitErr("parse --as-of", err)
		}
		asOf = t
	}

	a := openApp()
	defer a.Close()

	st, err := a.svc.GetCanonicalState(cmd.Context(), world, asOf)
	if err != nil {
		exitErr("state", err)
	}
	printJSON(st)
}
