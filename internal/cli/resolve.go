package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "resolve <memorandum-id> <violation-id>",
		Short: "Mark a coherence violation resolved",
		Args:  cobra.ExactArgs(2),
		Run:   runResolve,
	}

	cmd.Flags().StringP("note", "m", "", "Resolution note (required)")
	cmd.MarkFlagRequired("note")

	RootCmd.AddCommand(cmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	note, _ := cmd.Flags().GetString("note")

	a := openApp()
	defer a.Close()

	m, err := a.svc.ResolveViolation(cmd.Context(), args[0], args[1], note)
	if err != nil {
		exitErr("resolve", err)
	}
	printJSON(m)
}
