package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate [memorandum-id...]",
		Short: "Check memoranda for contradictions",
		Long: "Validate the union of facts held by the given memoranda, or by every memorandum of the world\n" +
			"when none are given. With --strict the command exits 2 when violations are found.",
		Run: runValidate,
	}

	addWorldFlag(cmd)
	cmd.Flags().Bool("strict", false, "Exit with status 2 when the world is incoherent")

	RootCmd.AddCommand(cmd)
}

type validateResult struct {
	Coherent   bool                       `json:"coherent"`
	Violations []model.CoherenceViolation `json:"violations"`
}

func runValidate(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")
	strict, _ := cmd.Flags().GetBool("strict")

	a := openApp()
	defer a.Close()

	var ms []model.Memorandum
	for _, id := range args {
		m, err := a.svc.RetrieveMemorandum(cmd.Context(), id)
		if err != nil {
			exitErr("validate", err)
		}
		if m == nil {
			exitErr("validate", fmt.Errorf("memorandum %s not found", id))
		}
		ms = append(ms, *m)
	}

	vs, err := a.svc.ValidateCoherence(cmd.Context(), world, ms)
	if err != nil {
		exitErr("validate", err)
	}
	printJSON(validateResult{Coherent: len(vs) == 0, Violations: vs})

	if strict && len(vs) > 0 {
		a.Close()
		os.Exit(2)
	}
}
