package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "assert",
		Short: "Record a fact directly",
		Long: "Store a single fact in a new memorandum at the fact's level. Existing facts are not\n" +
			"checked; run validate or consolidate afterwards.",
		Run: runAssert,
	}

	addWorldFlag(cmd)
	cmd.Flags().StringP("content", "c", "", "Fact content (required)")
	cmd.Flags().StringP("kind", "k", "", "Fact kind: character_state, location_state, relationship, event, knowledge")
	cmd.Flags().StringP("level", "l", string(model.LevelEvent), "Level: event, chapter, arc or world")
	cmd.Flags().StringSliceP("entity", "e", nil, "Entity reference (repeatable)")
	cmd.Flags().Float64("confidence", 1, "Confidence in [0,1]")
	cmd.Flags().String("time-context", "", "Free-form story time")
	cmd.Flags().String("source", "", "Source id")

	cmd.MarkFlagRequired("content")

	RootCmd.AddCommand(cmd)
}

func runAssert(cmd *cobra.Command, args []string) {
	world, _ := cmd.Flags().GetString("world")
	content, _ := cmd.Flags().GetString("content")
	kind, _ := cmd.Flags().GetString("kind")
	level, _ := cmd.Flags().GetString("level")
	entities, _ := cmd.Flags().GetStringSlice("entity")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	timeContext, _ := cmd.Flags().GetString("time-context")
	source, _ := cmd.Flags().GetString("source")

	a := openApp()
	defer a.Close()

	m, err := a.svc.AssertFact(cmd.Context(), world, &model.Fact{
		Content:     content,
		Kind:        model.FactKind(kind),
		Level:       model.Level(level),
		EntityRefs:  entities,
		TimeContext: timeContext,
		Confidence:  confidence,
		SourceID:    source,
	})
	if err != nil {
		exitErr("assert", err)
	}
	printJSON(m)
}
