package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Remember events, one memorandum per event",
		Long: "Read an event document (YAML or JSON) and store one event-level memorandum per event.\n" +
			"The world defaults to the document's world field.",
		Run: runRemember,
	}

	cmd.Flags().StringP("world", "w", "", "World id (default: document world)")
	addInputFlag(cmd, "Event document")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	doc := readDocument(cmd)
	events := decodeEvents(doc.Events)
	world := worldOf(cmd, doc)
	if len(events) == 0 {
		exitErr("remember", apperrors.New(apperrors.CodeEmptyEvents, "document has no events"))
	}

	a := openApp()
	defer a.Close()

	out := make([]*model.Memorandum, 0, len(events))
	for _, ev := range events {
		m, err := a.svc.RememberEvent(cmd.Context(), world, ev, extractContext(doc))
		if err != nil {
			exitErr("remember", err)
		}
		out = append(out, m)
	}
	printJSON(out)
}
