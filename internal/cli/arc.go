package cli

import (
	"github.com/rcliao/story-memory/internal/event"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "arc",
		Short: "Remember an arc of chapters",
		Long: "Read a document whose chapters field lists the events of each chapter and store one\n" +
			"arc-level memorandum. The arc summary is built from the chapter summaries.",
		Run: runArc,
	}

	cmd.Flags().StringP("world", "w", "", "World id (default: document world)")
	addInputFlag(cmd, "Arc document")

	RootCmd.AddCommand(cmd)
}

func runArc(cmd *cobra.Command, args []string) {
	doc := readDocument(cmd)
	chapters := make([][]event.Event, 0, len(doc.Chapters))
	for _, envs := range doc.Chapters {
		chapters = append(chapters, decodeEvents(envs))
	}

	a := openApp()
	defer a.Close()

	m, err := a.svc.RememberArc(cmd.Context(), worldOf(cmd, doc), chapters, extractContext(doc))
	if err != nil {
		exitErr("remember arc", err)
	}
	printJSON(m)
}
