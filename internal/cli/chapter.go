package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chapter",
		Short: "Remember a chapter of events",
		Long:  "Read an event document and store its events as one chapter-level memorandum with a chapter summary.",
		Run:   runChapter,
	}

	cmd.Flags().StringP("world", "w", "", "World id (default: document world)")
	addInputFlag(cmd, "Event document")

	RootCmd.AddCommand(cmd)
}

func runChapter(cmd *cobra.Command, args []string) {
	doc := readDocument(cmd)
	events := decodeEvents(doc.Events)

	a := openApp()
	defer a.Close()

	m, err := a.svc.RememberChapter(cmd.Context(), worldOf(cmd, doc), events, extractContext(doc))
	if err != nil {
		exitErr("remember chapter", err)
	}
	printJSON(m)
}
