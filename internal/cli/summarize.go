package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a history of events",
		Long:  "Summarize the events of a document without storing anything. The output is truncated to --length characters.",
		Run:   runSummarize,
	}

	cmd.Flags().StringP("world", "w", "", "World id (default: document world)")
	cmd.Flags().IntP("length", "l", 0, "Target length (default: summary.history_length)")
	addInputFlag(cmd, "Event document")

	RootCmd.AddCommand(cmd)
}

func runSummarize(cmd *cobra.Command, args []string) {
	length, _ := cmd.Flags().GetInt("length")
	doc := readDocument(cmd)
	events := decodeEvents(doc.Events)

	a := openApp()
	defer a.Close()

	if !cmd.Flags().Changed("length") {
		length = a.cfg.Summary.HistoryLength
	}

	s, err := a.svc.SummarizeHistory(cmd.Context(), worldOf(cmd, doc), events, length, extractContext(doc))
	if err != nil {
		exitErr("summarize", err)
	}
	fmt.Println(s)
}
