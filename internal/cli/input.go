package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/extract"
)

func addInputFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("input", "i", "", usage+" (default: stdin)")
}

func openInput(cmd *cobra.Command) (io.ReadCloser, error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// readDocument reads the YAML or JSON event document named by --input.
func readDocument(cmd *cobra.Command) *event.Document {
	r, err := openInput(cmd)
	if err != nil {
		exitErr("open input", err)
	}
	defer r.Close()

	doc, err := event.DecodeDocument(r)
	if err != nil {
		exitErr("read events", err)
	}
	return doc
}

func decodeEvents(envs []event.Envelope) []event.Event {
	events, err := event.Decode(envs)
	if err != nil {
		exitErr("decode events", err)
	}
	return events
}

func extractContext(doc *event.Document) extract.Context {
	return extract.Context{EntityNames: doc.Entities}
}

// worldOf returns --world, falling back to the document's world.
func worldOf(cmd *cobra.Command, doc *event.Document) string {
	world, _ := cmd.Flags().GetString("world")
	if world == "" && doc != nil {
		world = doc.World
	}
	return world
}
