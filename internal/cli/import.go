package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import memoranda from JSON",
		Long:  "Import memoranda from JSON (stdin or -i). Expects the format produced by export. Existing ids are replaced.",
		Run:   runImport,
	}

	addInputFlag(cmd, "Export file")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	r, err := openInput(cmd)
	if err != nil {
		exitErr("open input", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		exitErr("read input", err)
	}

	var memoranda []model.Memorandum
	if err := json.Unmarshal(data, &memoranda); err != nil {
		exitErr("parse json", err)
	}

	a := openApp()
	defer a.Close()

	imported, err := store.Import(cmd.Context(), a.store, memoranda)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
