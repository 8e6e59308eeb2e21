package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/config"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/store"
	"github.com/rcliao/story-memory/internal/store/inmemory"
)

func TestLoadConfigFromEnv(t *testing.T) {
	configDir = t.TempDir()
	t.Setenv("STORY_MEMORY_DB_PATH", config.InMemoryDB)
	t.Setenv("STORY_MEMORY_LOG_FORMAT", "json")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.InMemory() {
		t.Errorf("expected in-memory db, got %q", cfg.DBPath)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Log.Format)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default level info, got %q", cfg.Log.Level)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	configDir = t.TempDir()
	data := "db_path = \"/tmp/story.db\"\n\n[summary]\nhistory_length = 120\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DBPath != "/tmp/story.db" {
		t.Errorf("expected db path from file, got %q", cfg.DBPath)
	}
	if cfg.Summary.HistoryLength != 120 {
		t.Errorf("expected history length 120, got %d", cfg.Summary.HistoryLength)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := config.NewDefaultConfig()

	cfg.DBPath = config.InMemoryDB
	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("open in-memory: %v", err)
	}
	if _, ok := st.(*inmemory.Store); !ok {
		t.Errorf("expected *inmemory.Store, got %T", st)
	}
	st.Close()

	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "memory.db")
	st, err = openStore(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.SQLiteStore); !ok {
		t.Errorf("expected *store.SQLiteStore, got %T", st)
	}
}

func TestWorldOf(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("world", "w", "", "")
	doc := &event.Document{World: "eldoria"}

	if got := worldOf(cmd, doc); got != "eldoria" {
		t.Errorf("expected document world, got %q", got)
	}

	cmd.Flags().Set("world", "midgard")
	if got := worldOf(cmd, doc); got != "midgard" {
		t.Errorf("expected flag world, got %q", got)
	}
}
