// Package cli implements the story-memory CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/config"
	"github.com/rcliao/story-memory/internal/logger"
	"github.com/rcliao/story-memory/internal/memory"
	"github.com/rcliao/story-memory/internal/store"
	"github.com/rcliao/story-memory/internal/store/inmemory"
)

var configDir string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "story-memory",
	Short: "Narrative memory and coherence for story worlds",
	Long: "Turns story events into facts, summarizes them into memoranda at chapter, arc and world scale, " +
		"and reports contradictions. SQLite-backed, single binary.",
	SilenceUsage: true,
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringP("db", "d", "", "Database path, or :memory: (default: $STORY_MEMORY_DB_PATH or ~/.story-memory/memory.db)")
	pf.StringVar(&configDir, "config", defaultConfigDir(), "Directory holding config.toml or config.yaml")
	pf.String("log-level", "", "Log level: info or debug")
	pf.String("log-format", "", "Log format: text, json or pretty")
}

func defaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".story-memory")
}

// loadConfig merges defaults, the config file, STORY_MEMORY_* variables and
// the persistent flags, in increasing precedence.
func loadConfig() (*config.Config, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	pf := RootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"db_path":    "db",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return config.FromViper(v)
}

// app bundles what a command needs to run against the configured store.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store store.Store
	svc   *memory.Service
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
}

// openApp loads the configuration, opens the store and builds the service.
// It exits the process on failure.
func openApp() *app {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	log := logger.New(
		logger.WithDebug(cfg.Log.Level == "debug"),
		logger.WithFormat(cfg.Log.Format),
		logger.WithSource(cfg.Log.Source),
	)

	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	log.Debug("opened store", "db", cfg.DBPath)

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		svc:   memory.NewService(st, memory.WithLogger(log)),
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.InMemory() {
		return inmemory.New(), nil
	}
	return store.NewSQLiteStore(cfg.DBPath)
}

// addWorldFlag registers the required --world flag.
func addWorldFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("world", "w", "", "World id (required)")
	cmd.MarkFlagRequired("world")
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	if code := apperrors.CodeOf(err); code != apperrors.CodeUnknown {
		fmt.Fprintf(os.Stderr, "error: %s: [%s] %v\n", msg, code, err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	}
	os.Exit(1)
}
