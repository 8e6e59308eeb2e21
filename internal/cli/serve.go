package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-memory/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory API over HTTP",
		Long:  "Serve the JSON API on --listen (default: http.listen). Stops gracefully on SIGINT or SIGTERM.",
		Run:   runServe,
	}

	cmd.Flags().String("listen", "", "Listen address (default: http.listen)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	addr := a.cfg.HTTP.Listen
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		addr = listen
	}

	router := api.NewRouter(a.svc, a.log, api.Options{
		HistoryLength: a.cfg.Summary.HistoryLength,
		MaxBodyBytes:  a.cfg.HTTP.MaxBodyBytes,
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		a.log.Info("story-memory server starting", "addr", addr, "db", a.cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		a.Close()
		exitErr("serve", err)
	case <-done:
	}
	a.log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error("shutdown error", "error", err)
	}

	a.log.Info("server stopped")
}
