package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/guildnet/guildpoints/internal/api"
	"github.com/guildnet/guildpoints/internal/app/economy"
	"github.com/guildnet/guildpoints/internal/daemon"
	"github.com/guildnet/guildpoints/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to config file (default: ~/.guildpoints/config.toml)")
	serveCmd.Flags().String("db", "", "Override the database path")
	serveCmd.Flags().String("listen", "", "Override the listen address (host:port)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the guildpoints daemon",
	Long:  `Run the HTTP daemon: opens the ledger database, applies migrations, and serves the API until interrupted.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}
	cfg, err := daemon.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.Store.Path = dbPath
	}

	if cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0700); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	engine := economy.New(economy.Config{
		CompletedWindow: cfg.Economy.Window(),
		RecentLimit:     cfg.Economy.RecentLimit,
	}, db)

	server := api.NewServer(engine)
	if cfg.API.EnableMetrics {
		server.EnableMetrics()
	}

	addr := cfg.API.ListenAddr()
	if override, _ := cmd.Flags().GetString("listen"); override != "" {
		addr = override
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s (db: %s)", addr, cfg.Store.Path)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-stop:
		log.Printf("[daemon] received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	log.Printf("[daemon] stopped")
	return nil
}
