package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shulebot/shulebot/internal/catalog"
	"github.com/shulebot/shulebot/internal/classify"
	"github.com/shulebot/shulebot/internal/config"
	"github.com/shulebot/shulebot/internal/db"
	"github.com/shulebot/shulebot/internal/engine"
	"github.com/shulebot/shulebot/internal/handlers"
	"github.com/shulebot/shulebot/internal/llm"
	"github.com/shulebot/shulebot/internal/server"
	"github.com/shulebot/shulebot/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat routing server",
	Long:  `Starts the HTTP/WebSocket chat server that routes free-form messages to school-management operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "shulebot.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}
		if cfg.RateLimitRPM > 0 {
			provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)
		}

		store := catalog.NewStore(database)
		cache := catalog.NewCache(store, time.Duration(cfg.Routing.CacheCheckSeconds)*time.Second)
		if !cache.ForceReload(cmd.Context()) {
			log.Printf("serve: initial catalog load failed, starting with an empty catalog")
		}
		if verbose {
			log.Printf("serve: serving config version %q", cache.ServedVersion())
		}

		sessions := session.NewStore(database, time.Duration(cfg.Routing.StateTTLMinutes)*time.Minute)
		dispatcher := handlers.NewRegistry(handlers.NewClient(cfg.SchoolAPIURL))
		model := classify.NewModelClassifier(provider, cfg.Model,
			time.Duration(cfg.Routing.ClassifyTimeoutMs)*time.Millisecond)
		orchestrator := engine.New(cache, model, sessions, dispatcher, cfg.Routing.MinConfidence)

		srv := server.New(server.Config{Port: cfg.Port, AllowAll: cfg.AllowAll}, orchestrator, cache)

		// Sweep abandoned sessions in the background.
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go sweepSessions(sweepCtx, sessions)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Printf("serve: received %s, shutting down", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func sweepSessions(ctx context.Context, sessions *session.Store) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.Sweep(ctx); err != nil {
				log.Printf("serve: session sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("serve: swept %d expired sessions", n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
