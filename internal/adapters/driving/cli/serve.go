package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/music-assist/backend/internal/adapters/driving/httpapi"
	"github.com/music-assist/backend/internal/adapters/driving/watcher"
	"github.com/music-assist/backend/internal/logger"
)

var (
	serveHost  string
	servePort  int
	serveWatch string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP API server exposing the chat, stats and ingestion
endpoints. With --watch, a crawl directory is monitored and new
crawler output is ingested as it appears.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "crawl directory to watch (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initServices(ctx); err != nil {
		return err
	}
	if application == nil {
		return errors.New("application not configured")
	}

	cfg := httpapi.Config{
		Host:     application.Config.ServerHost,
		Port:     application.Config.ServerPort,
		Mode:     application.Config.ServerMode,
		AdminKey: application.Config.AdminKey,
		Version:  version,
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort > 0 {
		cfg.Port = servePort
	}
	if cfg.Host == "" {
		cfg.Host = httpapi.DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = httpapi.DefaultPort
	}

	server := httpapi.NewServer(cfg, answerService, statsService, ingestService)

	crawlDir := application.Config.CrawlDir
	if serveWatch != "" {
		crawlDir = serveWatch
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("HTTP API listening on %s:%d", cfg.Host, cfg.Port)
		errCh <- server.Start()
	}()

	if crawlDir != "" {
		w := watcher.New(crawlDir, ingestService)
		go func() {
			logger.Info("Watching crawl directory %s", crawlDir)
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		cmd.Println("Shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
