// Package cli provides the command-line interface for music-assist.
// It implements a driving adapter following hexagonal architecture
// principles.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/music-assist/backend/internal/app"
	"github.com/music-assist/backend/internal/core/ports/driving"
	"github.com/music-assist/backend/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Driving services the commands run against. Populated from the
// shared application on first use; tests inject mocks directly.
var (
	answerService driving.AnswerService
	statsService  driving.StatsService
	ingestService driving.IngestService

	application *app.App
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "music-assist",
	Short: "Grounded Q&A over a music-ministry knowledge base",
	Long: `music-assist answers questions about music callings, policy and
conducting, grounded in an indexed corpus of crawled documents.
Answers cite the source documents they draw on.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// initServices wires the package-level services from the shared
// application unless a test has already injected them.
func initServices(ctx context.Context) error {
	if answerService != nil && statsService != nil && ingestService != nil {
		return nil
	}

	a, err := app.Shared(ctx)
	if err != nil {
		return fmt.Errorf("initialise application: %w", err)
	}

	application = a
	answerService = a.Answers
	statsService = a.Stats
	ingestService = a.Ingestor
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if application != nil {
			application.Close()
		}
	}()
	return rootCmd.Execute()
}
