package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/music-assist/backend/internal/adapters/driving/watcher"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest crawled documents from a directory",
	Long: `Reads crawler output files (*.json) from a directory and ingests
them into the searchable index. Documents whose text is unchanged
since the last run are skipped without re-embedding.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := initServices(ctx); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir := args[0]
	raws, loadErrs := watcher.LoadDir(dir)
	if len(raws) == 0 && len(loadErrs) > 0 {
		return loadErrs[0]
	}
	for _, err := range loadErrs {
		cmd.PrintErrf("Skipping: %v\n", err)
	}
	if len(raws) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Printf("Ingesting %d documents from %s...\n", len(raws), dir)

	report, err := ingestService.IngestBatch(ctx, raws)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Done: %d ingested, %d unchanged, %d failed.\n",
		report.Ingested, report.Unchanged, report.Failed)
	return nil
}
