package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/music-assist/backend/internal/core/ports/driving"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and pipeline statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	if err := initServices(ctx); err != nil {
		return err
	}
	if statsService == nil {
		return errors.New("stats service not configured")
	}

	stats, err := statsService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load statistics: %w", err)
	}

	if statsJSON {
		return outputStatsJSON(cmd, stats)
	}

	outputStatsTable(cmd, stats)
	return nil
}

func outputStatsJSON(cmd *cobra.Command, stats *driving.Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputStatsTable(cmd *cobra.Command, stats *driving.Stats) {
	cmd.Println("Corpus:")
	cmd.Printf("  Documents:      %d\n", stats.Documents)
	cmd.Printf("  Chunks:         %d\n", stats.Chunks)
	cmd.Printf("  Vectors:        %d\n", stats.Vectors)
	cmd.Printf("  Conversations:  %d\n", stats.Conversations)
	cmd.Println()
	cmd.Println("Pipeline:")
	cmd.Printf("  Embedding model:   %s\n", stats.EmbeddingModel)
	cmd.Printf("  Generation model:  %s\n", stats.GenerationModel)
	cmd.Printf("  Chunk size:        %d\n", stats.ChunkSize)
	cmd.Printf("  Chunk overlap:     %d\n", stats.ChunkOverlap)
}
