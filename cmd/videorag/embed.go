package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/video-rag/internal/app"
	"github.com/bull/video-rag/internal/config"
	"github.com/bull/video-rag/internal/embedding"
	"github.com/bull/video-rag/internal/indexer"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Rebuild the vector index from the stored chunks",
	Long: `Embeds the text and frame of every stored chunk, fuses the two vectors
and replaces the Qdrant collection with the result. When no chunk can be
embedded the collection is left untouched and the status is noop.

Environment variables:
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  EMBEDDING_PROVIDER  cohere or openai (default: cohere)
  COHERE_API_KEY      Cohere API key for the cohere provider
  OPENAI_API_KEY      OpenAI API key for the openai provider`,
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Println("Starting embedding...")
	fmt.Println()

	docs, err := app.OpenDocStore(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("Failed to open document store: %w", err)
	}
	defer docs.Close()

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	vectors, err := app.OpenVectorStore(cfg)
	if err != nil {
		return fmt.Errorf("Failed to connect to Qdrant: %w", err)
	}
	defer vectors.Close()
	fmt.Println("Qdrant healthy")

	var oa *embedding.Client
	if cfg.Embedding.Provider == embedding.ProviderOpenAI {
		if oa, err = embedding.NewClient(); err != nil {
			return fmt.Errorf("Failed to create embedding client: %w", err)
		}
	}
	embedder, err := app.NewEmbedder(cfg, oa)
	if err != nil {
		return fmt.Errorf("Failed to create embedder: %w", err)
	}

	pipeline := indexer.NewPipeline(docs, embedder, vectors, cfg.Embedding.BatchSize, slog.Default())
	result, err := pipeline.IndexAll(ctx)
	if err != nil {
		return fmt.Errorf("Embedding failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("  Chunks: %d (skipped %d)\n", result.TotalChunks, result.SkippedChunks)
	fmt.Printf("  Points: %d\n", result.Points)
	if result.Dimension > 0 {
		fmt.Printf("  Dimension: %d\n", result.Dimension)
	}
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.FailedChunks) > 0 {
		fmt.Println()
		fmt.Println("Failed chunks:")
		for _, failed := range result.FailedChunks {
			fmt.Printf("  - %s/%d: %s\n", failed.VideoID, failed.ChunkIndex, failed.Reason)
		}
	}
	return nil
}
