// Package main provides the videorag CLI: ingest lecture captions, embed the
// stored chunks and ask questions against the index.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/video-rag/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "videorag",
	Short: "Question answering over lecture videos",
	Long: `CLI tool for the lecture video RAG pipeline.

Stages run in order: ingest stores caption chunks with frames in Cassandra,
embed builds the Qdrant index from them, ask answers questions and cuts the
cited clip.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")
	rootCmd.AddCommand(ingestCmd, embedCmd, askCmd, retrieveCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
