package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/video-rag/internal/app"
	"github.com/bull/video-rag/internal/chunker"
	"github.com/bull/video-rag/internal/config"
	"github.com/bull/video-rag/internal/ingest"
	"github.com/bull/video-rag/internal/video"
)

var (
	ingestReset   bool
	ingestSource  string
	ingestDataset string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk caption tracks and store them with sampled frames",
	Long: `Reads lecture samples (caption track, info JSON, video), splits the
captions into fixed windows, samples one frame per window and stores the
chunks in Cassandra.

Environment variables:
  CASSANDRA_HOSTS     Comma separated contact points (default: localhost)
  CASSANDRA_KEYSPACE  Keyspace (default: video_and_subtitle_rag)
  DATASET_PATH        Webdataset tar for --source tar
  VIDEOS_DIR          Where ingested videos are kept for clipping
  GITHUB_TOKEN        GitHub token for --source github (optional)`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "clear the document store first")
	ingestCmd.Flags().StringVar(&ingestSource, "source", app.SourceTar, "sample source: tar or github")
	ingestCmd.Flags().StringVar(&ingestDataset, "dataset", "", "webdataset tar path (overrides config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ingestDataset != "" {
		cfg.Ingest.Dataset = ingestDataset
	}

	fmt.Println("Starting ingestion...")
	fmt.Println()

	fmt.Printf("Connecting to Cassandra at %v...\n", cfg.Cassandra.Hosts)
	docs, err := app.OpenDocStore(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("Failed to open document store: %w", err)
	}
	defer docs.Close()

	if ingestReset {
		fmt.Println("Clearing document store...")
		if err := docs.Clear(ctx); err != nil {
			return fmt.Errorf("Failed to clear document store: %w", err)
		}
	}

	src, err := app.NewSource(cfg, ingestSource, slog.Default())
	if err != nil {
		return err
	}

	sampler := func(path string) chunker.FrameSampler {
		return video.NewSampler(path, slog.Default()).Func()
	}
	pipeline := ingest.NewPipeline(src, chunker.NewChunker(cfg.Ingest.WindowSeconds), sampler, docs,
		cfg.Ingest.Concurrency, slog.Default()).WithVideosDir(cfg.Query.VideosDir)

	fmt.Printf("Ingesting samples from %s source...\n", ingestSource)
	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("Ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Samples: %d/%d\n", result.Succeeded, result.Total)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	printFailures("Skipped samples:", result.Skipped)
	printFailures("Failed samples:", result.Failed)

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func printFailures(title string, samples []ingest.FailedSample) {
	if len(samples) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(title)
	for _, s := range samples {
		fmt.Printf("  - %s: %s\n", s.Key, s.Reason)
	}
}
