package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/video-rag/internal/answer"
	"github.com/bull/video-rag/internal/app"
	"github.com/bull/video-rag/internal/config"
	"github.com/bull/video-rag/internal/query"
	"github.com/bull/video-rag/internal/retrieval"
)

var retrieveLimit int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question and cut the cited clip",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <question>",
	Short: "Print the merged context a question retrieves, without asking the model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVar(&retrieveLimit, "limit", query.DefaultTopK, "number of chunks to retrieve before merging")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	stack, err := app.NewQueryStack(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer stack.Close()

	resp, err := stack.Service.Ask(ctx, strings.Join(args, " "))
	if resp == nil {
		return err
	}

	if errors.Is(err, answer.ErrParse) {
		fmt.Println(resp.Reply)
		fmt.Println()
		return err
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	fmt.Printf("Video ID: %s\n", resp.Metadata.VideoID)
	fmt.Printf("Start Time: %s\n", answer.FormatMinutes(resp.Metadata.Start))
	fmt.Printf("End Time: %s\n", answer.FormatMinutes(resp.Metadata.End))
	if resp.Cached {
		fmt.Println("(cached answer)")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Clip: %s\n", resp.ClipURI)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	stack, err := app.NewQueryStack(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer stack.Close()

	blocks, err := stack.Service.Retrieve(ctx, strings.Join(args, " "), retrieveLimit)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		fmt.Println("No matching segments found.")
		return nil
	}
	fmt.Println(retrieval.FormatContext(blocks))
	return nil
}
