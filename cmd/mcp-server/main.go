// Package main provides the MCP server entry point for lecture question answering.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/video-rag/internal/app"
	"github.com/bull/video-rag/internal/config"
	mcpserver "github.com/bull/video-rag/internal/mcp"
	"github.com/bull/video-rag/internal/source"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	stack, err := app.NewQueryStack(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("failed to build query service: %v", err)
	}
	defer stack.Close()

	health := map[string]mcpserver.HealthChecker{"qdrant": stack.Vectors}
	serverCfg := &mcpserver.Config{
		Query: stack.Service,
		Index: stack.Vectors,
	}
	if stack.Cache != nil {
		health["redis"] = stack.Cache
	}

	// The document store only feeds get_index_status; answering works without it
	docs, err := app.OpenDocStore(ctx, cfg, slog.Default())
	if err != nil {
		log.Printf("document store unavailable, chunk counts disabled: %v", err)
	} else {
		defer docs.Close()
		serverCfg.Docs = docs
		health["cassandra"] = docs
	}

	if cfg.Ingest.GitHubOwner != "" && cfg.Ingest.GitHubRepo != "" {
		if gh, err := source.NewGitHubClient(); err == nil {
			serverCfg.Commits = source.NewGitHubSource(gh, cfg.Ingest.GitHubOwner, cfg.Ingest.GitHubRepo,
				cfg.Ingest.GitHubPath, "", slog.Default())
		}
	}

	server := mcpserver.NewServer(serverCfg)

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(health))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, &mcpserver.HTTPHandlerOptions{Stateless: true}))
	mux.HandleFunc("/ask", mcpserver.NewAskHandler(server.Query(), cfg.Query.ClipsDir, slog.Default()))
	mux.Handle("/clips/", mcpserver.NewClipsHandler(cfg.Query.ClipsDir))
	mux.HandleFunc("/", mcpserver.NewLandingHandler())

	addr := "0.0.0.0:" + cfg.Server.Port
	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if cfg.Server.ServerMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health, questions at /)", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients
	// Also start the HTTP endpoints in background for local testing
	go func() {
		log.Printf("Starting HTTP server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Println("Starting Lecture Video RAG MCP Server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}
