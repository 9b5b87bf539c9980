package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/video-rag/internal/query"
	"github.com/bull/video-rag/internal/retrieval"
	"github.com/bull/video-rag/internal/storage"
)

// QueryService answers and retrieves. *query.Service implements it.
type QueryService interface {
	Ask(ctx context.Context, question string) (*query.Response, error)
	Retrieve(ctx context.Context, question string, limit int) ([]retrieval.ContextBlock, error)
}

// IndexInfo reports vector store statistics.
type IndexInfo interface {
	GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
}

// ChunkCounter reports how many chunks the document store holds.
type ChunkCounter interface {
	Count(ctx context.Context) (int64, error)
}

// CommitSource reports the latest commit of the dataset repository.
type CommitSource interface {
	LatestCommitSHA(ctx context.Context) (string, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	query  QueryService
}

// Config holds server dependencies. Docs and Commits may be nil.
type Config struct {
	Query   QueryService
	Index   IndexInfo
	Docs    ChunkCounter
	Commits CommitSource
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "lecture-video-rag",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_lectures",
		Description: "Answer a question from the indexed lecture videos. Returns the answer, the cited video and time range, and the location of the extracted clip.",
	}, makeAskHandler(cfg.Query))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_lectures",
		Description: "Search lecture transcripts semantically. Returns matching segments merged per video, without generating an answer.",
	}, makeSearchHandler(cfg.Query))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the lecture index including vector counts and stored chunk counts.",
	}, makeStatusHandler(cfg.Index, cfg.Docs, cfg.Commits))

	return &Server{
		server: server,
		query:  cfg.Query,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Query returns the service behind the tools, for the web pages.
func (s *Server) Query() QueryService {
	return s.query
}
