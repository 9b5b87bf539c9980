package mcp

import (
	"context"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/video-rag/internal/retrieval"
	"github.com/bull/video-rag/internal/storage"
)

func connect(t *testing.T, cfg *Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(cfg)
	ct, st := mcp.NewInMemoryTransports()

	ss, err := server.MCPServer().Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestServer_ListsTools(t *testing.T) {
	cs := connect(t, &Config{Query: &fakeQuery{}, Index: fakeIndex{err: storage.ErrCollectionNotFound}})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ask_lectures", "get_index_status", "search_lectures"}, names)
}

func TestServer_CallSearch(t *testing.T) {
	fq := &fakeQuery{blocks: []retrieval.ContextBlock{{VideoID: "v1", Title: "Intro", Start: 0, End: 30, Text: "hello"}}}
	cs := connect(t, &Config{Query: fq, Index: fakeIndex{err: storage.ErrCollectionNotFound}})

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_lectures",
		Arguments: map[string]any{"query": "hello", "max_results": 5},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 5, fq.lastLimit)
	assert.NotNil(t, res.StructuredContent)
}
