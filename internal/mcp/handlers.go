package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/video-rag/internal/answer"
	"github.com/bull/video-rag/internal/query"
	"github.com/bull/video-rag/internal/storage"
)

// makeAskHandler creates the ask_lectures tool handler.
// Outcomes that still carry an answer (unparseable reply, failed clip) are
// reported through Message rather than as tool errors.
func makeAskHandler(svc QueryService) func(
	context.Context, *mcp.CallToolRequest, AskLecturesInput,
) (*mcp.CallToolResult, AskLecturesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskLecturesInput) (
		*mcp.CallToolResult, AskLecturesOutput, error,
	) {
		resp, err := svc.Ask(ctx, input.Question)
		switch {
		case errors.Is(err, query.ErrNoContext):
			return nil, AskLecturesOutput{
				Message: "No indexed lecture content matched the question. Has the embed stage run?",
			}, nil
		case resp == nil && err != nil:
			return nil, AskLecturesOutput{}, fmt.Errorf("failed to answer question: %w", err)
		}

		out := askOutput(resp)
		switch {
		case errors.Is(err, answer.ErrParse):
			out.Answer = resp.Reply
			out.Message = "The answer did not cite a video segment: " + err.Error()
		case errors.Is(err, query.ErrClip):
			out.Message = "Clip extraction failed: " + err.Error()
		case err != nil:
			return nil, AskLecturesOutput{}, fmt.Errorf("failed to answer question: %w", err)
		}
		return nil, out, nil
	}
}

func askOutput(resp *query.Response) AskLecturesOutput {
	return AskLecturesOutput{
		Answer:       resp.Answer,
		VideoID:      resp.Metadata.VideoID,
		StartSeconds: resp.Metadata.Start,
		EndSeconds:   resp.Metadata.End,
		Clip:         resp.ClipURI,
		Cached:       resp.Cached,
	}
}

// makeSearchHandler creates the search_lectures tool handler.
// Returns merged context blocks without calling the language model.
func makeSearchHandler(svc QueryService) func(
	context.Context, *mcp.CallToolRequest, SearchLecturesInput,
) (*mcp.CallToolResult, SearchLecturesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchLecturesInput) (
		*mcp.CallToolResult, SearchLecturesOutput, error,
	) {
		limit := input.MaxResults
		if limit <= 0 {
			limit = query.DefaultTopK
		}

		blocks, err := svc.Retrieve(ctx, input.Query, limit)
		if err != nil {
			return nil, SearchLecturesOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(blocks) == 0 {
			return nil, SearchLecturesOutput{
				Results: []SegmentResult{},
				Message: "No matching segments found. Try broader search terms.",
			}, nil
		}

		results := make([]SegmentResult, 0, len(blocks))
		for _, b := range blocks {
			results = append(results, SegmentResult{
				VideoID:      b.VideoID,
				Title:        b.Title,
				StartSeconds: b.Start,
				EndSeconds:   b.End,
				Text:         b.Text,
			})
		}
		return nil, SearchLecturesOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// The document store and commit source are optional.
func makeStatusHandler(index IndexInfo, docs ChunkCounter, commits CommitSource) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{StoredChunks: -1}

		info, err := index.GetCollectionInfo(ctx)
		switch {
		case errors.Is(err, storage.ErrCollectionNotFound):
		case err != nil:
			return nil, StatusOutput{}, fmt.Errorf("qdrant_error: failed to get collection info: %w", err)
		default:
			out.Collection = info.Name
			out.Indexed = info.PointsCount > 0
			out.Points = info.PointsCount
		}

		if docs != nil {
			// A down document store does not make the index unusable
			if n, err := docs.Count(ctx); err == nil {
				out.StoredChunks = n
				if pending := n - int64(out.Points); pending > 0 {
					out.PendingChunks = pending
				}
			}
		}

		if commits != nil {
			if sha, err := commits.LatestCommitSHA(ctx); err == nil {
				out.SourceCommit = sha
			}
		}

		return nil, out, nil
	}
}
