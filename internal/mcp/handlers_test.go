package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/video-rag/internal/answer"
	"github.com/bull/video-rag/internal/query"
	"github.com/bull/video-rag/internal/retrieval"
	"github.com/bull/video-rag/internal/storage"
)

type fakeQuery struct {
	resp      *query.Response
	err       error
	blocks    []retrieval.ContextBlock
	lastLimit int
}

func (f *fakeQuery) Ask(ctx context.Context, question string) (*query.Response, error) {
	return f.resp, f.err
}

func (f *fakeQuery) Retrieve(ctx context.Context, question string, limit int) ([]retrieval.ContextBlock, error) {
	f.lastLimit = limit
	return f.blocks, f.err
}

type fakeIndex struct {
	info *storage.CollectionInfo
	err  error
}

func (f fakeIndex) GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error) {
	return f.info, f.err
}

type fakeCounter struct {
	n   int64
	err error
}

func (f fakeCounter) Count(ctx context.Context) (int64, error) { return f.n, f.err }

type fakeCommits string

func (f fakeCommits) LatestCommitSHA(ctx context.Context) (string, error) { return string(f), nil }

func answered() *query.Response {
	return &query.Response{
		Question: "what is dropout?",
		Reply:    "Answer: Dropout zeroes activations.\n\nVideo ID: v1\nStart Time: 1 minutes and 0 seconds\nEnd Time: 2 minutes and 5 seconds",
		Answer:   "Dropout zeroes activations.",
		Metadata: answer.Metadata{VideoID: "v1", Start: 60, End: 125},
		ClipPath: "/tmp/clips/a.mp4",
		ClipURI:  "s3://bucket/clips/a.mp4",
	}
}

func TestAskHandler_Answer(t *testing.T) {
	handler := makeAskHandler(&fakeQuery{resp: answered()})

	_, out, err := handler(context.Background(), nil, AskLecturesInput{Question: "what is dropout?"})
	require.NoError(t, err)

	assert.Equal(t, "Dropout zeroes activations.", out.Answer)
	assert.Equal(t, "v1", out.VideoID)
	assert.Equal(t, 60, out.StartSeconds)
	assert.Equal(t, 125, out.EndSeconds)
	assert.Equal(t, "s3://bucket/clips/a.mp4", out.Clip)
	assert.Empty(t, out.Message)
}

func TestAskHandler_NoContext(t *testing.T) {
	handler := makeAskHandler(&fakeQuery{err: query.ErrNoContext})

	_, out, err := handler(context.Background(), nil, AskLecturesInput{Question: "q"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "No indexed lecture content")
}

func TestAskHandler_UnparseableReplyKeepsAnswer(t *testing.T) {
	resp := &query.Response{Reply: "I am not sure.", Answer: "I am not sure."}
	parseErr := &answer.ParseError{Missing: []string{"Video ID"}, Answer: resp.Reply}
	handler := makeAskHandler(&fakeQuery{resp: resp, err: parseErr})

	_, out, err := handler(context.Background(), nil, AskLecturesInput{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "I am not sure.", out.Answer)
	assert.Contains(t, out.Message, "Video ID")
	assert.Empty(t, out.VideoID)
}

func TestAskHandler_ClipFailureKeepsAnswer(t *testing.T) {
	resp := answered()
	resp.ClipPath, resp.ClipURI = "", ""
	handler := makeAskHandler(&fakeQuery{resp: resp, err: fmt.Errorf("%w: v1 [60, 125]: missing", query.ErrClip)})

	_, out, err := handler(context.Background(), nil, AskLecturesInput{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "v1", out.VideoID)
	assert.Empty(t, out.Clip)
	assert.Contains(t, out.Message, "Clip extraction failed")
}

func TestAskHandler_Failure(t *testing.T) {
	handler := makeAskHandler(&fakeQuery{err: errors.New("llm down")})

	_, _, err := handler(context.Background(), nil, AskLecturesInput{Question: "q"})
	assert.ErrorContains(t, err, "llm down")
}

func TestSearchHandler(t *testing.T) {
	fq := &fakeQuery{blocks: []retrieval.ContextBlock{
		{VideoID: "v1", Title: "Intro", Start: 0, End: 60, Text: "hello"},
	}}
	handler := makeSearchHandler(fq)

	_, out, err := handler(context.Background(), nil, SearchLecturesInput{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, query.DefaultTopK, fq.lastLimit)
	require.Len(t, out.Results, 1)
	assert.Equal(t, SegmentResult{VideoID: "v1", Title: "Intro", StartSeconds: 0, EndSeconds: 60, Text: "hello"}, out.Results[0])

	_, _, err = handler(context.Background(), nil, SearchLecturesInput{Query: "hello", MaxResults: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, fq.lastLimit)
}

func TestSearchHandler_NoResults(t *testing.T) {
	handler := makeSearchHandler(&fakeQuery{})

	_, out, err := handler(context.Background(), nil, SearchLecturesInput{Query: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestStatusHandler(t *testing.T) {
	index := fakeIndex{info: &storage.CollectionInfo{Name: "video_chunks_multimodal", PointsCount: 40}}
	handler := makeStatusHandler(index, fakeCounter{n: 42}, fakeCommits("abc123"))

	_, out, err := handler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.True(t, out.Indexed)
	assert.Equal(t, uint64(40), out.Points)
	assert.Equal(t, int64(42), out.StoredChunks)
	assert.Equal(t, int64(2), out.PendingChunks)
	assert.Equal(t, "abc123", out.SourceCommit)
}

func TestStatusHandler_NotIndexedYet(t *testing.T) {
	handler := makeStatusHandler(fakeIndex{err: storage.ErrCollectionNotFound}, fakeCounter{err: errors.New("down")}, nil)

	_, out, err := handler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.False(t, out.Indexed)
	assert.Equal(t, int64(-1), out.StoredChunks)
}

func TestStatusHandler_QdrantError(t *testing.T) {
	handler := makeStatusHandler(fakeIndex{err: errors.New("unavailable")}, nil, nil)

	_, _, err := handler(context.Background(), nil, StatusInput{})
	assert.ErrorContains(t, err, "qdrant_error")
}
