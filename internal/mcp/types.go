// Package mcp exposes the lecture question answering pipeline as MCP tools.
package mcp

// AskLecturesInput defines the input parameters for the ask_lectures tool.
type AskLecturesInput struct {
	// Question is asked against the indexed lecture transcripts and frames.
	Question string `json:"question" jsonschema:"the question to answer from the lecture videos"`
}

// AskLecturesOutput contains the answer and the clip it cites.
type AskLecturesOutput struct {
	// Answer is the free-text part of the model reply.
	Answer string `json:"answer"`
	// VideoID identifies the cited lecture.
	VideoID string `json:"video_id,omitempty"`
	// StartSeconds and EndSeconds bound the cited segment.
	StartSeconds int `json:"start_seconds"`
	EndSeconds   int `json:"end_seconds"`
	// Clip is where the extracted segment can be found (local path or s3:// URI).
	Clip string `json:"clip,omitempty"`
	// Cached reports whether the reply came from the answer cache.
	Cached bool `json:"cached"`
	// Message provides informational context (e.g., "Clip extraction failed").
	Message string `json:"message,omitempty"`
}

// SearchLecturesInput defines the input parameters for the search_lectures tool.
type SearchLecturesInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"the semantic search query for finding relevant lecture segments"`
	// MaxResults is the number of chunks retrieved before merging.
	MaxResults int `json:"max_results,omitempty" jsonschema:"number of chunks to retrieve before merging per video (default 15)"`
}

// SearchLecturesOutput contains the merged context blocks.
type SearchLecturesOutput struct {
	// Results is one entry per contiguous segment of a video.
	Results []SegmentResult `json:"results"`
	// Message provides informational context (e.g., "No matching segments found").
	Message string `json:"message,omitempty"`
}

// SegmentResult is one merged block of transcript from a single video.
type SegmentResult struct {
	VideoID      string  `json:"video_id"`
	Title        string  `json:"title"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct{}

// StatusOutput reports how much content each store holds.
type StatusOutput struct {
	// Collection is the vector store collection name.
	Collection string `json:"collection"`
	// Indexed is false until the embed stage has uploaded points.
	Indexed bool `json:"indexed"`
	// Points is the number of fused vectors in the collection.
	Points uint64 `json:"points"`
	// StoredChunks is the number of chunks in the document store, -1 when unavailable.
	StoredChunks int64 `json:"stored_chunks"`
	// PendingChunks is StoredChunks minus Points when both are known.
	PendingChunks int64 `json:"pending_chunks,omitempty"`
	// SourceCommit is the latest commit of the GitHub dataset, when configured.
	SourceCommit string `json:"source_commit,omitempty"`
}
