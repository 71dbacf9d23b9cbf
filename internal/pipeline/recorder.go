package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/config"
)

// Recorder persists a finished run for later analysis. Implementations must
// not fail the request.
type Recorder interface {
	Record(ctx context.Context, st *State)
}

// NopRecorder discards runs.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, *State) {}

// JSONLRecorder appends one JSON object per run to a file.
type JSONLRecorder struct {
	logger *slog.Logger
	close  func() error
}

// NewJSONLRecorder opens path for appending.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	logger, closeFn, err := config.OpenJSONLines(path)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{logger: logger, close: closeFn}, nil
}

// NewLoggerRecorder records runs through an existing logger.
func NewLoggerRecorder(logger *slog.Logger) *JSONLRecorder {
	return &JSONLRecorder{logger: logger, close: func() error { return nil }}
}

// Record implements Recorder.
func (r *JSONLRecorder) Record(ctx context.Context, st *State) {
	episodes := make([]int, 0, len(st.Metadata))
	for _, c := range Citations(st.Metadata) {
		episodes = append(episodes, c.EpisodeNumber)
	}
	segments := make([]string, 0, len(st.Segments))
	for _, s := range st.Segments {
		segments = append(segments, segmentRef(s.EpisodeNumber, s.ChunkIndex))
	}
	trace := make([]string, len(st.Trace))
	for i, s := range st.Trace {
		trace[i] = string(s)
	}

	r.logger.LogAttrs(ctx, slog.LevelInfo, "pipeline_run",
		slog.String("request_id", st.RequestID.String()),
		slog.String("user_message", st.UserMessage),
		slog.String("language", string(st.Language)),
		slog.Int("history_turns", len(st.ChatHistory)),
		slog.String("stage", string(st.Stage)),
		slog.Any("trace", trace),
		slog.Bool("clarification", st.Clarification),
		slog.Any("segments", segments),
		slog.Any("episodes", episodes),
		slog.Any("retrieval", st.RetrievalStats),
		slog.Int("context_tokens", st.ContextTokens),
		slog.Bool("context_truncated", st.Truncated),
		slog.String("llm_response", st.LLMResponse),
		slog.String("llm_error", st.LLMError),
		slog.String("error", st.Error),
		slog.Int64("duration_ms", time.Since(st.Started).Milliseconds()),
	)
}

// Close closes the underlying file.
func (r *JSONLRecorder) Close() error {
	return r.close()
}
