// Package pipeline answers a user question by running retrieval, ranking,
// enrichment, context assembly and the language model in sequence.
//
// Every stage records its failure on the request state instead of returning
// it, and Run always produces a non-empty answer.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/assembler"
	"github.com/raphaelgruber/podcastrag/internal/llm"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/ranking"
	"github.com/raphaelgruber/podcastrag/internal/retrieval"
)

// ErrNoResponse is reported when the model returned an empty answer.
const ErrNoResponse = "no LLM response generated"

// DefaultMinWords is the shortest message answered without asking the user
// to clarify.
const DefaultMinWords = 3

// Retriever finds candidate segments for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) retrieval.Result
}

// Enricher attaches episode metadata.
type Enricher interface {
	Enrich(ctx context.Context, segments []models.Segment) models.MetadataMap
}

// ContextBuilder renders segments into model context.
type ContextBuilder interface {
	Build(segments []models.Segment, metadata models.MetadataMap) assembler.Result
}

// Deps are the collaborators of a Pipeline. Detector and Recorder are
// optional.
type Deps struct {
	Retriever Retriever
	Enricher  Enricher
	Builder   ContextBuilder
	Completer llm.Completer
	Detector  LanguageDetector
	Recorder  Recorder
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

// Options tunes the pipeline.
type Options struct {
	MinWords   int
	Completion llm.CompleteOptions
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		MinWords:   DefaultMinWords,
		Completion: llm.CompleteOptions{MaxTokens: 512, Temperature: 0.2},
	}
}

// Request is one user turn.
type Request struct {
	Message  string            `json:"message"`
	Language string            `json:"language,omitempty"`
	History  []models.ChatTurn `json:"chat_history,omitempty"`
}

// Response is what the caller shows the user. Response is never empty.
type Response struct {
	RequestID     string           `json:"request_id"`
	Response      string           `json:"response"`
	Error         string           `json:"error,omitempty"`
	Clarification bool             `json:"clarification,omitempty"`
	Language      Language         `json:"language"`
	Citations     []Citation       `json:"citations,omitempty"`
	Segments      []models.Segment `json:"segments,omitempty"`
	Stage         Stage            `json:"stage"`
}

// Pipeline runs questions through the stages. It holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Detector == nil {
		deps.Detector = KeywordDetector{}
	}
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.MinWords <= 0 {
		opts.MinWords = DefaultMinWords
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Run answers one request.
func (p *Pipeline) Run(ctx context.Context, req Request) Response {
	st := newState(req)
	st.Language = p.resolveLanguage(req)

	p.execute(ctx, st)
	p.record(ctx, st)
	p.finish(st)

	p.deps.Metrics.RecordTiming(metrics.OpPipeline, time.Since(st.Started))
	p.deps.Logger.Info("pipeline finished",
		"request_id", st.RequestID,
		"stage", st.Stage,
		"segments", len(st.Segments),
		"error", st.Error,
		"duration_ms", time.Since(st.Started).Milliseconds(),
	)

	return Response{
		RequestID:     st.RequestID.String(),
		Response:      st.LLMResponse,
		Error:         st.Error,
		Clarification: st.Clarification,
		Language:      st.Language,
		Citations:     citationsFor(st),
		Segments:      st.Segments,
		Stage:         st.Stage,
	}
}

// execute runs the stages up to citation. A panic in any stage leaves the
// state in the error stage.
func (p *Pipeline) execute(ctx context.Context, st *State) {
	defer func() {
		if r := recover(); r != nil {
			p.deps.Logger.Error("pipeline stage panicked", "request_id", st.RequestID, "stage", st.Stage, "panic", r)
			st.fail(fmt.Sprintf("pipeline panicked after %s: %v", st.Stage, r))
		}
	}()

	if needsClarification(st.UserMessage, p.opts.MinWords) {
		st.Clarification = true
		st.LLMResponse = phrasesFor(st.Language).clarify
		st.advance(StageClarifyNeeded)
		return
	}

	p.timed(StageRetrieved, func() {
		res := p.deps.Retriever.Retrieve(ctx, st.UserMessage)
		st.Segments = res.Segments
		st.RetrievalStats = res.Stats
	})
	st.advance(StageRetrieved)
	st.advance(StageLanguageSet)

	st.Segments = ranking.Dedup(st.Segments)
	st.advance(StageDeduped)

	st.Segments = ranking.Rank(st.Segments)
	st.advance(StageRanked)

	p.timed(StageMetadataEnriched, func() {
		st.Metadata = p.deps.Enricher.Enrich(ctx, st.Segments)
	})
	st.advance(StageMetadataEnriched)

	built := p.deps.Builder.Build(st.Segments, st.Metadata)
	st.Context, st.ContextTokens, st.Truncated = built.Text, built.Tokens, built.Truncated
	st.advance(StageContextBuilt)

	p.timed(StageLLMCalled, func() {
		messages := llm.BuildMessages(string(st.Language), st.Context, st.ChatHistory, st.UserMessage)
		answer, err := p.deps.Completer.Complete(ctx, messages, p.opts.Completion)
		if err != nil {
			st.LLMError = err.Error()
			p.deps.Logger.Warn("llm call failed", "request_id", st.RequestID, "error", err)
			return
		}
		st.LLMResponse = strings.TrimSpace(answer)
	})
	st.advance(StageLLMCalled)

	if st.LLMError == "" && st.LLMResponse != "" {
		if refs := FormatReferences(st.Language, Citations(st.Metadata)); refs != "" {
			st.LLMResponse += "\n\n" + refs
		}
	}
	st.advance(StageCited)
}

// record writes the run to the recorder. Recorder panics are swallowed.
func (p *Pipeline) record(ctx context.Context, st *State) {
	defer func() {
		if r := recover(); r != nil {
			p.deps.Logger.Error("pipeline recorder panicked", "request_id", st.RequestID, "panic", r)
		}
	}()

	if !st.Stage.Terminal() {
		st.advance(StageLogged)
	}
	p.deps.Recorder.Record(ctx, st)
}

// finish guarantees a user-presentable answer.
func (p *Pipeline) finish(st *State) {
	apology := phrasesFor(st.Language).apology
	switch {
	case st.Stage == StageError:
		st.LLMResponse = apology
	case st.LLMError != "":
		st.Error = st.LLMError
		st.LLMResponse = apology
	case st.LLMResponse == "":
		st.Error = ErrNoResponse
		st.LLMResponse = apology
	}

	if !st.Stage.Terminal() {
		st.advance(StageDone)
	}
}

func (p *Pipeline) resolveLanguage(req Request) Language {
	if lang, ok := ParseLanguage(req.Language); ok {
		return lang
	}
	return p.deps.Detector.Detect(req.Message)
}

func (p *Pipeline) timed(stage Stage, fn func()) {
	start := time.Now()
	fn()
	p.deps.Metrics.RecordTiming(metrics.OpPipeline+"."+string(stage), time.Since(start))
}

func needsClarification(message string, minWords int) bool {
	return len(strings.Fields(message)) < minWords
}

func citationsFor(st *State) []Citation {
	if st.Clarification || st.LLMError != "" || st.Stage == StageError {
		return nil
	}
	return Citations(st.Metadata)
}

func segmentRef(episode, chunk int) string {
	return fmt.Sprintf("%d/%d", episode, chunk)
}
