package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/retrieval"
)

// Stage is a step of the question-answering state machine.
type Stage string

const (
	StageStart            Stage = "start"
	StageRetrieved        Stage = "retrieved"
	StageClarifyNeeded    Stage = "clarify_needed"
	StageLanguageSet      Stage = "language_set"
	StageDeduped          Stage = "deduped"
	StageRanked           Stage = "ranked"
	StageMetadataEnriched Stage = "metadata_enriched"
	StageContextBuilt     Stage = "context_built"
	StageLLMCalled        Stage = "llm_called"
	StageCited            Stage = "cited"
	StageLogged           Stage = "logged"
	StageDone             Stage = "done"
	StageError            Stage = "error"
)

// Terminal reports whether no further stage follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageClarifyNeeded || s == StageError
}

// State is the per-request record carried through the stages. It is owned by
// a single Run call.
type State struct {
	RequestID      uuid.UUID
	UserMessage    string
	Language       Language
	ChatHistory    []models.ChatTurn
	Segments       []models.Segment
	Metadata       models.MetadataMap
	Context        string
	ContextTokens  int
	Truncated      bool
	LLMResponse    string
	LLMError       string
	Clarification  bool
	Error          string
	Stage          Stage
	Trace          []Stage
	RetrievalStats retrieval.Stats
	Started        time.Time
}

func newState(req Request) *State {
	return &State{
		RequestID:   uuid.New(),
		UserMessage: req.Message,
		ChatHistory: req.History,
		Started:     time.Now(),
		Stage:       StageStart,
		Trace:       []Stage{StageStart},
	}
}

func (s *State) advance(stage Stage) {
	s.Stage = stage
	s.Trace = append(s.Trace, stage)
}

func (s *State) fail(msg string) {
	s.Error = msg
	s.advance(StageError)
}
