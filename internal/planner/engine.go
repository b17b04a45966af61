package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"alcyxob/tricoach/internal/domain"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Engine selector values, matched against the planner.engine config key.
const (
	EngineDeterministic = "deterministic"
	EngineModel         = "model"
)

// ProposalEngine is the seam that lets a model-backed generator replace the
// deterministic one behind a common interface. Selection is explicit
// configuration, never ambient mode state. Whatever the engine, its output
// still goes through RewriteForSafeApply before persistence.
type ProposalEngine interface {
	Name() string
	Propose(ctx context.Context, in ProposalInput) (*ProposalResult, error)
}

// --- Deterministic engine ---

// DeterministicEngine wraps the fixed trigger→diff policy.
type DeterministicEngine struct {
	pol Policy
}

func NewDeterministicEngine(pol Policy) *DeterministicEngine {
	return &DeterministicEngine{pol: pol}
}

func (e *DeterministicEngine) Name() string { return EngineDeterministic }

func (e *DeterministicEngine) Propose(_ context.Context, in ProposalInput) (*ProposalResult, error) {
	return GenerateProposal(in, e.pol)
}

// --- Model-backed engine ---

// ChatCompleter is the narrow slice of the OpenAI client the model engine
// needs; it exists so tests can stub the model.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelEngine asks a chat model for a diff and falls back to the
// deterministic engine on any model, parse or validation failure. The
// fallback means a flaky or misbehaving model can degrade quality but
// never availability.
type ModelEngine struct {
	client   ChatCompleter
	model    string
	fallback *DeterministicEngine
	logger   *zap.Logger

	// OnFallback, when set, is invoked once per model failure that fell
	// back to the deterministic engine. Used to feed a counter.
	OnFallback func()
}

func NewModelEngine(client ChatCompleter, model string, fallback *DeterministicEngine, logger *zap.Logger) *ModelEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelEngine{client: client, model: model, fallback: fallback, logger: logger}
}

func (e *ModelEngine) Name() string { return EngineModel }

const modelSystemPrompt = `You are a triathlon coaching assistant. Given a training plan draft and a set of adaptation triggers, respond with a JSON object {"diff": [...]} where each element is one of:
{"op":"UPDATE_SESSION","sessionId":"...","patch":{"type":"...","durationMin":N,"notes":"..."}}
{"op":"SWAP_SESSION_TYPE","sessionId":"...","toType":"recovery|endurance|tempo|threshold"}
{"op":"ADJUST_WEEK_VOLUME","weekIndex":N,"pctDelta":N}
Never remove sessions. Never target locked sessions or locked weeks. Respond with JSON only.`

func (e *ModelEngine) Propose(ctx context.Context, in ProposalInput) (*ProposalResult, error) {
	result, err := e.proposeViaModel(ctx, in)
	if err != nil {
		e.logger.Warn("model proposal failed, falling back to deterministic engine", zap.Error(err))
		if e.OnFallback != nil {
			e.OnFallback()
		}
		return e.fallback.Propose(ctx, in)
	}
	return result, nil
}

func (e *ModelEngine) proposeViaModel(ctx context.Context, in ProposalInput) (*ProposalResult, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode proposal input: %w", err)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: modelSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var parsed struct {
		Diff []domain.DiffOp `json:"diff"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("decode model diff: %w", err)
	}
	for i, op := range parsed.Diff {
		if !op.Op.Valid() {
			return nil, fmt.Errorf("model diff op %d has unrecognized kind %q", i, op.Op)
		}
	}
	if parsed.Diff == nil {
		parsed.Diff = []domain.DiffOp{}
	}

	hash, err := ComputeStableHash(parsed.Diff)
	if err != nil {
		return nil, err
	}
	return &ProposalResult{Diff: parsed.Diff, DiffHash: hash}, nil
}
