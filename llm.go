package main

import (
	"context"

	"go.uber.org/zap"
)

// Engine names accepted in config and command overrides.
const (
	EngineOpenAI = "openai"
	EngineOllama = "ollama"
	EngineGemini = "gemini"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to an engine.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions tune a single completion call.
type CompletionOptions struct {
	Model       string
	Temperature *float64
}

// Completion is the text an engine answered with.
type Completion struct {
	Content string
}

// llmClient performs one non-streaming completion.
type llmClient interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (Completion, error)
}

// modelLister is implemented by engines that can enumerate installed models.
type modelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// llmFactory resolves an engine name to a client; nil means no usable engine.
type llmFactory func(cfg Config, engine string) llmClient

// buildLLM picks the client for engine. Ollama needs no credentials; gemini
// needs its key; anything else goes to OpenAI when a key is configured.
// It returns a nil interface, never a typed nil, when nothing is usable.
func buildLLM(cfg Config, engine string) llmClient {
	switch engine {
	case EngineOllama:
		return newOllamaClient(cfg.Engines.Ollama)
	case EngineGemini:
		if cfg.Engines.Gemini.APIKey == "" {
			return nil
		}
		client, err := newGeminiClient(context.Background(), cfg.Engines.Gemini)
		if err != nil {
			zap.L().Named("llm").Warn("gemini client unavailable", zap.Error(err))
			return nil
		}
		return client
	}
	if cfg.Engines.OpenAI.APIKey == "" {
		return nil
	}
	return newOpenAIClient(cfg.Engines.OpenAI)
}
