package main

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiClient talks to the Gemini API through the Google GenAI SDK.
type geminiClient struct {
	client *genai.Client
}

func newGeminiClient(ctx context.Context, cfg GeminiConfig) (*geminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &geminiClient{client: client}, nil
}

func (g *geminiClient) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (Completion, error) {
	contents, config := toGeminiContents(messages)
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		config.Temperature = &t
	}
	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, contents, config)
	if err != nil {
		return Completion{}, fmt.Errorf("gemini: %w", err)
	}
	return Completion{Content: resp.Text()}, nil
}

// toGeminiContents maps chat turns onto Gemini roles. System messages become
// the system instruction; Gemini has no system role in contents.
func toGeminiContents(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, config
}
