package explain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// CurrentPromptVersion changes whenever the prompt template below changes,
// so previously cached explanations stop matching their cache keys.
const CurrentPromptVersion = "prompt-v1"

const defaultModel = "gpt-4o-mini"

const systemPrompt = "You are a senior engineer documenting a codebase. " +
	"Explain what the given code entity does, why it exists, and any side effects, " +
	"in at most three sentences of plain prose."

// OpenAIProvider implements Provider over the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider reads OPENAI_API_KEY from the environment. The model is
// resolved in order: explicit argument, LOUPE_MODEL, built-in default.
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	model = ResolveModel(model)
	slog.Info("initializing OpenAI provider", "model", model)

	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}, nil
}

// ResolveModel applies the provider's fallback chain (explicit value, then
// LOUPE_MODEL, then the built-in default) without requiring credentials, so
// decide-only paths derive the same cache keys a real run would.
func ResolveModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		model = strings.TrimSpace(os.Getenv("LOUPE_MODEL"))
	}
	if model == "" {
		model = defaultModel
	}
	return model
}

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

func (p *OpenAIProvider) PromptVersion() string {
	return CurrentPromptVersion
}

func (p *OpenAIProvider) Explain(ctx context.Context, input EntityInput) (string, error) {
	slog.Debug("requesting explanation", "entity", input.Name, "file", input.FilePath)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(input)},
		},
	})
	if err != nil {
		slog.Warn("explanation call failed", "entity", input.Name, "error", err)
		return "", fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned empty explanation")
	}
	return text, nil
}

// BuildPrompt renders the user message for one entity. Deterministic for
// identical inputs; the template version is CurrentPromptVersion.
func BuildPrompt(input EntityInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s (%s)\n", input.Name, input.Kind)
	fmt.Fprintf(&b, "File: %s (%s), lines %d-%d\n", input.FilePath, input.Language, input.StartLine, input.EndLine)
	if input.Signature != "" {
		fmt.Fprintf(&b, "Signature: %s\n", input.Signature)
	}
	if len(input.Imports) > 0 {
		fmt.Fprintf(&b, "File imports: %s\n", strings.Join(input.Imports, ", "))
	}
	fmt.Fprintf(&b, "\nSource:\n%s\n", input.Source)
	return b.String()
}
