package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/orderflow-ai/internal/domain/ai"
	"github.com/bryanwahyu/orderflow-ai/internal/infra/ai/prompt"
)

const maxTokens = 1024

func newClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Transcriber wraps one Whisper-compatible speech-to-text endpoint. Both
// the primary and the fallback provider are instances of this type,
// differing in base URL, key, and model.
type Transcriber struct {
	client *openai.Client
	model  string
	name   string
}

func NewTranscriber(name, apiKey, baseURL, model string) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{client: newClient(apiKey, baseURL), model: model, name: name}
}

func (t *Transcriber) Name() string { return t.name }

func (t *Transcriber) Transcribe(ctx context.Context, localPath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: localPath,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("provider returned empty transcript")
	}
	return text, nil
}

// Moderator wraps the moderation endpoint used for the safety gate.
type Moderator struct {
	client *openai.Client
	model  string
}

func NewModerator(apiKey, baseURL, model string) *Moderator {
	if model == "" {
		model = openai.ModerationTextLatest
	}
	return &Moderator{client: newClient(apiKey, baseURL), model: model}
}

// blockScoreThreshold separates flagged content that must stop the run
// from flagged content that only warrants review.
const blockScoreThreshold = 0.8

// Verify maps the provider response onto the gateway verdict.
func (m *Moderator) Verify(ctx context.Context, text string) (domai.SafetyVerdict, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: m.model,
	})
	if err != nil {
		return domai.SafetyVerdict{}, fmt.Errorf("failed to moderate content: %w", err)
	}
	if len(resp.Results) == 0 {
		return domai.SafetyVerdict{}, fmt.Errorf("moderation returned no results")
	}
	return verdictFromResult(resp.Results[0]), nil
}

// verdictFromResult turns one moderation result into a verdict. A flagged
// result with any category score at or above the block threshold maps to
// block; flagged below the threshold maps to flag (review, not fatal). The
// category breakdown becomes the reason.
func verdictFromResult(res openai.Result) domai.SafetyVerdict {
	if !res.Flagged {
		return domai.SafetyVerdict{Decision: domai.DecisionAllow}
	}
	reason := "content flagged by moderation"
	if b, err := json.Marshal(res.Categories); err == nil {
		reason = fmt.Sprintf("content flagged by moderation: %s", b)
	}
	if maxCategoryScore(res.CategoryScores) >= blockScoreThreshold {
		return domai.SafetyVerdict{
			Decision: domai.DecisionBlock,
			Reason:   reason,
			Actions:  []string{"block"},
		}
	}
	return domai.SafetyVerdict{
		Decision: domai.DecisionFlag,
		Reason:   reason,
		Actions:  []string{"review"},
	}
}

// maxCategoryScore goes through JSON so new provider categories are picked
// up without tracking the struct's field set.
func maxCategoryScore(scores openai.ResultCategoryScores) float64 {
	b, err := json.Marshal(scores)
	if err != nil {
		return 1 // unreadable scores fail closed
	}
	var byName map[string]float64
	if err := json.Unmarshal(b, &byName); err != nil {
		return 1
	}
	var max float64
	for _, v := range byName {
		if v > max {
			max = v
		}
	}
	return max
}

// Extractor wraps the chat-completion endpoint that turns a transcript
// into order-line candidates. It returns the raw model output; parsing is
// the gateway's job.
type Extractor struct {
	client *openai.Client
	model  string
}

func NewExtractor(apiKey, baseURL, model string) *Extractor {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Extractor{client: newClient(apiKey, baseURL), model: model}
}

func (e *Extractor) Extract(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.ExtractionSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(e.model, "o1") || strings.HasPrefix(e.model, "o3") || strings.HasPrefix(e.model, "o4") || strings.HasPrefix(e.model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
