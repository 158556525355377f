package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	defaultModel   = "claude-3-haiku-20240307"
	maxTokens      = 1024
)

// Client extracts structured activity candidates from a farmhand's transcription.
type Client interface {
	ExtractActivities(ctx context.Context, transcription, knownAnimal string) ([]map[string]any, error)
}

// Options configures the client. Empty fields fall back to defaults.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type anthropicClient struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

// NewClient creates a configured Anthropic client.
func NewClient(opts Options, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("x-api-key", opts.APIKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(opts.Timeout)

	return &anthropicClient{httpClient: client, model: opts.Model, logger: logger}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

// Message is one turn of the Messages API conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You extract livestock farm activities from a farmhand's spoken report. Reports may be in French, English or Spanish.

Return ONLY a JSON object of the form {"activities": [ ... ]} where each activity has:
- "kind": one of "milking", "feeding", "health_observation", "weight_measurement", "injection", "cleaning"
- "animal": the animal name or ear tag exactly as spoken, or null when the report is about the whole herd or no animal
- "quantity": a number or null (liters for milking, kilograms for weight)
- "unit": one of "bales", "bags", "barrels", "kg", "liters", or null
- "feed_type": the feed as spoken, "unknown" when feeding without naming the feed, null otherwise
- "medicine", "dosage": for injections, else null
- "notes": free text observations, else null
- "date_reference": the time expression as spoken ("yesterday", "hier", "il y a deux jours"), or null when none

RULES:
- Never invent values that were not spoken. Use null instead.
- One entry per distinct action. Several feeds given to the herd are several feeding entries.
- Do not convert units and do not resolve dates yourself.
- If nothing describes a farm activity, return {"activities": []}.`

func (c *anthropicClient) ExtractActivities(ctx context.Context, transcription, knownAnimal string) ([]map[string]any, error) {
	system := systemPrompt
	if knownAnimal != "" {
		system += fmt.Sprintf("\n- The user already selected the animal (id %s). Set \"animal\" to null.", knownAnimal)
	}

	// Prefill the assistant response to force JSON.
	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []Message{
			{Role: "user", Content: transcription},
			{Role: "assistant", Content: "{"},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post("/v1/messages")

	if err != nil {
		return nil, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("anthropic api error: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(respBody.Content) == 0 {
		return nil, errors.New("empty response from ai")
	}

	// Reconstruct the full JSON since we prefilled the opening brace.
	responseText := cleanJSON("{" + respBody.Content[0].Text)
	c.logger.Debug("extraction response", zap.String("model", c.model), zap.String("body", responseText))

	var result struct {
		Activities []map[string]any `json:"activities"`
	}
	if err := json.Unmarshal([]byte(responseText), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ai response: %w", err)
	}
	return result.Activities, nil
}

// cleanJSON strips markdown code fences the model sometimes wraps around its answer.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	inner := text[start+3:]
	if end := strings.LastIndex(inner, "```"); end >= 0 {
		inner = inner[:end]
	}
	inner = strings.TrimSpace(strings.TrimPrefix(inner, "json"))
	if !strings.HasPrefix(inner, "{") {
		inner = "{" + inner
	}
	return inner
}
