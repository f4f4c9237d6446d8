// Package llm generates optional narrative summaries of reports through an
// OpenAI-compatible chat completion API. Scores are never computed here.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kagehq/kage/internal/llm/prompts"
	"github.com/kagehq/kage/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// NarrativeResult is the JSON object the model is asked to return.
type NarrativeResult struct {
	Narrative string `json:"narrative"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, variant prompts.PromptVariant) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: variant,
	}
}

// Ping checks that the endpoint is reachable and serves the configured model.
func (c *Client) Ping(ctx context.Context) error {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by endpoint", c.model)
}

// Narrate asks the model for a short narrative of a localized report.
func (c *Client) Narrate(ctx context.Context, r model.Report, subjectName, lang string) (string, error) {
	systemPrompt, err := prompts.BuildNarrativePrompt(c.variant, prompts.NewNarrativeData(r, subjectName, lang))
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Write the summary."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "subject_id", r.SubjectID, "raw", raw)

	var result NarrativeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	text := strings.TrimSpace(result.Narrative)
	if text == "" {
		return "", errors.New("LLM returned an empty narrative")
	}
	return text, nil
}
