package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"pagecraft/internal/config"
	"pagecraft/internal/extract"
)

// GeminiClient generates drafts through the Google GenAI API. It supports
// streaming and schema-constrained structured output.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Model returns the configured model id.
func (c *GeminiClient) Model() string { return c.model }

// Generate sends a prompt and returns the full completion text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

// GenerateStream delivers the completion fragment by fragment and returns
// the accumulated text.
func (c *GeminiClient) GenerateStream(ctx context.Context, prompt string, fn func(fragment string) error) (string, error) {
	var full string
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(prompt), nil) {
		if err != nil {
			return full, fmt.Errorf("gemini stream: %w", err)
		}
		fragment := resp.Text()
		if fragment == "" {
			continue
		}
		full += fragment
		if fn != nil {
			if err := fn(fragment); err != nil {
				return full, err
			}
		}
	}
	return full, nil
}

// GenerateStructured constrains the response to a JSON schema and returns
// the parsed object. A response that still fails to decode surfaces as an
// *extract.Error so callers can schedule a repair instead of failing hard.
func (c *GeminiClient) GenerateStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if schema != nil {
		parsed, err := schemaFromMap(schema)
		if err != nil {
			return nil, err
		}
		genCfg.ResponseSchema = parsed
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini structured generate: %w", err)
	}
	return extract.Object(result.Text())
}

// schemaFromMap converts a plain JSON-schema map into the typed genai
// schema through a marshal round-trip.
func schemaFromMap(m map[string]any) (*genai.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("invalid response schema: %w", err)
	}
	var s genai.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("invalid response schema: %w", err)
	}
	return &s, nil
}
