// Package gemini implements the fallback classifier's completion endpoint on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("empty response from model")

// Config configures the client. BaseURL is only set in tests or behind a proxy.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client asks Gemini for JSON constrained by a response schema.
type Client struct {
	client *genai.Client
	model  string
	schema *genai.Schema
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: cfg.Model, schema: answerSchema()}, nil
}

// answerSchema describes [{index, category, confidence}] with the category vocabulary as an enum.
func answerSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"index":      {Type: genai.TypeInteger},
				"category":   {Type: genai.TypeString, Enum: transaction.CategoryNames()},
				"confidence": {Type: genai.TypeInteger},
			},
			Required: []string{"index", "category", "confidence"},
		},
	}
}

// Complete sends one system + user exchange and returns the raw text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := float32(0)
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       &temperature,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    c.schema,
		})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
