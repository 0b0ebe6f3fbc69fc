// Package openaiclient implements the fallback classifier's completion endpoint
// on any OpenAI-compatible chat completions API, using strict structured outputs.
package openaiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const DefaultModel = "gpt-4o-mini"

var ErrEmptyChoices = errors.New("openai: empty choices")

// Answer is one classified transaction in the model reply.
type Answer struct {
	Index      int    `json:"index" jsonschema_description:"1-based number of the transaction in the list"`
	Category   string `json:"category" jsonschema:"enum=Food,enum=Transport,enum=Entertainment,enum=Bills,enum=Healthcare,enum=Shopping,enum=Investments,enum=Education,enum=Travel,enum=Income,enum=Other" jsonschema_description:"Category from the fixed vocabulary"`
	Confidence int    `json:"confidence" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Confidence from 0 to 100"`
}

// Reply wraps the answers; strict mode needs an object at the top level.
type Reply struct {
	Items []Answer `json:"items" jsonschema_description:"One answer per transaction"`
}

func generateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var schemaParam = openai.ResponseFormatJSONSchemaJSONSchemaParam{
	Name:        "transaction_categories",
	Description: openai.String("Category for each numbered bank transaction"),
	Schema:      generateSchema[Reply](),
	Strict:      openai.Bool(true),
}

// Config configures the client. BaseURL targets OpenAI-compatible gateways.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client is a chat completion endpoint with a strict JSON schema.
type Client struct {
	client *openai.Client
	model  string
}

// New creates the client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	cl := openai.NewClient(opts...)

	return &Client{client: &cl, model: cfg.Model}, nil
}

// Complete sends one system + user exchange and returns the message content.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	chat, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Seed:  openai.Int(42),
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(chat.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return chat.Choices[0].Message.Content, nil
}
