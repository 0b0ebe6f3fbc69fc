// Package clients builds the language model completer selected by configuration.
package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/smart-finance-import/internal/clients/gemini"
	openaiclient "github.com/FACorreiaa/smart-finance-import/internal/clients/openai"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/categorization"
	"github.com/FACorreiaa/smart-finance-import/pkg/config"
)

// NewCompleter returns the configured completer, or nil when the provider is
// "none" or its API key is missing. Missing credentials are not an error here.
func NewCompleter(ctx context.Context, cfg config.AIConfig) (categorization.Completer, error) {
	if !cfg.HasCredentials() {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return c, nil
	case config.ProviderOpenAI:
		c, err := openaiclient.New(openaiclient.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return c, nil
	default:
		return nil, nil
	}
}

// NewClassificationService composes the rule tier with the configured model tier.
func NewClassificationService(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*categorization.Service, error) {
	completer, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var fallback *categorization.FallbackClassifier
	if completer != nil {
		fallback = categorization.NewFallbackClassifier(completer, categorization.FallbackOptions{
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.BatchTimeout,
			Delay:     cfg.BatchDelay,
		}, logger)
		logger.Info("fallback classifier enabled",
			slog.String("provider", cfg.Provider),
			slog.Int("batch_size", cfg.BatchSize))
	} else {
		logger.Info("fallback classifier disabled, rule tier only",
			slog.String("provider", cfg.Provider))
	}

	return categorization.NewService(categorization.NewRuleClassifier(nil), fallback, logger), nil
}
