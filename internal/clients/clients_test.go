package clients

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-finance-import/pkg/config"
)

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AIConfig
		wantNil bool
	}{
		{"none", config.AIConfig{Provider: config.ProviderNone, OpenAIAPIKey: "sk"}, true},
		{"gemini without key", config.AIConfig{Provider: config.ProviderGemini}, true},
		{"openai without key", config.AIConfig{Provider: config.ProviderOpenAI}, true},
		{"openai", config.AIConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(context.Background(), tt.cfg)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, c)
			} else {
				assert.NotNil(t, c)
			}
		})
	}
}

func TestNewClassificationService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewClassificationService(context.Background(), config.AIConfig{Provider: config.ProviderNone, BatchSize: 20}, logger)
	require.NoError(t, err)
	assert.False(t, svc.HasFallback())
	assert.Positive(t, svc.Rules().PatternCount())

	svc, err = NewClassificationService(context.Background(), config.AIConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test", BatchSize: 5}, logger)
	require.NoError(t, err)
	assert.True(t, svc.HasFallback())
}
