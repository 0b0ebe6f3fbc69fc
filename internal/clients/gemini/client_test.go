package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGemini(t *testing.T, text string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
}

func TestClient_Complete(t *testing.T) {
	var req map[string]any
	srv := fakeGemini(t, `[{"index":1,"category":"Food","confidence":90}]`, &req)
	defer srv.Close()

	c, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "system prompt", "1. ESSELUNGA | 45.20")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"index":1,"category":"Food","confidence":90}]`, text)

	cfg, ok := req["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.Contains(t, req, "systemInstruction")
}

func TestClient_EmptyResponse(t *testing.T) {
	srv := fakeGemini(t, "", nil)
	defer srv.Close()

	c, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestAnswerSchema(t *testing.T) {
	s := answerSchema()
	require.NotNil(t, s.Items)
	assert.Contains(t, s.Items.Properties["category"].Enum, "Investments")
	assert.Contains(t, s.Items.Properties["category"].Enum, "Other")
}
