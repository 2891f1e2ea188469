package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIDescribe(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "[{\"name\":\"Brass lamp\"}]"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 100, "total_tokens": 1100}
		}`))
	}))
	defer ts.Close()

	model := NewOpenAI(OpenAIOpts{APIKey: "sk-test", BaseURL: ts.URL + "/v1"})
	resp, err := model.Describe(context.Background(), Request{
		System:   "system text",
		Prompt:   "user text",
		Image:    []byte("png-bytes"),
		MIMEType: "image/png",
	})
	require.NoError(t, err)

	assert.Equal(t, `[{"name":"Brass lamp"}]`, resp.Text)
	assert.Equal(t, int64(1000), resp.Usage.InputTokens)
	assert.Equal(t, int64(1100), resp.Usage.TotalTokens)
	assert.InDelta(t, 0.0035, resp.Usage.CostUSD, 1e-9)

	assert.Equal(t, "gpt-4o", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	content := messages[1].(map[string]any)["content"].([]any)
	image := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(image["url"].(string), "data:image/png;base64,"))
}

func TestOpenAIDescribe_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [], "usage": {}}`))
	}))
	defer ts.Close()

	model := NewOpenAI(OpenAIOpts{APIKey: "sk-test", BaseURL: ts.URL + "/v1", Model: "gpt-4o-mini"})
	_, err := model.Describe(context.Background(), Request{Prompt: "p", Image: []byte("x"), MIMEType: "image/jpeg"})
	assert.ErrorContains(t, err, "no response from OpenAI")
}

func TestUsageAdd(t *testing.T) {
	u := Usage{InputTokens: 1, CostUSD: 0.5}
	u.Add(Usage{InputTokens: 2, OutputTokens: 3, TotalTokens: 5, CostUSD: 0.25})
	assert.Equal(t, Usage{InputTokens: 3, OutputTokens: 3, TotalTokens: 5, CostUSD: 0.75}, u)
}
