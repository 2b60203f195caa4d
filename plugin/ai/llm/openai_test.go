package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/tools"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAI(Config{BaseURL: server.URL, APIKey: "test", Model: "test-model"})
}

func writeCompletion(w http.ResponseWriter, message map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "message": message, "finish_reason": "stop"}},
	})
}

func TestGenerate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, map[string]any{"role": "assistant", "content": "hello there"})
	})

	text, err := p.Generate(context.Background(), &Request{Messages: []Message{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleUser, Content: "hi"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestGenerateDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateRunsTools(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeCompletion(w, map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []map[string]any{{
					"id":       "call-1",
					"type":     "function",
					"function": map[string]any{"name": "echo", "arguments": `{"v":"x"}`},
				}},
			})
			return
		}
		var body struct {
			Messages []struct {
				Role       string `json:"role"`
				Content    string `json:"content"`
				ToolCallID string `json:"tool_call_id"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		last := body.Messages[len(body.Messages)-1]
		assert.Equal(t, "tool", last.Role)
		assert.Equal(t, "call-1", last.ToolCallID)
		writeCompletion(w, map[string]any{"role": "assistant", "content": "tool said " + last.Content})
	})

	echo := tools.Tool{
		Name: "echo",
		Call: func(_ context.Context, args string) (string, error) { return args, nil },
	}
	text, err := p.Generate(context.Background(), &Request{
		Messages: []Message{{Role: RoleUser, Content: "use it"}},
		Tools:    []tools.Tool{echo},
	})
	require.NoError(t, err)
	assert.Equal(t, `tool said {"v":"x"}`, text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateStream(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var sb strings.Builder
	for chunk, err := range p.GenerateStream(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}) {
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
	assert.Equal(t, "Hello", sb.String())
}

func TestGenerateStreamError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var errs int
	for _, err := range p.GenerateStream(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestEmbed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2}}},
		})
	})

	vec, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestFactory(t *testing.T) {
	factory := NewFactory("emb")

	gen, err := factory(plan.ModelConfig{Name: "a", Provider: "openai", Model: "gpt"})
	require.NoError(t, err)
	assert.Equal(t, "gpt", gen.(*OpenAI).Model())

	_, err = factory(plan.ModelConfig{Name: "b", Provider: "anthropic", Model: "x"})
	assert.Error(t, err)

	_, err = factory(plan.ModelConfig{Name: "c", Provider: "openai"})
	assert.Error(t, err)
}
