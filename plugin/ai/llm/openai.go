package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/quillmate/plugin/ai/timeout"
	"github.com/hrygo/quillmate/plugin/ai/tools"
)

// Config holds the provider configuration of one generator.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	// MaxToolRounds bounds the tool-call loop of one Generate call.
	MaxToolRounds int
	// EmbeddingRetries applies to embeddings only; chat failures are surfaced to the caller.
	EmbeddingRetries int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.openai.com/v1",
		Model:            "gpt-4o-mini",
		EmbeddingModel:   "text-embedding-3-small",
		Temperature:      0.7,
		MaxTokens:        2048,
		MaxToolRounds:    timeout.MaxToolRounds,
		EmbeddingRetries: 3,
	}
}

// OpenAI talks to any OpenAI-compatible endpoint.
type OpenAI struct {
	client *openai.Client
	config Config
}

// NewOpenAI creates a generator. Zero fields fall back to DefaultConfig.
func NewOpenAI(cfg Config) *OpenAI {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = def.MaxToolRounds
	}
	if cfg.EmbeddingRetries <= 0 {
		cfg.EmbeddingRetries = def.EmbeddingRetries
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Model returns the chat model name.
func (p *OpenAI) Model() string {
	return p.config.Model
}

// Generate performs a chat completion, running tool calls until the model answers.
func (p *OpenAI) Generate(ctx context.Context, req *Request) (string, error) {
	messages := toOpenAIMessages(req.Messages)
	toolDefs, byName := toOpenAITools(req.Tools)

	for round := 0; ; round++ {
		chatReq := p.chatRequest(messages)
		if len(toolDefs) > 0 && round < p.config.MaxToolRounds {
			chatReq.Tools = toolDefs
		}

		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return "", errors.Wrap(err, "failed to complete chat")
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty chat response")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    runTool(ctx, byName, call),
				ToolCallID: call.ID,
			})
		}
	}
}

// runTool executes one tool call. Failures are reported back to the model as text.
func runTool(ctx context.Context, byName map[string]tools.Tool, call openai.ToolCall) string {
	tool, ok := byName[call.Function.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %s", call.Function.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.ToolExecutionTimeout)
	defer cancel()
	out, err := tool.Call(ctx, call.Function.Arguments)
	if err != nil {
		slog.Warn("tool call failed", "tool", call.Function.Name, "error", err)
		return fmt.Sprintf("error: %v", err)
	}
	return out
}

// GenerateStream streams the completion. With tools attached the tool loop runs first
// and the final answer is yielded as a single chunk.
func (p *OpenAI) GenerateStream(ctx context.Context, req *Request) iter.Seq2[string, error] {
	if len(req.Tools) > 0 {
		return func(yield func(string, error) bool) {
			text, err := p.Generate(ctx, req)
			if err != nil {
				yield("", err)
				return
			}
			yield(text, nil)
		}
	}

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chatReq := p.chatRequest(toOpenAIMessages(req.Messages))
		chatReq.Stream = true
		stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			yield("", errors.Wrap(err, "failed to open chat stream"))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", errors.Wrap(err, "chat stream failed"))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			chunk := resp.Choices[0].Delta.Content
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Embed generates an embedding vector for the given text.
func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := p.doWithRetry(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
		defer cancel()
		resp, err := p.client.CreateEmbeddings(attemptCtx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate embedding")
	}
	return result, nil
}

func (p *OpenAI) chatRequest(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	}
}

// doWithRetry executes a function with exponential backoff retry.
func (p *OpenAI) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.EmbeddingRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == p.config.EmbeddingRetries-1 {
			break
		}
		waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		slog.Debug("embedding request failed, retrying",
			"attempt", attempt+1,
			"wait_time", waitTime,
			"error", lastErr)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}

func toOpenAITools(list []tools.Tool) ([]openai.Tool, map[string]tools.Tool) {
	if len(list) == 0 {
		return nil, nil
	}
	defs := make([]openai.Tool, 0, len(list))
	byName := make(map[string]tools.Tool, len(list))
	for _, t := range list {
		params, err := json.Marshal(t.Parameters)
		if err != nil || t.Parameters == nil {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(params),
			},
		})
		byName[t.Name] = t
	}
	return defs, byName
}

var (
	_ Generator = (*OpenAI)(nil)
	_ Embedder  = (*OpenAI)(nil)
)
