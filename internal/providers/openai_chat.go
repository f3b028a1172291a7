package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
)

const (
	openAIChatDefaultModel = "gpt-4.1-mini"

	// USD per 1M tokens for the default model; other models reuse it as an estimate.
	openAIChatInputCostPer1M  = 0.40
	openAIChatOutputCostPer1M = 1.60
)

// OpenAIChatConfig holds configuration for the OpenAI chat client.
type OpenAIChatConfig struct {
	APIKey     string
	Model      string        // "gpt-4.1-mini" (default)
	RateLimit  float64       // Requests per second
	MaxRetries int           // Attempts made by Guard
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIChatClient implements LLMClient with chat completions.
type OpenAIChatClient struct {
	openAIConn
	model string
}

// NewOpenAIChatClient creates a new OpenAI chat client.
func NewOpenAIChatClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	if cfg.Model == "" {
		cfg.Model = openAIChatDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 8.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OpenAIChatClient{
		openAIConn: newOpenAIConn(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient, cfg.Timeout, cfg.MaxRetries, cfg.RateLimit),
		model:      cfg.Model,
	}
}

// Name returns the client identifier.
func (c *OpenAIChatClient) Name() string {
	return OpenAIName
}

// Model returns the configured default model.
func (c *OpenAIChatClient) Model() string {
	return c.model
}

// Chat sends a chat completion request.
func (c *OpenAIChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	result := &ChatResult{Provider: OpenAIName, RequestID: req.RequestID, Attempts: 1}

	if len(req.Messages) == 0 {
		err := fmt.Errorf("at least one message is required")
		result.ErrorMessage = err.Error()
		return result, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	result.ModelUsed = model

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		err = mapOpenAIError("OpenAI chat", err)
		result.ErrorMessage = err.Error()
		return result, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("OpenAI chat returned no choices")
		result.ErrorMessage = err.Error()
		return result, err
	}

	result.Success = true
	result.Content = strings.TrimSpace(resp.Choices[0].Message.Content)
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.CostUSD = float64(result.PromptTokens)*(openAIChatInputCostPer1M/1_000_000.0) +
		float64(result.CompletionTokens)*(openAIChatOutputCostPer1M/1_000_000.0)
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	if result.RequestID == "" {
		result.RequestID = resp.ID
	}
	return result, nil
}

var _ LLMClient = (*OpenAIChatClient)(nil)
